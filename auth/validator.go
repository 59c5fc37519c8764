package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ValidatorConfig configures bearer-token verification.
type ValidatorConfig struct {
	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Audience is the expected aud claim. Empty disables the check.
	Audience string

	// Leeway tolerates clock skew, applied symmetrically to expiry (exp) and
	// issuance (nbf/iat) checks.
	// Default: 60s
	Leeway time.Duration
}

// tokenClaims is the claim set provider access tokens carry.
type tokenClaims struct {
	UserID            string   `json:"user_id,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Username          string   `json:"username,omitempty"`
	Department        string   `json:"department,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// user projects the claims. A token without a roles claim yields an empty
// role set, which the authorizer treats as deny-all.
func (c *tokenClaims) user() *AuthenticatedUser {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	name := c.PreferredUsername
	if name == "" {
		name = c.Username
	}
	return &AuthenticatedUser{
		UserID:     id,
		Username:   name,
		Roles:      ParseRoles(c.Roles),
		Department: c.Department,
	}
}

// TokenValidator verifies a bearer token's signature, issuer, audience and
// validity window against the cached signing-key set.
type TokenValidator struct {
	config ValidatorConfig
	keys   *KeySetCache
	parser *jwt.Parser

	verifications metric.Int64Counter
}

// NewTokenValidator creates a validator backed by the given key-set cache.
func NewTokenValidator(config ValidatorConfig, keys *KeySetCache) *TokenValidator {
	// Apply defaults
	if config.Leeway == 0 {
		config.Leeway = 60 * time.Second
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	meter := otel.Meter("github.com/jonwraymond/taskauth/auth")
	verifications, _ := meter.Int64Counter("auth.token.verifications",
		metric.WithDescription("Bearer token verification attempts by outcome"))

	return &TokenValidator{
		config:        config,
		keys:          keys,
		parser:        jwt.NewParser(opts...),
		verifications: verifications,
	}
}

// Verify checks the token and returns the user it asserts. Failures are one
// of ErrMalformedToken, ErrUnknownSigningKey, ErrExpiredToken, ErrNotYetValid,
// ErrInvalidIssuer, ErrInvalidAudience or ErrUpstreamUnavailable.
//
// The key lookup refreshes the key set at most once when the token names an
// unknown key id, which covers validation racing a provider key rotation.
func (v *TokenValidator) Verify(ctx context.Context, tokenString string) (*AuthenticatedUser, error) {
	claims := &tokenClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, v.keyfunc(ctx))
	if err != nil {
		mapped := mapTokenError(err)
		v.verifications.Add(ctx, 1, metric.WithAttributes(
			attribute.String("result", resultAttr(mapped))))
		return nil, mapped
	}

	v.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	return claims.user(), nil
}

// keyfunc resolves the token's signing key via the cache. Stale keys are only
// accepted for tokens issued while the key was still current.
func (v *TokenValidator) keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)

		key, err := v.keys.Get(ctx, kid)
		if err != nil {
			return nil, err
		}

		if key.Stale {
			claims, ok := token.Claims.(*tokenClaims)
			if !ok || claims.IssuedAt == nil || claims.IssuedAt.After(key.StaleSince()) {
				return nil, ErrUnknownSigningKey
			}
		}
		return key.Key, nil
	}
}

// mapTokenError reduces golang-jwt failures to this package's taxonomy.
// Signature failures have no kind of their own: a token whose signature does
// not verify is as untrusted as one that does not parse.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownSigningKey):
		return ErrUnknownSigningKey
	case errors.Is(err, ErrUpstreamUnavailable):
		return ErrUpstreamUnavailable
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrInvalidAudience
	default:
		return ErrMalformedToken
	}
}

func resultAttr(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrInvalidIssuer):
		return "invalid_issuer"
	case errors.Is(err, ErrInvalidAudience):
		return "invalid_audience"
	case errors.Is(err, ErrUnknownSigningKey):
		return "unknown_key"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "malformed"
	}
}
