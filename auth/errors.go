package auth

import "errors"

// Sentinel errors for token validation and signing-key retrieval.
var (
	ErrMalformedToken    = errors.New("auth: malformed token")
	ErrUnknownSigningKey = errors.New("auth: unknown signing key")
	ErrExpiredToken      = errors.New("auth: token expired")
	ErrNotYetValid       = errors.New("auth: token not yet valid")
	ErrInvalidIssuer     = errors.New("auth: invalid issuer")
	ErrInvalidAudience   = errors.New("auth: invalid audience")

	// ErrUpstreamUnavailable reports that the identity provider could not be
	// reached after the internal retry.
	ErrUpstreamUnavailable = errors.New("auth: identity provider unavailable")
)
