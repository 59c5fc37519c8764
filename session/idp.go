package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/taskauth/auth"
	"github.com/jonwraymond/taskauth/resilience"
)

// ProviderConfig configures the identity-provider client.
type ProviderConfig struct {
	// TokenEndpoint is the code/refresh exchange URL.
	TokenEndpoint string

	// RevocationEndpoint accepts refresh-token revocation on logout.
	// Empty disables revocation calls.
	RevocationEndpoint string

	// ClientID and ClientSecret identify this confidential client.
	ClientID     string
	ClientSecret string

	// RedirectURI is echoed on code exchange, as the code flow requires.
	RedirectURI string

	// Timeout bounds each HTTP call.
	// Default: 10s
	Timeout time.Duration

	// RetryDelay is the backoff before the single retry of an unavailable
	// upstream.
	// Default: 250ms
	RetryDelay time.Duration

	// HTTPClient is the HTTP client to use. If nil, a default client is used.
	HTTPClient *http.Client
}

// TokenSet is the provider's token-endpoint response.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ProviderClient talks to the identity provider's token and revocation
// endpoints. It is the only component that does.
type ProviderClient struct {
	config     ProviderConfig
	httpClient *http.Client
	retry      *resilience.Retry
}

// NewProviderClient creates an identity-provider client.
func NewProviderClient(config ProviderConfig) *ProviderClient {
	// Apply defaults
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 250 * time.Millisecond
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &ProviderClient{
		config:     config,
		httpClient: httpClient,
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: 2,
			Delay:       config.RetryDelay,
			// A rejected grant is a verdict, not an outage. Only retry
			// availability failures.
			RetryIf: func(err error) bool {
				return errors.Is(err, auth.ErrUpstreamUnavailable)
			},
		}),
	}
}

// Exchange swaps an authorization code for tokens. Fails with
// ErrInvalidGrant for a bad or expired code, or auth.ErrUpstreamUnavailable
// after the single retry.
func (c *ProviderClient) Exchange(ctx context.Context, code string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if c.config.RedirectURI != "" {
		form.Set("redirect_uri", c.config.RedirectURI)
	}
	return c.token(ctx, form)
}

// Refresh swaps a refresh token for fresh tokens. Failure kinds match
// Exchange; ErrInvalidGrant means the refresh token was rejected.
func (c *ProviderClient) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.token(ctx, form)
}

// Revoke asks the provider to invalidate a refresh token. Callers treat
// failure as advisory; local session deletion never depends on it.
func (c *ProviderClient) Revoke(ctx context.Context, refreshToken string) error {
	if c.config.RevocationEndpoint == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", refreshToken)
	form.Set("token_type_hint", "refresh_token")

	resp, err := c.post(ctx, c.config.RevocationEndpoint, form)
	if err != nil {
		return fmt.Errorf("%w: %v", auth.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: revocation status %d", auth.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}

// token performs a token-endpoint exchange with the retry policy applied.
func (c *ProviderClient) token(ctx context.Context, form url.Values) (*TokenSet, error) {
	var tokens *TokenSet

	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.post(ctx, c.config.TokenEndpoint, form)
		if err != nil {
			return fmt.Errorf("%w: %v", auth.ErrUpstreamUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", auth.ErrUpstreamUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var ts TokenSet
			if err := json.Unmarshal(body, &ts); err != nil {
				return fmt.Errorf("%w: decode token response: %v", auth.ErrUpstreamUnavailable, err)
			}
			if ts.AccessToken == "" {
				return fmt.Errorf("%w: token response missing access_token", auth.ErrUpstreamUnavailable)
			}
			tokens = &ts
			return nil

		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: status %d", auth.ErrUpstreamUnavailable, resp.StatusCode)

		default:
			// 4xx from the token endpoint carries an OAuth error object.
			var oauthErr struct {
				Error       string `json:"error"`
				Description string `json:"error_description"`
			}
			_ = json.Unmarshal(body, &oauthErr)
			if oauthErr.Description != "" {
				return fmt.Errorf("%w: %s (%s)", ErrInvalidGrant, oauthErr.Error, oauthErr.Description)
			}
			return fmt.Errorf("%w: status %d", ErrInvalidGrant, resp.StatusCode)
		}
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// post sends a form-encoded request with client credentials attached. The
// payload is normalized to its wire form here, before any transport call.
func (c *ProviderClient) post(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	body := url.Values{}
	for k, vs := range form {
		body[k] = vs
	}
	body.Set("client_id", c.config.ClientID)
	if c.config.ClientSecret != "" {
		body.Set("client_secret", c.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}
