package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the service, populated from TASKAUTH_*
// environment variables.
type Config struct {
	// ProviderURL is the identity provider's realm base URL. The token,
	// revocation, and key-set endpoints are derived from it when not set
	// explicitly.
	ProviderURL string `env:"TASKAUTH_PROVIDER_URL"`

	// TokenEndpoint overrides the derived token endpoint.
	TokenEndpoint string `env:"TASKAUTH_TOKEN_ENDPOINT"`

	// RevocationEndpoint overrides the derived revocation endpoint.
	RevocationEndpoint string `env:"TASKAUTH_REVOCATION_ENDPOINT"`

	// KeySetEndpoint overrides the derived signing-key endpoint.
	KeySetEndpoint string `env:"TASKAUTH_KEYSET_ENDPOINT"`

	// ClientID and ClientSecret identify this confidential client.
	// ClientSecret accepts a file:// reference.
	ClientID     string `env:"TASKAUTH_CLIENT_ID"`
	ClientSecret string `env:"TASKAUTH_CLIENT_SECRET"`

	// RedirectURI is echoed on authorization-code exchange.
	RedirectURI string `env:"TASKAUTH_REDIRECT_URI"`

	// Issuer is the expected token issuer. Empty disables the check.
	Issuer string `env:"TASKAUTH_ISSUER"`

	// Audience is the expected token audience. Empty disables the check.
	Audience string `env:"TASKAUTH_AUDIENCE"`

	// Leeway is the clock-skew tolerance applied to token time claims.
	Leeway time.Duration `env:"TASKAUTH_LEEWAY" envDefault:"60s"`

	// KeyTTL is how long a cached signing key stays fresh.
	KeyTTL time.Duration `env:"TASKAUTH_KEY_TTL" envDefault:"1h"`

	// SessionTTL bounds server-side session lifetime.
	SessionTTL time.Duration `env:"TASKAUTH_SESSION_TTL" envDefault:"8h"`

	// RefreshLeeway is how far before expiry sessions refresh proactively.
	RefreshLeeway time.Duration `env:"TASKAUTH_REFRESH_LEEWAY" envDefault:"60s"`

	// StoreBackend selects the session store: "memory" or "redis".
	StoreBackend string `env:"TASKAUTH_STORE_BACKEND" envDefault:"memory"`

	// RedisURL configures the redis store. RedisURL accepts a file://
	// reference for URLs that embed credentials.
	RedisURL       string `env:"TASKAUTH_REDIS_URL"`
	RedisKeyPrefix string `env:"TASKAUTH_REDIS_KEY_PREFIX" envDefault:"session:"`

	// LogLevel sets the minimum log level: debug, info, warn, error.
	LogLevel string `env:"TASKAUTH_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment, resolves file://
// references, derives missing endpoints, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	var err error
	if cfg.ClientSecret, err = resolveFileRef(cfg.ClientSecret); err != nil {
		return nil, fmt.Errorf("client secret: %w", err)
	}
	if cfg.RedisURL, err = resolveFileRef(cfg.RedisURL); err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}

	cfg.deriveEndpoints()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// deriveEndpoints fills unset endpoints from ProviderURL using the
// openid-connect path layout.
func (c *Config) deriveEndpoints() {
	if c.ProviderURL == "" {
		return
	}
	base := strings.TrimSuffix(c.ProviderURL, "/")
	if c.TokenEndpoint == "" {
		c.TokenEndpoint = base + "/protocol/openid-connect/token"
	}
	if c.RevocationEndpoint == "" {
		c.RevocationEndpoint = base + "/protocol/openid-connect/revoke"
	}
	if c.KeySetEndpoint == "" {
		c.KeySetEndpoint = base + "/protocol/openid-connect/certs"
	}
}

// Validate checks that the configuration is complete and coherent.
func (c *Config) Validate() error {
	var errs []error

	if c.TokenEndpoint == "" {
		errs = append(errs, errors.New("token endpoint is required (set TASKAUTH_PROVIDER_URL or TASKAUTH_TOKEN_ENDPOINT)"))
	} else if _, err := url.ParseRequestURI(c.TokenEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("invalid token endpoint: %w", err))
	}

	if c.KeySetEndpoint == "" {
		errs = append(errs, errors.New("key-set endpoint is required (set TASKAUTH_PROVIDER_URL or TASKAUTH_KEYSET_ENDPOINT)"))
	} else if _, err := url.ParseRequestURI(c.KeySetEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("invalid key-set endpoint: %w", err))
	}

	if c.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}

	if c.Leeway < 0 {
		errs = append(errs, errors.New("leeway must not be negative"))
	}
	if c.KeyTTL <= 0 {
		errs = append(errs, errors.New("key ttl must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}

	switch c.StoreBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis url is required for the redis store backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}

	return errors.Join(errs...)
}

// resolveFileRef reads values of the form "file:///path" from disk,
// trimming trailing whitespace. Other values pass through unchanged.
func resolveFileRef(value string) (string, error) {
	path, found := strings.CutPrefix(value, "file://")
	if !found {
		return value, nil
	}
	if path == "" {
		return "", errors.New("empty file reference")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
