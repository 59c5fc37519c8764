package config

import (
	"github.com/jonwraymond/taskauth/auth"
	"github.com/jonwraymond/taskauth/observe"
	"github.com/jonwraymond/taskauth/session"
)

// KeySet builds the signing-key cache for this configuration.
func (c *Config) KeySet() *auth.KeySetCache {
	return auth.NewKeySetCache(auth.KeySetConfig{
		URL:    c.KeySetEndpoint,
		KeyTTL: c.KeyTTL,
	})
}

// Validator builds a token validator bound to the given key cache.
func (c *Config) Validator(keys *auth.KeySetCache) *auth.TokenValidator {
	return auth.NewTokenValidator(auth.ValidatorConfig{
		Issuer:   c.Issuer,
		Audience: c.Audience,
		Leeway:   c.Leeway,
	}, keys)
}

// Provider builds the identity-provider client.
func (c *Config) Provider() *session.ProviderClient {
	return session.NewProviderClient(session.ProviderConfig{
		TokenEndpoint:      c.TokenEndpoint,
		RevocationEndpoint: c.RevocationEndpoint,
		ClientID:           c.ClientID,
		ClientSecret:       c.ClientSecret,
		RedirectURI:        c.RedirectURI,
	})
}

// NewStore builds the configured session store backend.
func (c *Config) NewStore() (session.Store, error) {
	switch c.StoreBackend {
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			URL:       c.RedisURL,
			KeyPrefix: c.RedisKeyPrefix,
		})
	default:
		return session.NewMemoryStore(session.MemoryConfig{}), nil
	}
}

// Manager assembles the full session manager from this configuration.
func (c *Config) Manager(store session.Store, validator *auth.TokenValidator, logger observe.Logger) *session.Manager {
	return session.NewManager(session.ManagerConfig{
		SessionTTL:    c.SessionTTL,
		RefreshLeeway: c.RefreshLeeway,
		Logger:        logger,
	}, store, validator, c.Provider())
}
