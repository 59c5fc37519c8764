package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/taskauth/resilience"
)

// KeySetConfig configures the signing-key cache.
type KeySetConfig struct {
	// URL is the identity provider's key-set endpoint.
	URL string

	// KeyTTL is how long a fetched key is used for new validations.
	// Default: 1 hour
	KeyTTL time.Duration

	// FetchTimeout bounds a key-set fetch, including its single retry.
	// Default: 10s
	FetchTimeout time.Duration

	// RetryDelay is the backoff before the single fetch retry.
	// Default: 250ms
	RetryDelay time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client is used.
	HTTPClient *http.Client
}

// SigningKey is a cached public signing key.
type SigningKey struct {
	KeyID     string
	Key       *rsa.PublicKey
	FetchedAt time.Time
	TTL       time.Duration

	// Stale marks a key past its TTL, served only because a fresh fetch
	// failed. A stale key may validate tokens issued before StaleSince,
	// nothing newer.
	Stale bool
}

// StaleSince is the instant the key stopped being usable for new validations.
func (k SigningKey) StaleSince() time.Time {
	return k.FetchedAt.Add(k.TTL)
}

func (k SigningKey) stale(now time.Time) bool {
	return now.After(k.StaleSince())
}

// KeySetCache fetches and caches the identity provider's public signing keys,
// keyed by key id. Concurrent misses coalesce into a single upstream fetch.
type KeySetCache struct {
	config KeySetConfig
	retry  *resilience.Retry

	mu   sync.RWMutex
	keys map[string]SigningKey

	group singleflight.Group
}

// NewKeySetCache creates a signing-key cache.
func NewKeySetCache(config KeySetConfig) *KeySetCache {
	// Apply defaults
	if config.KeyTTL == 0 {
		config.KeyTTL = time.Hour
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = 10 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 250 * time.Millisecond
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.FetchTimeout}
	}

	return &KeySetCache{
		config: config,
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: 2,
			Delay:       config.RetryDelay,
		}),
		keys: make(map[string]SigningKey),
	}
}

// Get returns the key for the given key id. A miss or a stale hit triggers
// one coalesced refresh; if the key is still absent afterwards Get fails with
// ErrUnknownSigningKey. When the refresh itself fails, a previously fetched
// key is returned marked Stale rather than failing outright.
//
// An empty keyID matches the sole cached key, for providers that publish an
// unnamed single key.
func (c *KeySetCache) Get(ctx context.Context, keyID string) (SigningKey, error) {
	c.mu.RLock()
	key, ok := c.lookupLocked(keyID)
	c.mu.RUnlock()

	if ok && !key.stale(time.Now()) {
		return key, nil
	}

	if err := c.Refresh(ctx); err != nil {
		if ok {
			key.Stale = true
			return key, nil
		}
		return SigningKey{}, err
	}

	c.mu.RLock()
	key, ok = c.lookupLocked(keyID)
	c.mu.RUnlock()

	if !ok {
		return SigningKey{}, ErrUnknownSigningKey
	}
	return key, nil
}

// lookupLocked finds a key by id. Caller must hold at least RLock.
func (c *KeySetCache) lookupLocked(keyID string) (SigningKey, bool) {
	if keyID == "" {
		for _, key := range c.keys {
			return key, true
		}
		return SigningKey{}, false
	}
	key, ok := c.keys[keyID]
	return key, ok
}

// Refresh fetches the full key set. However many callers arrive concurrently,
// at most one fetch is outstanding and every caller receives its outcome. A
// failed fetch is retried once with a short backoff before surfacing
// ErrUpstreamUnavailable.
func (c *KeySetCache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		// Detach from the triggering caller: its cancellation must not fail
		// the fetch for the other waiters.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.FetchTimeout)
		defer cancel()

		return nil, c.retry.Execute(fctx, c.fetch)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// fetch retrieves the key set and replaces the cache wholesale, so keys the
// provider rotated out are evicted immediately.
func (c *KeySetCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch key set: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var keySet jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return fmt.Errorf("decode key set: %w", err)
	}

	now := time.Now()
	keys := make(map[string]SigningKey, len(keySet.Keys))
	for _, jwk := range keySet.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue // Skip invalid keys
		}
		keys[jwk.Kid] = SigningKey{
			KeyID:     jwk.Kid,
			Key:       pubKey,
			FetchedAt: now,
			TTL:       c.config.KeyTTL,
		}
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()

	return nil
}

// jwksResponse is the key-set endpoint response format.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single JWK.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseRSAPublicKey converts a JWK to an RSA public key.
func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	if jwk.N == "" {
		return nil, fmt.Errorf("missing n parameter")
	}
	if jwk.E == "" {
		return nil, fmt.Errorf("missing e parameter")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}
