package health

import (
	"context"

	"github.com/jonwraymond/taskauth/auth"
	"github.com/jonwraymond/taskauth/session"
)

// Pinger is satisfied by stores with a reachability probe. The in-memory
// store has nothing to reach and does not implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker probes the session store backend.
type StoreChecker struct {
	store session.Store
}

// NewStoreChecker creates a checker for the session store.
func NewStoreChecker(store session.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

// Name returns "session_store".
func (c *StoreChecker) Name() string { return "session_store" }

// Check pings the store if its backend supports it.
func (c *StoreChecker) Check(ctx context.Context) Result {
	pinger, ok := c.store.(Pinger)
	if !ok {
		return Healthy("in-process store")
	}
	if err := pinger.Ping(ctx); err != nil {
		return Unhealthy("store unreachable", err)
	}
	return Healthy("store reachable")
}

// KeySetChecker probes the identity provider's signing-key endpoint.
type KeySetChecker struct {
	keys *auth.KeySetCache
}

// NewKeySetChecker creates a checker for the signing-key cache.
func NewKeySetChecker(keys *auth.KeySetCache) *KeySetChecker {
	return &KeySetChecker{keys: keys}
}

// Name returns "signing_keys".
func (c *KeySetChecker) Name() string { return "signing_keys" }

// Check refreshes the key set. A failed refresh means new logins would
// fail, even though cached keys may still serve existing tokens.
func (c *KeySetChecker) Check(ctx context.Context) Result {
	if err := c.keys.Refresh(ctx); err != nil {
		return Unhealthy("key-set fetch failed", err)
	}
	return Healthy("key set fetched")
}

var (
	_ Checker = (*StoreChecker)(nil)
	_ Checker = (*KeySetChecker)(nil)
)
