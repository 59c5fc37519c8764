package session

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for session lookup and lifecycle.
var (
	// ErrNotFound reports a session id with no live entry: never created,
	// deleted, or evicted by the store's TTL.
	ErrNotFound = errors.New("session: not found")

	// ErrExpired reports a session whose refresh token the identity provider
	// rejected. The session is deleted; the caller must log in again.
	ErrExpired = errors.New("session: expired")

	// ErrInvalidGrant reports an authorization code or refresh token the
	// identity provider refused to exchange.
	ErrInvalidGrant = errors.New("session: invalid grant")

	// ErrInvalidSession reports a session record violating its invariants.
	ErrInvalidSession = errors.New("session: invalid session record")
)

// Store is the capability set a session backend must provide. Both backends
// expose identical expiry semantics: an entry past its TTL behaves exactly
// like one that never existed.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Atomicity: Set must not read-modify-write; concurrent writers to the
//   same id resolve last-write-wins.
// - Lookup: sessions are addressable only by their opaque id. There is
//   deliberately no enumeration by user id.
type Store interface {
	// Get returns the session for the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores the session under id with the given TTL, replacing any
	// previous entry.
	Set(ctx context.Context, id string, sess *Session, ttl time.Duration) error

	// Delete removes the session. Idempotent - no error on miss.
	Delete(ctx context.Context, id string) error

	// Touch resets the entry's TTL without rewriting it, or ErrNotFound.
	Touch(ctx context.Context, id string, ttl time.Duration) error
}
