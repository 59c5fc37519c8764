package session

import (
	"context"
	"sync"
	"time"
)

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	// SweepInterval is how often abandoned entries are purged. Lazy expiry
	// on read keeps results correct; the sweep bounds memory growth.
	// Default: 1 minute
	SweepInterval time.Duration
}

// MemoryStore is a single-process session store. Sessions are lost on
// restart and invisible to other instances; it is unsuitable for
// multi-instance deployments. Use RedisStore for those.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry

	stop chan struct{}
	once sync.Once
}

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store and starts its sweep loop.
// Callers own the store's lifecycle and must Close it.
func NewMemoryStore(config MemoryConfig) *MemoryStore {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}

	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		stop:    make(chan struct{}),
	}
	go s.sweep(config.SweepInterval)
	return s
}

// Get returns the session for the given id, or ErrNotFound. Expired entries
// are cleaned up lazily here.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	return entry.sess, nil
}

// Set stores the session with the given TTL, replacing any previous entry.
func (s *MemoryStore) Set(_ context.Context, id string, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[id] = &memoryEntry{
		sess:      sess,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

// Delete removes the session. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Touch resets the entry's TTL, or ErrNotFound.
func (s *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || now.After(entry.expiresAt) {
		delete(s.entries, id)
		return ErrNotFound
	}
	entry.expiresAt = now.Add(ttl)
	return nil
}

// Close stops the sweep loop.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
