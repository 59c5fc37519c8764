package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	// URL is the connection URL (e.g. redis://localhost:6379/0).
	URL string

	// KeyPrefix namespaces session keys.
	// Default: "session:"
	KeyPrefix string
}

// RedisStore is a distributed session store. Expiry rides on Redis's native
// key TTLs, and SET replaces an entry atomically, so concurrent writers to
// the same id resolve last-write-wins with no read-modify-write window.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store from a connection URL.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opt), config.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps
// ownership of the client's lifecycle.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "session:"
	}
	return &RedisStore{
		client: client,
		prefix: keyPrefix,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Get returns the session for the given id, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Set stores the session with the given TTL, replacing any previous entry.
func (s *RedisStore) Set(ctx context.Context, id string, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the session. Idempotent - no error on miss.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Touch resets the entry's TTL without rewriting it, or ErrNotFound.
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, s.key(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Ping checks connectivity. Used by readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
