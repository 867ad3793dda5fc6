package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a typed JSON store in Redis, shared between processes.
type RedisStore[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore whose keys are prefix + ":" + normalized key.
func NewRedisStore[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisStore[T] {
	if ttl <= 0 {
		ttl = defaultLRUTTL
	}
	return &RedisStore[T]{client: client, prefix: prefix, ttl: ttl}
}

// DefaultDialTimeout bounds the first ping in OpenRedisStore.
const DefaultDialTimeout = 3 * time.Second

// OpenRedisStore dials the server at url and returns a store over it once the
// server answers a ping. The caller owns the store and must Close it.
func OpenRedisStore[T any](ctx context.Context, url, prefix string, ttl time.Duration) (*RedisStore[T], error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	s := NewRedisStore[T](redis.NewClient(opts), prefix, ttl)
	pingCtx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks the server is reachable.
func (s *RedisStore[T]) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", s.client.Options().Addr, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore[T]) Close() error {
	return s.client.Close()
}

// key returns the Redis key for k.
func (s *RedisStore[T]) key(k string) string {
	return s.prefix + ":" + strings.ToUpper(strings.TrimSpace(k))
}

// Get retrieves the value stored under k.
// Returns nil, nil on a cache miss (not an error).
func (s *RedisStore[T]) Get(ctx context.Context, k string) (*T, error) {
	val, err := s.client.Get(ctx, s.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get for %s: %w", k, err)
	}

	var v T
	if err := json.Unmarshal(val, &v); err != nil {
		return nil, fmt.Errorf("unmarshaling cached value for %s: %w", k, err)
	}

	return &v, nil
}

// Set stores v under k with the configured TTL.
func (s *RedisStore[T]) Set(ctx context.Context, k string, v *T) error {
	if v == nil {
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling value for %s: %w", k, err)
	}

	if err := s.client.Set(ctx, s.key(k), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set for %s: %w", k, err)
	}

	return nil
}

// Delete removes the entry for k.
func (s *RedisStore[T]) Delete(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("redis delete for %s: %w", k, err)
	}
	return nil
}
