package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitegate/sitegate/internal/metrics"
)

// DefaultStoreTimeout bounds each store round trip when no timeout is configured.
const DefaultStoreTimeout = 2 * time.Second

// RedisStore implements CounterStore on a shared Redis instance.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore wraps a Redis client. Every call is bounded by timeout;
// a timed-out call is reported as an error, which downstream admission
// checks treat as a denial.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &RedisStore{client: client, timeout: timeout}
}

// Incr atomically increments key, creating it at 1 if absent.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	count, err := s.client.Incr(ctx, key).Result()
	metrics.RecordStoreCall("incr", time.Since(start))
	if err != nil {
		metrics.RecordStoreFailure("incr")
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return count, nil
}

// Expire sets or refreshes the TTL on key.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	err := s.client.Expire(ctx, key, ttl).Err()
	metrics.RecordStoreCall("expire", time.Since(start))
	if err != nil {
		metrics.RecordStoreFailure("expire")
		return fmt.Errorf("set expiration for %s: %w", key, err)
	}
	return nil
}

// TTL reports the remaining lifetime of key. Missing keys and keys without
// an expiry report zero.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	ttl, err := s.client.TTL(ctx, key).Result()
	metrics.RecordStoreCall("ttl", time.Since(start))
	if err != nil {
		metrics.RecordStoreFailure("ttl")
		return 0, fmt.Errorf("read ttl for %s: %w", key, err)
	}
	if ttl < 0 {
		// -1 (no expiry) and -2 (no key) both mean no usable deadline.
		return 0, nil
	}
	return ttl, nil
}

// Get fetches key, reporting presence separately from errors.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	value, err := s.client.Get(ctx, key).Result()
	metrics.RecordStoreCall("get", time.Since(start))
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		metrics.RecordStoreFailure("get")
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes key with a TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	err := s.client.Set(ctx, key, value, ttl).Err()
	metrics.RecordStoreCall("set", time.Since(start))
	if err != nil {
		metrics.RecordStoreFailure("set")
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// ScanKeys lists keys matching pattern. Used by operator tooling only; the
// request path never scans.
func (s *RedisStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}

// Del removes keys. Used by operator tooling only.
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Ping verifies store connectivity for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}
