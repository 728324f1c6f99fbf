package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCounterStoreUnavailable indicates the counter backend is unreachable.
var ErrCounterStoreUnavailable = errors.New("counter store unavailable")

// RedisCounterStore holds attempt counters in Redis. Increments are atomic
// (INCR), so concurrent failures from the same key cannot lose updates, and
// TTL expiry implements the decay window.
type RedisCounterStore struct {
	client redis.UniversalClient
}

// NewRedisCounterStore creates a counter store backed by the given Redis client.
func NewRedisCounterStore(client redis.UniversalClient) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Increment atomically increments the counter and starts the decay window on
// the first hit. The TTL is not extended by subsequent hits.
func (s *RedisCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterStoreUnavailable, err)
	}

	if count == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCounterStoreUnavailable, err)
		}
	}

	return count, nil
}

// Peek returns the current counter value. Missing keys read as zero.
func (s *RedisCounterStore) Peek(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrCounterStoreUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// TTL returns the time remaining until the counter expires. Keys without a
// TTL, or missing keys, report zero.
func (s *RedisCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Reset deletes the counter, cancelling any running decay window.
func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCounterStoreUnavailable, err)
	}
	return nil
}
