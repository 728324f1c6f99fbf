package services

import (
	"context"
	"log/slog"
	"time"
)

// CounterStore defines the keyed, TTL-decaying counters backing the attempt
// limiter and the lock guard. Increment must be atomic with respect to
// concurrent callers on the same key.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Peek(ctx context.Context, key string) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// AttemptLimiterConfig holds the per-key attempt budget
type AttemptLimiterConfig struct {
	MaxAttempts int
	DecayWindow time.Duration
}

// AttemptLimiter tracks login failures per network identity with decaying
// counters. Store outages fail open: a down counter backend must not lock
// legitimate users out, while an intact counter still fails closed.
type AttemptLimiter struct {
	store  CounterStore
	config AttemptLimiterConfig
	logger *slog.Logger
}

// NewAttemptLimiter creates a new AttemptLimiter
func NewAttemptLimiter(store CounterStore, config AttemptLimiterConfig, logger *slog.Logger) *AttemptLimiter {
	return &AttemptLimiter{
		store:  store,
		config: config,
		logger: logger,
	}
}

// LoginKey builds the limiter key for a client IP
func LoginKey(ip string) string {
	return "login." + ip
}

// TooManyAttempts reports whether the key has exhausted its attempt budget
// within the current decay window.
func (l *AttemptLimiter) TooManyAttempts(ctx context.Context, key string) bool {
	count, err := l.store.Peek(ctx, key)
	if err != nil {
		l.logger.Error("failed to read attempt counter", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return count >= int64(l.config.MaxAttempts)
}

// Hit records a failed attempt, starting the decay window on the first hit
func (l *AttemptLimiter) Hit(ctx context.Context, key string) error {
	_, err := l.store.Increment(ctx, key, l.config.DecayWindow)
	return err
}

// AvailableIn returns the time remaining until the counter resets
func (l *AttemptLimiter) AvailableIn(ctx context.Context, key string) time.Duration {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		l.logger.Error("failed to read attempt counter ttl", slog.String("key", key), slog.Any("error", err))
		return 0
	}
	return ttl
}

// Clear resets the counter and cancels the decay window (successful login)
func (l *AttemptLimiter) Clear(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
