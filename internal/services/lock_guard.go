package services

import (
	"context"
	"log/slog"
	"time"

	pkglogger "github.com/DrewHollis/gatehouse/pkg/logger"
)

// LockGuardConfig holds account lockout tuning. Defaults used by the service
// are threshold 5 and a 15 minute lock (see internal/config).
type LockGuardConfig struct {
	Threshold    int
	LockDuration time.Duration
}

// AccountLockGuard tracks consecutive failed attempts per account identity
// and enforces a temporary lockout once the threshold is crossed. A single
// success resets the counter to zero.
type AccountLockGuard struct {
	store  CounterStore
	config LockGuardConfig
	logger *slog.Logger
}

// NewAccountLockGuard creates a new AccountLockGuard
func NewAccountLockGuard(store CounterStore, config LockGuardConfig, logger *slog.Logger) *AccountLockGuard {
	return &AccountLockGuard{
		store:  store,
		config: config,
		logger: logger,
	}
}

func failureKey(accountKey string) string {
	return "lockout.fails." + accountKey
}

func holdKey(accountKey string) string {
	return "lockout.hold." + accountKey
}

// IsLocked reports whether the account is currently held locked. The hold
// key is stamped when the failure count crosses the threshold and expires
// after the lock duration.
func (g *AccountLockGuard) IsLocked(ctx context.Context, accountKey string) bool {
	count, err := g.store.Peek(ctx, holdKey(accountKey))
	if err != nil {
		g.logger.Error("failed to read lock state", slog.Any("error", err))
		return false
	}
	return count > 0
}

// LockedFor returns the time remaining on the lock, zero when unlocked
func (g *AccountLockGuard) LockedFor(ctx context.Context, accountKey string) time.Duration {
	ttl, err := g.store.TTL(ctx, holdKey(accountKey))
	if err != nil {
		g.logger.Error("failed to read lock ttl", slog.Any("error", err))
		return 0
	}
	return ttl
}

// RecordFailure increments the consecutive-failure counter and stamps the
// lock when the count reaches the threshold.
func (g *AccountLockGuard) RecordFailure(ctx context.Context, accountKey, reason string) error {
	count, err := g.store.Increment(ctx, failureKey(accountKey), g.config.LockDuration)
	if err != nil {
		return err
	}

	if count < int64(g.config.Threshold) {
		return nil
	}

	// Stamp the hold only if one is not already running, so repeated
	// failures during an active lock do not extend it.
	held, err := g.store.Peek(ctx, holdKey(accountKey))
	if err != nil {
		return err
	}
	if held == 0 {
		if _, err := g.store.Increment(ctx, holdKey(accountKey), g.config.LockDuration); err != nil {
			return err
		}
		g.logger.Warn("account locked",
			slog.String("account", pkglogger.SanitizedEmail(accountKey)),
			slog.String("reason", reason),
			slog.Int64("failures", count),
			slog.Duration("lock_duration", g.config.LockDuration),
		)
	}

	return nil
}

// RecordSuccess resets the failure counter and clears any lock state
func (g *AccountLockGuard) RecordSuccess(ctx context.Context, accountKey string) error {
	if err := g.store.Reset(ctx, failureKey(accountKey)); err != nil {
		return err
	}
	return g.store.Reset(ctx, holdKey(accountKey))
}
