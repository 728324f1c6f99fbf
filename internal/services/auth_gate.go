package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DrewHollis/gatehouse/internal/fingerprint"
	"github.com/DrewHollis/gatehouse/internal/models"
	pkgauth "github.com/DrewHollis/gatehouse/pkg/auth"
	"github.com/google/uuid"
)

// UserStore defines the account lookup the gate needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionIssuer establishes a session for an authenticated user
type SessionIssuer interface {
	Issue(user *models.User, sessionID string) (string, error)
}

// RequestContext carries the request attributes the gate consumes
type RequestContext struct {
	IPAddress      string
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
}

func (rc RequestContext) fingerprintAttributes() fingerprint.Attributes {
	return fingerprint.Attributes{
		UserAgent:      rc.UserAgent,
		AcceptLanguage: rc.AcceptLanguage,
		AcceptEncoding: rc.AcceptEncoding,
		IPAddress:      rc.IPAddress,
	}
}

// LoginResult is the success arm of a login attempt
type LoginResult struct {
	User         *models.User
	Device       *models.Device
	SessionID    string
	SessionToken string
}

// LoginDenial is the denial arm: a stable reason code plus optional
// self-resolution detail. It never carries another session's credentials.
type LoginDenial struct {
	Reason         string
	RetryAfter     time.Duration
	BlockingDevice *models.DeviceSummary
}

// AuthGate orchestrates the login decision pipeline: rate limit, account
// lock, credential check, account-active check, device admission. Each
// denial path records exactly one audit event before returning.
type AuthGate struct {
	users    UserStore
	limiter  *AttemptLimiter
	guard    *AccountLockGuard
	registry *DeviceRegistry
	sessions SessionIssuer
	audit    *AuditService
	logger   *slog.Logger
}

// NewAuthGate creates a new AuthGate
func NewAuthGate(
	users UserStore,
	limiter *AttemptLimiter,
	guard *AccountLockGuard,
	registry *DeviceRegistry,
	sessions SessionIssuer,
	audit *AuditService,
	logger *slog.Logger,
) *AuthGate {
	return &AuthGate{
		users:    users,
		limiter:  limiter,
		guard:    guard,
		registry: registry,
		sessions: sessions,
		audit:    audit,
		logger:   logger,
	}
}

// AttemptLogin runs the login pipeline. Exactly one of result and denial is
// non-nil on a nil error; a non-nil error means the decision could not be
// made at all (storage failure), not that the login was denied.
func (g *AuthGate) AttemptLogin(ctx context.Context, email, password string, reqCtx RequestContext) (*LoginResult, *LoginDenial, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	limiterKey := LoginKey(reqCtx.IPAddress)

	// 1. Rate check
	if g.limiter.TooManyAttempts(ctx, limiterKey) {
		retryAfter := g.limiter.AvailableIn(ctx, limiterKey)
		g.recordDenial(ctx, nil, models.EventTypeRateLimited, reqCtx, models.EventMetadata{
			"retry_after_seconds": int(retryAfter.Seconds()),
		})
		return nil, &LoginDenial{Reason: models.EventTypeRateLimited, RetryAfter: retryAfter}, nil
	}

	// 2. Lock check
	if g.guard.IsLocked(ctx, email) {
		retryAfter := g.guard.LockedFor(ctx, email)
		g.recordDenial(ctx, nil, models.EventTypeAccountLocked, reqCtx, models.EventMetadata{
			"retry_after_seconds": int(retryAfter.Seconds()),
		})
		return nil, &LoginDenial{Reason: models.EventTypeAccountLocked, RetryAfter: retryAfter}, nil
	}

	// 3. Resolve account. An unknown identity follows the same path as a
	// wrong secret so responses cannot be used for account enumeration.
	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, g.denyInvalidCredentials(ctx, nil, email, limiterKey, reqCtx), nil
		}
		g.logger.Error("failed to resolve account", slog.Any("error", err))
		return nil, nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	// 4. Verify credential
	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, g.denyInvalidCredentials(ctx, &user.ID, email, limiterKey, reqCtx), nil
	}

	// 5. Active-account check. A policy failure, not a credential failure:
	// no limiter or lock interaction.
	if !user.IsActive() {
		g.recordDenial(ctx, &user.ID, models.EventTypeInactiveAccount, reqCtx, models.EventMetadata{
			"status": user.Status,
		})
		return nil, &LoginDenial{Reason: models.EventTypeInactiveAccount}, nil
	}

	fp := fingerprint.Compute(reqCtx.fingerprintAttributes())

	// 6. Device check. Blocked-device attempts do not consume the attempt
	// budget; they are policy denials like step 5.
	decision, err := g.registry.CanLoginFromDevice(ctx, user, fp)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, g.denyDeviceBlocked(ctx, user, decision.BlockingDevice, reqCtx), nil
	}

	// 7. Commit
	if err := g.limiter.Clear(ctx, limiterKey); err != nil {
		g.logger.Error("failed to clear attempt counter", slog.Any("error", err))
	}
	if err := g.guard.RecordSuccess(ctx, email); err != nil {
		g.logger.Error("failed to reset lock state", slog.Any("error", err))
	}

	sessionID := uuid.New().String()
	info := fingerprint.ParseDeviceInfo(reqCtx.UserAgent, reqCtx.IPAddress)

	device, err := g.registry.Register(ctx, user, fp, info, sessionID)
	if err != nil {
		var blocked *models.DeviceBlockedError
		if errors.As(err, &blocked) {
			// Lost the admission race to a concurrent login.
			return nil, g.denyDeviceBlocked(ctx, user, blocked.Blocking, reqCtx), nil
		}
		return nil, nil, err
	}

	token, err := g.sessions.Issue(user, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to establish session: %w", err)
	}

	g.audit.Record(ctx, &models.AuthEvent{
		ActorUserID: &user.ID,
		EventType:   models.EventTypeLoginSuccess,
		Outcome:     models.OutcomeSuccess,
		IPAddress:   reqCtx.IPAddress,
		UserAgent:   reqCtx.UserAgent,
		Metadata: models.EventMetadata{
			"device_id": device.ID.String(),
		},
	})

	return &LoginResult{
		User:         user,
		Device:       device,
		SessionID:    sessionID,
		SessionToken: token,
	}, nil, nil
}

// Logout releases the device bound to the session and records the event.
// Safe to call for sessions that no longer own a device.
func (g *AuthGate) Logout(ctx context.Context, userID uuid.UUID, sessionID string, reqCtx RequestContext) error {
	if err := g.registry.DeactivateBySession(ctx, sessionID, reqCtx.IPAddress); err != nil {
		return err
	}

	g.audit.Record(ctx, &models.AuthEvent{
		ActorUserID: &userID,
		EventType:   models.EventTypeLogout,
		Outcome:     models.OutcomeSuccess,
		IPAddress:   reqCtx.IPAddress,
		UserAgent:   reqCtx.UserAgent,
	})

	return nil
}

func (g *AuthGate) denyInvalidCredentials(ctx context.Context, actorID *uuid.UUID, email, limiterKey string, reqCtx RequestContext) *LoginDenial {
	if err := g.limiter.Hit(ctx, limiterKey); err != nil {
		g.logger.Error("failed to record attempt", slog.Any("error", err))
	}
	if err := g.guard.RecordFailure(ctx, email, models.EventTypeInvalidCredentials); err != nil {
		g.logger.Error("failed to record account failure", slog.Any("error", err))
	}

	g.recordDenial(ctx, actorID, models.EventTypeInvalidCredentials, reqCtx, nil)
	return &LoginDenial{Reason: models.EventTypeInvalidCredentials}
}

func (g *AuthGate) denyDeviceBlocked(ctx context.Context, user *models.User, blocking *models.Device, reqCtx RequestContext) *LoginDenial {
	metadata := models.EventMetadata{}
	if blocking != nil {
		metadata["blocking_device_id"] = blocking.ID.String()
	}
	g.recordDenial(ctx, &user.ID, models.EventTypeDeviceBlocked, reqCtx, metadata)

	denial := &LoginDenial{Reason: models.EventTypeDeviceBlocked}
	if blocking != nil {
		denial.BlockingDevice = blocking.Summary()
	}
	return denial
}

func (g *AuthGate) recordDenial(ctx context.Context, actorID *uuid.UUID, reason string, reqCtx RequestContext, metadata models.EventMetadata) {
	g.audit.Record(ctx, &models.AuthEvent{
		ActorUserID: actorID,
		EventType:   reason,
		Outcome:     models.OutcomeFailure,
		IPAddress:   reqCtx.IPAddress,
		UserAgent:   reqCtx.UserAgent,
		Metadata:    metadata,
	})
}
