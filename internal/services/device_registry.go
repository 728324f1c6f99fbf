package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
)

// DeviceStore defines the interface for device persistence. Admit is the
// transactional check-then-register unit; everything else is a plain query.
type DeviceStore interface {
	GetByOwnerAndFingerprint(ctx context.Context, ownerID uuid.UUID, fp string) (*models.Device, error)
	GetActiveForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Device, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Device, error)
	CountActive(ctx context.Context) (int64, error)
	Admit(ctx context.Context, ownerID uuid.UUID, enforce bool, fp string, info models.DeviceInfo, sessionID string) (*models.Device, error)
	DeactivateBySession(ctx context.Context, sessionID string) (*models.Device, error)
	DeactivateAllForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	TouchActivity(ctx context.Context, ownerID uuid.UUID, fp string, sessionID *string) error
	PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeviceDecision is the outcome of a device admission check
type DeviceDecision struct {
	Allowed        bool
	Reason         string
	BlockingDevice *models.Device
}

// DeviceRegistry owns the device lifecycle and the one-active-device-per-user
// guarantee for accounts with single-device enforcement enabled.
type DeviceRegistry struct {
	store  DeviceStore
	audit  *AuditService
	logger *slog.Logger
}

// NewDeviceRegistry creates a new DeviceRegistry
func NewDeviceRegistry(store DeviceStore, audit *AuditService, logger *slog.Logger) *DeviceRegistry {
	return &DeviceRegistry{
		store:  store,
		audit:  audit,
		logger: logger,
	}
}

// CanLoginFromDevice decides whether the presenting device may establish a
// session. This is an advisory pre-check: the authoritative re-check happens
// inside Register under the per-user admission lock, so a decision here can
// be invalidated by a concurrent login and must not be cached.
func (r *DeviceRegistry) CanLoginFromDevice(ctx context.Context, user *models.User, fp string) (*DeviceDecision, error) {
	if !user.SingleDeviceLogin {
		return &DeviceDecision{Allowed: true}, nil
	}

	existing, err := r.store.GetByOwnerAndFingerprint(ctx, user.ID, fp)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if existing != nil && existing.IsActive {
		// Same device re-login
		return &DeviceDecision{Allowed: true}, nil
	}

	active, err := r.activeDeviceFor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active device: %w", err)
	}
	if active == nil {
		// First login, or all devices released
		return &DeviceDecision{Allowed: true}, nil
	}

	return &DeviceDecision{
		Allowed:        false,
		Reason:         models.EventTypeDeviceBlocked,
		BlockingDevice: active,
	}, nil
}

// Register upserts the (user, fingerprint) device row as the active device
// and binds the session to it. Under enforcement the underlying admission is
// atomic with the active-device check; a concurrent winner causes this call
// to return DeviceBlockedError rather than a second active row.
func (r *DeviceRegistry) Register(ctx context.Context, user *models.User, fp string, info models.DeviceInfo, sessionID string) (*models.Device, error) {
	device, err := r.store.Admit(ctx, user.ID, user.SingleDeviceLogin, fp, info, sessionID)
	if err != nil {
		return nil, err
	}

	if device.OwnerUserID != user.ID {
		// Must never happen given the (owner, fingerprint) key; do not correct silently.
		return nil, fmt.Errorf("%w: device %s owned by %s, asserted %s",
			models.ErrDeviceOwnership, device.ID, device.OwnerUserID, user.ID)
	}

	r.audit.Record(ctx, &models.AuthEvent{
		ActorUserID: &user.ID,
		EventType:   models.EventTypeDeviceRegistered,
		Outcome:     models.OutcomeSuccess,
		IPAddress:   info.IPAddress,
		Metadata: models.EventMetadata{
			"device_id":    device.ID.String(),
			"device_class": device.DeviceClass,
			"browser":      device.Browser,
		},
	})

	return device, nil
}

// DeactivateBySession releases the device bound to a session. Idempotent:
// a session with no active device is a no-op.
func (r *DeviceRegistry) DeactivateBySession(ctx context.Context, sessionID, ipAddress string) error {
	device, err := r.store.DeactivateBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to deactivate device: %w", err)
	}

	r.audit.Record(ctx, &models.AuthEvent{
		ActorUserID: &device.OwnerUserID,
		EventType:   models.EventTypeDeviceDeactivated,
		Outcome:     models.OutcomeSuccess,
		IPAddress:   ipAddress,
		Metadata: models.EventMetadata{
			"device_id": device.ID.String(),
		},
	})

	return nil
}

// ResetDevicesForUser releases every active device for a user (administrative reset)
func (r *DeviceRegistry) ResetDevicesForUser(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (int64, error) {
	released, err := r.store.DeactivateAllForOwner(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset devices: %w", err)
	}

	if released > 0 {
		r.audit.Record(ctx, &models.AuthEvent{
			ActorUserID: &actorID,
			EventType:   models.EventTypeDeviceDeactivated,
			Outcome:     models.OutcomeSuccess,
			Metadata: models.EventMetadata{
				"target_user_id": userID.String(),
				"released":       released,
				"reset":          "administrative",
			},
		})
	}

	return released, nil
}

// TouchActivity refreshes last-seen state on the matching active device.
// Pings against a deactivated device are dropped, never reactivations.
func (r *DeviceRegistry) TouchActivity(ctx context.Context, userID uuid.UUID, fp string, sessionID *string) error {
	return r.store.TouchActivity(ctx, userID, fp, sessionID)
}

// activeDeviceFor returns the user's active device, or nil when none
func (r *DeviceRegistry) activeDeviceFor(ctx context.Context, userID uuid.UUID) (*models.Device, error) {
	device, err := r.store.GetActiveForOwner(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return device, err
}

// ListDevicesForUser returns all device rows for a user
func (r *DeviceRegistry) ListDevicesForUser(ctx context.Context, userID uuid.UUID) ([]*models.Device, error) {
	return r.store.ListForOwner(ctx, userID)
}

// CountActiveDevices returns the number of active devices across all users
func (r *DeviceRegistry) CountActiveDevices(ctx context.Context) (int64, error) {
	return r.store.CountActive(ctx)
}

// PurgeInactive deletes inactive devices untouched for longer than maxAge
func (r *DeviceRegistry) PurgeInactive(ctx context.Context, maxAge time.Duration) (int64, error) {
	purged, err := r.store.PurgeInactive(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		r.logger.Info("purged inactive devices", slog.Int64("count", purged))
	}
	return purged, nil
}
