package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DrewHollis/gatehouse/internal/database"
	"github.com/DrewHollis/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const deviceColumns = `id, owner_user_id, fingerprint, display_name, browser, browser_version,
	platform, device_class, ip_address, session_id, is_active, last_activity_at, created_at, updated_at`

// DeviceRepository handles database operations for the device registry
type DeviceRepository struct {
	db *database.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *database.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func scanDeviceRow(row rowScanner) (*models.Device, error) {
	var d models.Device
	err := row.Scan(
		&d.ID, &d.OwnerUserID, &d.Fingerprint, &d.DisplayName, &d.Browser, &d.BrowserVersion,
		&d.Platform, &d.DeviceClass, &d.IPAddress, &d.SessionID, &d.IsActive,
		&d.LastActivityAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &d, nil
}

func scanDeviceRows(rows pgx.Rows) ([]*models.Device, error) {
	defer rows.Close()

	devices := make([]*models.Device, 0)
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device rows: %w", err)
	}

	return devices, nil
}

// GetByOwnerAndFingerprint retrieves the device row for a (user, fingerprint) pair
func (r *DeviceRepository) GetByOwnerAndFingerprint(ctx context.Context, ownerID uuid.UUID, fp string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE owner_user_id = $1 AND fingerprint = $2`
	return scanDeviceRow(r.db.Pool.QueryRow(ctx, query, ownerID, fp))
}

// GetActiveForOwner returns the user's active device, or ErrNotFound if none.
// Two active rows for one user would break the single-device guarantee, so
// that case is surfaced as an error rather than quietly picking one.
func (r *DeviceRepository) GetActiveForOwner(ctx context.Context, ownerID uuid.UUID) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE owner_user_id = $1 AND is_active = true`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active device: %w", err)
	}

	devices, err := scanDeviceRows(rows)
	if err != nil {
		return nil, err
	}

	switch len(devices) {
	case 0:
		return nil, models.ErrNotFound
	case 1:
		return devices[0], nil
	default:
		return nil, fmt.Errorf("integrity violation: user %s has %d active devices", ownerID, len(devices))
	}
}

// ListForOwner retrieves all device rows for a user, most recently seen first
func (r *DeviceRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE owner_user_id = $1 ORDER BY last_activity_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}

	return scanDeviceRows(rows)
}

// CountActive returns the number of active devices across all users
func (r *DeviceRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM devices WHERE is_active = true`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active devices: %w", err)
	}
	return count, nil
}

// Admit performs the check-then-register unit for device admission. It runs in
// a single transaction holding a per-user advisory lock, so two concurrent
// logins for the same user cannot both observe "no active device": the loser
// waits on the lock and then sees the winner's row, receiving
// DeviceBlockedError. Unrelated users never contend.
//
// When enforce is false the active-device check is skipped and the row is
// simply upserted.
func (r *DeviceRepository) Admit(ctx context.Context, ownerID uuid.UUID, enforce bool, fp string, info models.DeviceInfo, sessionID string) (*models.Device, error) {
	var admitted *models.Device

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Serialize admissions per user. The lock key is derived from the
		// user id alone so different users never share a lock.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ownerID.String()); err != nil {
			return fmt.Errorf("failed to take user admission lock: %w", err)
		}

		if enforce {
			row := tx.QueryRow(ctx,
				`SELECT `+deviceColumns+` FROM devices
				 WHERE owner_user_id = $1 AND is_active = true AND fingerprint <> $2
				 LIMIT 1`,
				ownerID, fp,
			)
			blocking, err := scanDeviceRow(row)
			if err == nil {
				return &models.DeviceBlockedError{Blocking: blocking}
			}
			if !errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("failed to check active device: %w", err)
			}
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO devices (
				owner_user_id, fingerprint, display_name, browser, browser_version,
				platform, device_class, ip_address, session_id, is_active, last_activity_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, CURRENT_TIMESTAMP)
			ON CONFLICT (owner_user_id, fingerprint) DO UPDATE SET
				display_name     = EXCLUDED.display_name,
				browser          = EXCLUDED.browser,
				browser_version  = EXCLUDED.browser_version,
				platform         = EXCLUDED.platform,
				device_class     = EXCLUDED.device_class,
				ip_address       = EXCLUDED.ip_address,
				session_id       = EXCLUDED.session_id,
				is_active        = true,
				last_activity_at = CURRENT_TIMESTAMP,
				updated_at       = CURRENT_TIMESTAMP
			RETURNING `+deviceColumns,
			ownerID, fp, info.DisplayName, info.Browser, info.BrowserVersion,
			info.Platform, info.DeviceClass, info.IPAddress, sessionID,
		)

		device, err := scanDeviceRow(row)
		if err != nil {
			return fmt.Errorf("failed to register device: %w", err)
		}

		admitted = device
		return nil
	})
	if err != nil {
		return nil, err
	}

	return admitted, nil
}

// DeactivateBySession releases the device owning the given session. Returns
// the deactivated device, or ErrNotFound when no active device owns it
// (already released, expired session).
func (r *DeviceRepository) DeactivateBySession(ctx context.Context, sessionID string) (*models.Device, error) {
	query := `
		UPDATE devices
		SET is_active = false, session_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = $1 AND is_active = true
		RETURNING ` + deviceColumns

	return scanDeviceRow(r.db.Pool.QueryRow(ctx, query, sessionID))
}

// DeactivateAllForOwner releases every active device for a user (administrative reset)
func (r *DeviceRepository) DeactivateAllForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	query := `
		UPDATE devices
		SET is_active = false, session_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE owner_user_id = $1 AND is_active = true
	`

	tag, err := r.db.Pool.Exec(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate devices: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TouchActivity refreshes last_activity_at (and session_id when supplied) on
// the matching active device. Inactive devices are left untouched so a
// background ping can never silently reactivate a released device.
func (r *DeviceRepository) TouchActivity(ctx context.Context, ownerID uuid.UUID, fp string, sessionID *string) error {
	query := `
		UPDATE devices
		SET last_activity_at = CURRENT_TIMESTAMP,
		    session_id = COALESCE($3, session_id),
		    updated_at = CURRENT_TIMESTAMP
		WHERE owner_user_id = $1 AND fingerprint = $2 AND is_active = true
	`

	_, err := r.db.Pool.Exec(ctx, query, ownerID, fp, sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch device activity: %w", err)
	}
	return nil
}

// PurgeInactive deletes inactive devices last updated before the cutoff.
// Active devices are never touched.
func (r *DeviceRepository) PurgeInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM devices WHERE is_active = false AND updated_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge inactive devices: %w", err)
	}
	return tag.RowsAffected(), nil
}
