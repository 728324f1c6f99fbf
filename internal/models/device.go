package models

import (
	"time"

	"github.com/google/uuid"
)

// Device classes derived from the user agent
const (
	DeviceClassDesktop = "desktop"
	DeviceClassMobile  = "mobile"
	DeviceClassTablet  = "tablet"
)

// Device represents one physical device or browser bound to a user. A row is
// unique per (owner_user_id, fingerprint); at most one row per owner may be
// active at a time for accounts with single-device enforcement.
type Device struct {
	ID             uuid.UUID `db:"id"`
	OwnerUserID    uuid.UUID `db:"owner_user_id"`
	Fingerprint    string    `db:"fingerprint"`
	DisplayName    string    `db:"display_name"`
	Browser        string    `db:"browser"`
	BrowserVersion string    `db:"browser_version"`
	Platform       string    `db:"platform"`
	DeviceClass    string    `db:"device_class"`
	IPAddress      string    `db:"ip_address"`
	// SessionID is the session currently owning this device; nil whenever
	// the device is inactive.
	SessionID      *string   `db:"session_id"`
	IsActive       bool      `db:"is_active"`
	LastActivityAt time.Time `db:"last_activity_at"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// DeviceInfo is the closed set of device attributes captured at login.
// Anything the client supplies beyond these fields is dropped, not stored.
type DeviceInfo struct {
	DisplayName    string
	Browser        string
	BrowserVersion string
	Platform       string
	DeviceClass    string
	IPAddress      string
}

// DeviceSummary is the non-sensitive descriptor surfaced to a user whose
// login is blocked by another device. It never carries the session id.
type DeviceSummary struct {
	DisplayName string    `json:"display_name"`
	Browser     string    `json:"browser"`
	Platform    string    `json:"platform"`
	DeviceClass string    `json:"device_class"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Summary converts a device to its public descriptor.
func (d *Device) Summary() *DeviceSummary {
	return &DeviceSummary{
		DisplayName: d.DisplayName,
		Browser:     d.Browser,
		Platform:    d.Platform,
		DeviceClass: d.DeviceClass,
		LastSeenAt:  d.LastActivityAt,
	}
}
