package models

import (
	"time"

	"github.com/google/uuid"
)

// Account status values
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusDisabled  = "disabled"
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`   // "user", "admin"
	Status       string    `db:"status"` // "active", "suspended", "disabled"
	// SingleDeviceLogin is the per-account opt-in for single-device enforcement.
	// Accounts without it may hold any number of active devices.
	SingleDeviceLogin bool      `db:"single_device_login"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// IsActive reports whether the account may authenticate at all.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
