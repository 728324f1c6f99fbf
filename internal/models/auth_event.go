package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types for the authentication audit trail
const (
	EventTypeRateLimited        = "rate_limited"
	EventTypeAccountLocked      = "account_locked"
	EventTypeInvalidCredentials = "invalid_credentials"
	EventTypeInactiveAccount    = "inactive_account"
	EventTypeDeviceBlocked      = "device_blocked"
	EventTypeLoginSuccess       = "login_success"
	EventTypeLogout             = "logout"
	EventTypeDeviceRegistered   = "device_registered"
	EventTypeDeviceDeactivated  = "device_deactivated"
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthEvent is an append-only audit record of a security-relevant occurrence.
// Events are written once by the gate or the registry and never updated.
type AuthEvent struct {
	ID          uuid.UUID     `db:"id"`
	ActorUserID *uuid.UUID    `db:"actor_user_id"` // nil when the account could not be resolved
	EventType   string        `db:"event_type"`
	Outcome     string        `db:"outcome"`
	IPAddress   string        `db:"ip_address"`
	UserAgent   string        `db:"user_agent"`
	Metadata    EventMetadata `db:"metadata"`
	OccurredAt  time.Time     `db:"occurred_at"`
}

// EventMetadata holds additional structured context for an event
type EventMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (em *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*em = make(EventMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*em = EventMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (em EventMetadata) Value() (driver.Value, error) {
	if em == nil {
		return nil, nil
	}
	return json.Marshal(em)
}

// MarshalJSON implements json.Marshaler
func (em EventMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(em))
}

// UnmarshalJSON implements json.Unmarshaler
func (em *EventMetadata) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*em = EventMetadata(m)
	return nil
}
