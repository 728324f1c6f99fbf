package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrBadRequest = errors.New("bad request")

	// ErrDeviceBlocked is the sentinel DeviceBlockedError unwraps to; other
	// login denials travel as LoginDenial reason codes, not errors.
	ErrDeviceBlocked = errors.New("another device holds the active session")

	// ErrDeviceOwnership signals a (user, fingerprint) row owned by a different
	// user than the caller asserts. This should be impossible given the unique
	// constraint; treat it as an invariant violation, never correct it silently.
	ErrDeviceOwnership = errors.New("device belongs to a different user")
)

// DeviceBlockedError carries the device holding the active session so callers
// can describe which device is blocking without exposing its session.
type DeviceBlockedError struct {
	Blocking *Device
}

func (e *DeviceBlockedError) Error() string {
	return ErrDeviceBlocked.Error()
}

func (e *DeviceBlockedError) Unwrap() error {
	return ErrDeviceBlocked
}
