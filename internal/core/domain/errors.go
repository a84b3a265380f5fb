package domain

import "errors"

var (
	// ErrInvalidInput marks caller mistakes: empty or malformed fields the
	// constructors reject. HTTP maps it to a 400, never a 500.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenNotFound covers both "never issued" and "record deleted". The two
	// are indistinguishable to callers so the endpoint cannot be used as a
	// token-guessing oracle.
	ErrTokenNotFound = errors.New("device token not found")
	// ErrAlreadyActivated is what race losers and legitimate camera retries see.
	// A consumed token keeps returning it indefinitely.
	ErrAlreadyActivated = errors.New("device already activated")
	// ErrUnknownDevice rejects relay registrations for devices that never
	// reached activation.
	ErrUnknownDevice = errors.New("unknown device")

	ErrDeviceNotFound = errors.New("device not found")
	ErrDuplicateToken = errors.New("device token already in use")

	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
