package domain

import (
	"github.com/google/uuid"
)

// IDs are plain UUIDs so the persistence adapters can bind them directly.
type (
	DeviceID = uuid.UUID
	OwnerID  = uuid.UUID
)

func NewDeviceID() DeviceID {
	return uuid.New()
}

func NewOwnerID() OwnerID {
	return uuid.New()
}

func ParseDeviceID(s string) (DeviceID, error) {
	return uuid.Parse(s)
}

func ParseOwnerID(s string) (OwnerID, error) {
	return uuid.Parse(s)
}

// NewDeviceToken returns the single-use activation secret handed to the camera
// inside the provisioning payload. A v4 UUID carries 122 bits of crypto-random
// entropy, which keeps collisions negligible for the store's lifetime volume.
func NewDeviceToken() string {
	return uuid.NewString()
}
