package port

import (
	"context"
	"time"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

// DeviceRepository is the keyed store behind onboarding and activation.
// Implementations must translate their own not-found/duplicate errors into the
// domain sentinels, and must make ClaimPending and SetPresence per-record
// conditional updates: two concurrent claims on one token may never both
// observe pending.
type DeviceRepository interface {
	Insert(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error)
	GetByToken(ctx context.Context, token string) (*domain.Device, error)
	GetByOwner(ctx context.Context, owner domain.OwnerID) ([]*domain.Device, error)

	// ClaimPending atomically moves the record for token from pending to
	// active, recording the hardware identity the camera reported. It returns
	// domain.ErrTokenNotFound when no record carries the token and
	// domain.ErrAlreadyActivated when the record exists but already left
	// pending.
	ClaimPending(ctx context.Context, token, deviceUID, localIP string, at time.Time) (*domain.Device, error)

	// SetPresence flips status from -> to for one device and reports whether
	// the flip applied. A record not currently in from is left untouched.
	SetPresence(ctx context.Context, id domain.DeviceID, from, to domain.DeviceStatus) (bool, error)

	Delete(ctx context.Context, id domain.DeviceID, owner domain.OwnerID) error
}

type UserRepository interface {
	Insert(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id domain.OwnerID) (*domain.User, error)
}
