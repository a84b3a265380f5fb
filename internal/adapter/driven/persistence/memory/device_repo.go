package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

// DeviceRepository is the in-memory store used by tests and dev mode. The
// mutex gives it the same conditional-update semantics the SQL adapter gets
// from its WHERE clauses.
type DeviceRepository struct {
	mu      sync.Mutex
	byID    map[domain.DeviceID]*domain.Device
	byToken map[string]domain.DeviceID
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{
		byID:    make(map[domain.DeviceID]*domain.Device),
		byToken: make(map[string]domain.DeviceID),
	}
}

func (r *DeviceRepository) Insert(_ context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[device.Token]; ok {
		return domain.ErrDuplicateToken
	}
	cp := *device
	r.byID[cp.ID] = &cp
	r.byToken[cp.Token] = cp.ID
	return nil
}

func (r *DeviceRepository) GetByID(_ context.Context, id domain.DeviceID) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	cp := *device
	return &cp, nil
}

func (r *DeviceRepository) GetByToken(_ context.Context, token string) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *DeviceRepository) GetByOwner(_ context.Context, owner domain.OwnerID) ([]*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var devices []*domain.Device
	for _, device := range r.byID {
		if device.OwnerID == owner {
			cp := *device
			devices = append(devices, &cp)
		}
	}
	return devices, nil
}

func (r *DeviceRepository) ClaimPending(_ context.Context, token, deviceUID, localIP string, at time.Time) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	device := r.byID[id]
	if device.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyActivated
	}
	device.DeviceUID = &deviceUID
	device.LocalIP = &localIP
	device.Status = domain.StatusActive
	device.ActivatedAt = &at
	cp := *device
	return &cp, nil
}

func (r *DeviceRepository) SetPresence(_ context.Context, id domain.DeviceID, from, to domain.DeviceStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.byID[id]
	if !ok || device.Status != from {
		return false, nil
	}
	device.Status = to
	return true, nil
}

func (r *DeviceRepository) Delete(_ context.Context, id domain.DeviceID, owner domain.OwnerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.byID[id]
	if !ok || device.OwnerID != owner {
		return domain.ErrDeviceNotFound
	}
	delete(r.byID, id)
	delete(r.byToken, device.Token)
	return nil
}
