package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Insert(ctx context.Context, device *domain.Device) error {
	err := r.db.WithContext(ctx).Create(device).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateToken
	}
	return err
}

func (r *DeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	var device domain.Device
	if err := r.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) GetByToken(ctx context.Context, token string) (*domain.Device, error) {
	var device domain.Device
	if err := r.db.WithContext(ctx).First(&device, "device_token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) GetByOwner(ctx context.Context, owner domain.OwnerID) ([]*domain.Device, error) {
	var devices []*domain.Device
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at").
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// ClaimPending is the one irreversible transition. The WHERE clause doubles as
// a compare-and-swap: of N concurrent claims on the same token, exactly one
// UPDATE matches a pending row, everyone else sees RowsAffected == 0 and is
// classified by a follow-up read.
func (r *DeviceRepository) ClaimPending(ctx context.Context, token, deviceUID, localIP string, at time.Time) (*domain.Device, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("device_token = ? AND status = ?", token, domain.StatusPending).
		Updates(map[string]interface{}{
			"device_uid":   deviceUID,
			"local_ip":     localIP,
			"status":       domain.StatusActive,
			"activated_at": at,
		})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		if _, err := r.GetByToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyActivated
	}
	return r.GetByToken(ctx, token)
}

func (r *DeviceRepository) SetPresence(ctx context.Context, id domain.DeviceID, from, to domain.DeviceStatus) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *DeviceRepository) Delete(ctx context.Context, id domain.DeviceID, owner domain.OwnerID) error {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&domain.Device{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}
