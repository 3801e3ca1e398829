package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/xelth-com/ecklinen/internal/database"
	"github.com/xelth-com/ecklinen/internal/models"
)

// DeviceRepository defines the interface for device repository
type DeviceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	Save(ctx context.Context, device *models.Device) error
	Touch(ctx context.Context, id string, seenAt time.Time, syncedAt *time.Time) error
}

type deviceRepository struct {
	db *gorm.DB
}

// FindByID finds a device by its UUID
func (r *deviceRepository) FindByID(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&device).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load device")
	}
	return &device, nil
}

// Create inserts a new device
func (r *deviceRepository) Create(ctx context.Context, device *models.Device) error {
	if err := r.db.WithContext(ctx).Create(device).Error; err != nil {
		if database.IsDuplicateError(err) {
			return ErrDuplicateKey
		}
		return errors.Wrap(err, "failed to create device")
	}
	return nil
}

// Save updates every column of an existing device
func (r *deviceRepository) Save(ctx context.Context, device *models.Device) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(device).Error, "failed to save device")
}

// Touch stamps last-seen and, when syncedAt is set, last-sync timestamps
func (r *deviceRepository) Touch(ctx context.Context, id string, seenAt time.Time, syncedAt *time.Time) error {
	updates := map[string]interface{}{"last_seen_at": seenAt}
	if syncedAt != nil {
		updates["last_sync_at"] = *syncedAt
	}
	res := r.db.WithContext(ctx).Model(&models.Device{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to touch device")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
