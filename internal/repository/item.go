package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/xelth-com/ecklinen/internal/models"
)

// ItemRepository exposes the parts of the item registry the scan core
// reads and writes
type ItemRepository interface {
	// ListTags returns id, tag and tenant of every item of the tenant, or of
	// every tenant when tenantID is empty.
	ListTags(ctx context.Context, tenantID string) ([]models.Item, error)
	SetStatus(ctx context.Context, ids []string, status models.ItemStatus, at time.Time) error
	RecordWash(ctx context.Context, ids []string, at time.Time) error
}

type itemRepository struct {
	db *gorm.DB
}

// ListTags loads the tag registry snapshot
func (r *itemRepository) ListTags(ctx context.Context, tenantID string) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{}).Select("id", "rfid_tag", "tenant_id")
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load item registry")
	}
	return items, nil
}

// SetStatus moves every listed item to status
func (r *itemRepository) SetStatus(ctx context.Context, ids []string, status models.ItemStatus, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		}).Error
	return errors.Wrap(err, "failed to update item status")
}

// RecordWash increments the wash count and stamps the wash date
func (r *itemRepository) RecordWash(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"wash_count":     gorm.Expr("wash_count + ?", 1),
			"last_wash_date": at,
			"updated_at":     at,
		}).Error
	return errors.Wrap(err, "failed to record wash")
}
