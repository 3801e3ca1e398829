package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/xelth-com/ecklinen/internal/database"
	"github.com/xelth-com/ecklinen/internal/models"
)

// ConflictFilter narrows ListConflicts. Nil fields do not filter.
type ConflictFilter struct {
	TenantID *string
	Resolved *bool
	Tag      string
	Limit    int
}

// ConflictRepository defines the interface for scan conflict repository
type ConflictRepository interface {
	Create(ctx context.Context, conflict *models.ScanConflict) error
	FindByID(ctx context.Context, id string) (*models.ScanConflict, error)
	List(ctx context.Context, filter ConflictFilter) ([]models.ScanConflict, error)
	Save(ctx context.Context, conflict *models.ScanConflict) error
}

type conflictRepository struct {
	db *gorm.DB
}

// Create inserts a conflict record
func (r *conflictRepository) Create(ctx context.Context, conflict *models.ScanConflict) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(conflict).Error, "failed to record scan conflict")
}

// FindByID loads a conflict
func (r *conflictRepository) FindByID(ctx context.Context, id string) (*models.ScanConflict, error) {
	var conflict models.ScanConflict
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conflict).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load scan conflict")
	}
	return &conflict, nil
}

// List returns conflicts newest first
func (r *conflictRepository) List(ctx context.Context, filter ConflictFilter) ([]models.ScanConflict, error) {
	query := r.db.WithContext(ctx).Model(&models.ScanConflict{})
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Resolved != nil {
		query = query.Where("is_resolved = ?", *filter.Resolved)
	}
	if filter.Tag != "" {
		query = query.Where("rfid_tag = ?", filter.Tag)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var conflicts []models.ScanConflict
	if err := query.Order("created_at DESC, id ASC").Find(&conflicts).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list scan conflicts")
	}
	return conflicts, nil
}

// Save writes every column of the conflict
func (r *conflictRepository) Save(ctx context.Context, conflict *models.ScanConflict) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(conflict).Error, "failed to save scan conflict")
}
