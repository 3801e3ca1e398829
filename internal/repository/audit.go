package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/xelth-com/ecklinen/internal/models"
)

// AuditRepository persists audit records
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(entry).Error, "failed to write audit log")
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).Where("entity_id = ?", entityID).Order("id").Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit logs")
	}
	return entries, nil
}
