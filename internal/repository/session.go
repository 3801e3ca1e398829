package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/ecklinen/internal/database"
	"github.com/xelth-com/ecklinen/internal/models"
)

// SessionRepository defines the interface for scan session repository
type SessionRepository interface {
	Create(ctx context.Context, session *models.ScanSession) error
	FindByID(ctx context.Context, id string) (*models.ScanSession, error)
	FindForUpdate(ctx context.Context, id string) (*models.ScanSession, error)
	FindWithEvents(ctx context.Context, id string) (*models.ScanSession, error)
	Save(ctx context.Context, session *models.ScanSession) error
	UpdateItemCount(ctx context.Context, id string, count int) error
	ListRecentByDevice(ctx context.Context, deviceID string, limit int) ([]models.ScanSession, error)
	CountByDevice(ctx context.Context, deviceID string, status models.SessionStatus) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// Create inserts a new session
func (r *sessionRepository) Create(ctx context.Context, session *models.ScanSession) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(session).Error, "failed to create scan session")
}

// FindByID loads a session without its events
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*models.ScanSession, error) {
	var session models.ScanSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load scan session")
	}
	return &session, nil
}

// FindForUpdate loads a session and holds its row lock until the
// surrounding transaction ends. sqlite ignores the lock clause and
// serializes writers instead.
func (r *sessionRepository) FindForUpdate(ctx context.Context, id string) (*models.ScanSession, error) {
	var session models.ScanSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to lock scan session")
	}
	return &session, nil
}

// FindWithEvents loads a session and its events ordered by capture time
func (r *sessionRepository) FindWithEvents(ctx context.Context, id string) (*models.ScanSession, error) {
	var session models.ScanSession
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("scanned_at ASC, rfid_tag ASC")
		}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to load scan session")
	}
	return &session, nil
}

// Save writes every column of the session; associations are left alone
func (r *sessionRepository) Save(ctx context.Context, session *models.ScanSession) error {
	err := r.db.WithContext(ctx).Omit("Events").Save(session).Error
	return errors.Wrap(err, "failed to save scan session")
}

// UpdateItemCount stores the denormalized distinct tag count
func (r *sessionRepository) UpdateItemCount(ctx context.Context, id string, count int) error {
	err := r.db.WithContext(ctx).
		Model(&models.ScanSession{}).
		Where("id = ?", id).
		Update("item_count", count).Error
	return errors.Wrap(err, "failed to update item count")
}

// ListRecentByDevice returns the newest sessions of a device
func (r *sessionRepository) ListRecentByDevice(ctx context.Context, deviceID string, limit int) ([]models.ScanSession, error) {
	var sessions []models.ScanSession
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list device sessions")
	}
	return sessions, nil
}

// CountByDevice counts a device's sessions in the given status
func (r *sessionRepository) CountByDevice(ctx context.Context, deviceID string, status models.SessionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanSession{}).
		Where("device_id = ? AND status = ?", deviceID, status).
		Count(&count).Error
	return count, errors.Wrap(err, "failed to count device sessions")
}
