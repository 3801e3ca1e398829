package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/ecklinen/internal/models"
)

// ClaimQuery selects synced observations of a tag by other sessions that
// may contradict a new one
type ClaimQuery struct {
	Tag              string
	SessionType      models.SessionType
	ExcludeSessionID string
	// ExcludeDeviceID drops claims recorded by the same device. Sessions
	// without a device are never excluded.
	ExcludeDeviceID *string
}

// Claim is an existing synced observation of a tag
type Claim struct {
	EventID   string
	SessionID string
	DeviceID  *string
	ScannedAt time.Time
}

// EventRepository defines the interface for scan event repository
type EventRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.ScanEvent, error)
	FindBySessionAndTags(ctx context.Context, sessionID string, tags []string) ([]models.ScanEvent, error)
	CreateBatch(ctx context.Context, events []models.ScanEvent) error
	MergeBatch(ctx context.Context, events []models.ScanEvent) error
	UpdateReading(ctx context.Context, id string, readCount int, signal *float64) error
	UpdateResolution(ctx context.Context, id string, itemID *string, status models.EventSyncStatus) error
	CountBySession(ctx context.Context, sessionID string) (int64, error)
	CountByDeviceAndStatus(ctx context.Context, deviceID string, status models.EventSyncStatus) (int64, error)
	FindLatestClaim(ctx context.Context, q ClaimQuery) (*Claim, error)
}

type eventRepository struct {
	db *gorm.DB
}

// ListBySession returns all events of a session
func (r *eventRepository) ListBySession(ctx context.Context, sessionID string) ([]models.ScanEvent, error) {
	var events []models.ScanEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("scanned_at ASC, rfid_tag ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scan events")
	}
	return events, nil
}

// FindBySessionAndTags returns the session's events for the given tags
func (r *eventRepository) FindBySessionAndTags(ctx context.Context, sessionID string, tags []string) ([]models.ScanEvent, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	var events []models.ScanEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND rfid_tag IN ?", sessionID, tags).
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find scan events")
	}
	return events, nil
}

// CreateBatch inserts new events
func (r *eventRepository) CreateBatch(ctx context.Context, events []models.ScanEvent) error {
	if len(events) == 0 {
		return nil
	}
	return errors.Wrap(r.db.WithContext(ctx).Create(&events).Error, "failed to insert scan events")
}

// strongerSignal keeps the larger of the stored and incoming strength; a
// missing value never replaces a reported one
const strongerSignal = `CASE
	WHEN excluded.signal_strength IS NULL THEN scan_events.signal_strength
	WHEN scan_events.signal_strength IS NULL OR excluded.signal_strength > scan_events.signal_strength THEN excluded.signal_strength
	ELSE scan_events.signal_strength
END`

// MergeBatch inserts events; a tag the session already holds gets one more
// read and the stronger signal instead of a duplicate row
func (r *eventRepository) MergeBatch(ctx context.Context, events []models.ScanEvent) error {
	if len(events) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "rfid_tag"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"read_count":      gorm.Expr("scan_events.read_count + 1"),
				"signal_strength": gorm.Expr(strongerSignal),
			}),
		}).
		Create(&events).Error
	return errors.Wrap(err, "failed to merge scan events")
}

// UpdateReading stores a merged read count and signal strength
func (r *eventRepository) UpdateReading(ctx context.Context, id string, readCount int, signal *float64) error {
	err := r.db.WithContext(ctx).
		Model(&models.ScanEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"read_count":      readCount,
			"signal_strength": signal,
		}).Error
	return errors.Wrap(err, "failed to update scan event")
}

// UpdateResolution links an event to an item and sets its sync status
func (r *eventRepository) UpdateResolution(ctx context.Context, id string, itemID *string, status models.EventSyncStatus) error {
	err := r.db.WithContext(ctx).
		Model(&models.ScanEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"item_id":     itemID,
			"sync_status": status,
		}).Error
	return errors.Wrap(err, "failed to resolve scan event")
}

// CountBySession counts the distinct tags recorded in a session
func (r *eventRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanEvent{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, errors.Wrap(err, "failed to count scan events")
}

// CountByDeviceAndStatus counts events in a device's sessions by sync status
func (r *eventRepository) CountByDeviceAndStatus(ctx context.Context, deviceID string, status models.EventSyncStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanEvent{}).
		Joins("JOIN scan_sessions ON scan_sessions.id = scan_events.session_id").
		Where("scan_sessions.device_id = ? AND scan_events.sync_status = ?", deviceID, status).
		Count(&count).Error
	return count, errors.Wrap(err, "failed to count device events")
}

const claimColumns = `scan_events.id AS event_id, scan_events.session_id AS session_id,
	scan_sessions.device_id AS device_id, scan_events.scanned_at AS scanned_at`

// FindLatestClaim returns the most recently captured synced event matching q,
// or nil when there is none. Callers apply their own time window to it.
func (r *eventRepository) FindLatestClaim(ctx context.Context, q ClaimQuery) (*Claim, error) {
	query := r.db.WithContext(ctx).
		Table("scan_events").
		Select(claimColumns).
		Joins("JOIN scan_sessions ON scan_sessions.id = scan_events.session_id").
		Where("scan_events.rfid_tag = ?", q.Tag).
		Where("scan_events.sync_status = ?", models.EventSyncSynced).
		Where("scan_sessions.type = ?", q.SessionType).
		Where("scan_events.session_id <> ?", q.ExcludeSessionID)

	if q.ExcludeDeviceID != nil {
		query = query.Where("(scan_sessions.device_id IS NULL OR scan_sessions.device_id <> ?)", *q.ExcludeDeviceID)
	}

	var claims []Claim
	if err := query.Order("scan_events.scanned_at DESC").Limit(1).Scan(&claims).Error; err != nil {
		return nil, errors.Wrap(err, "failed to look up earlier claims")
	}
	if len(claims) == 0 {
		return nil, nil
	}
	return &claims[0], nil
}
