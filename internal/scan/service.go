// Package scan implements scan session capture and reconciliation: the
// session lifecycle, bulk ingest of live readings, offline batch replay with
// conflict detection, and device sync bookkeeping.
package scan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/config"
	"github.com/xelth-com/ecklinen/internal/metrics"
	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/projection"
	"github.com/xelth-com/ecklinen/internal/repository"
	"github.com/xelth-com/ecklinen/internal/rfid"
)

// AuditSink receives audit records. Record must not block.
type AuditSink interface {
	Record(entry models.AuditLog)
}

// Options tunes the service
type Options struct {
	ConflictWindow     time.Duration
	MaxReadings        int
	MaxOfflineSessions int
	RecentSessions     int
}

// OptionsFrom maps configuration to Options
func OptionsFrom(cfg config.ScanConfig) Options {
	return Options{
		ConflictWindow:     cfg.ConflictWindow,
		MaxReadings:        cfg.MaxReadings,
		MaxOfflineSessions: cfg.MaxOfflineSessions,
		RecentSessions:     cfg.RecentSessions,
	}
}

// DefaultOptions returns the defaults used when configuration is absent
func DefaultOptions() Options {
	return Options{
		ConflictWindow:     time.Hour,
		MaxReadings:        5000,
		MaxOfflineSessions: 200,
		RecentSessions:     10,
	}
}

// Service is the scan capture core
type Service struct {
	store     repository.Store
	matcher   *rfid.Matcher
	projector *projection.Projector
	audit     AuditSink
	metrics   *metrics.Scan
	opts      Options
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewService creates the scan service. audit and m may be nil.
func NewService(
	store repository.Store,
	matcher *rfid.Matcher,
	projector *projection.Projector,
	audit AuditSink,
	m *metrics.Scan,
	opts Options,
	log *zap.SugaredLogger,
) *Service {
	return &Service{
		store:     store,
		matcher:   matcher,
		projector: projector,
		audit:     audit,
		metrics:   m,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// clock returns the current time as stored
func (s *Service) clock() time.Time {
	return normalize(s.now())
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (s *Service) record(actor Actor, tenantID string, action models.AuditAction, entityType, entityID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(models.AuditLog{
		TenantID:   tenantID,
		UserID:     actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}

// loadSession fetches a session the actor may access
func (s *Service) loadSession(ctx context.Context, store repository.Store, op string, actor Actor, id string) (*models.ScanSession, error) {
	session, err := store.Sessions().FindByID(ctx, id)
	return checkSession(op, actor, session, err)
}

// lockSession is loadSession holding the session row lock for the rest of
// the transaction behind store
func (s *Service) lockSession(ctx context.Context, store repository.Store, op string, actor Actor, id string) (*models.ScanSession, error) {
	session, err := store.Sessions().FindForUpdate(ctx, id)
	return checkSession(op, actor, session, err)
}

func checkSession(op string, actor Actor, session *models.ScanSession, err error) (*models.ScanSession, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(op, "session")
	}
	if err != nil {
		return nil, internal(op, err)
	}
	if !actor.CanAccess(session.TenantID) {
		return nil, forbidden(op, "session belongs to another tenant")
	}
	return session, nil
}

// loadDevice fetches a device the actor may access
func (s *Service) loadDevice(ctx context.Context, op string, actor Actor, id string) (*models.Device, error) {
	device, err := s.store.Devices().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(op, "device")
	}
	if err != nil {
		return nil, internal(op, err)
	}
	if !actor.CanAccess(device.TenantID) {
		return nil, forbidden(op, "device belongs to another tenant")
	}
	return device, nil
}

func mergeMetadata(dst map[string]interface{}, patch map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(patch))
	}
	for k, v := range patch {
		dst[k] = v
	}
	return dst
}

func geoOf(in *models.GeoLocation) models.GeoLocation {
	if in == nil {
		return models.GeoLocation{}
	}
	return *in
}
