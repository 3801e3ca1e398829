package scan

import (
	"context"
	"errors"
	"time"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/projection"
	"github.com/xelth-com/ecklinen/internal/repository"
)

// StartSession opens a session. The session is bound to the device when
// DeviceID names an active device of the actor's tenant; otherwise it has
// no device.
func (s *Service) StartSession(ctx context.Context, actor Actor, in StartInput) (*models.ScanSession, error) {
	const op = "startSession"
	if err := validateStruct(op, &in); err != nil {
		return nil, err
	}
	now := s.clock()

	session := &models.ScanSession{
		UserID:    actor.UserID,
		TenantID:  actor.TenantID,
		Type:      in.Type,
		Status:    models.SessionStatusInProgress,
		Metadata:  mergeMetadata(nil, in.Metadata),
		Geo:       geoOf(in.Geo),
		StartedAt: now,
	}
	if in.RelatedEntity != nil {
		entityType, entityID := in.RelatedEntity.Type, in.RelatedEntity.ID
		session.RelatedEntityType = &entityType
		session.RelatedEntityID = &entityID
	}

	if in.DeviceID != nil && *in.DeviceID != "" {
		device, err := s.store.Devices().FindByID(ctx, *in.DeviceID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.log.Debugw("session device not registered", "device", *in.DeviceID)
		case err != nil:
			return nil, internal(op, err)
		case device.IsActive && actor.CanAccess(device.TenantID):
			session.DeviceID = &device.ID
			if err := s.store.Devices().Touch(ctx, device.ID, now, nil); err != nil {
				return nil, internal(op, err)
			}
		default:
			s.log.Debugw("session device not usable", "device", device.ID, "active", device.IsActive)
		}
	}

	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, internal(op, err)
	}

	s.log.Infow("scan session started",
		"session", session.ID,
		"type", session.Type,
		"tenant", session.TenantID,
		"device", session.DeviceID,
	)
	s.record(actor, session.TenantID, models.AuditSessionStarted, "scan_session", session.ID, map[string]interface{}{
		"type":     session.Type,
		"deviceId": session.DeviceID,
	})
	return session, nil
}

// EndSession completes an in-progress session and projects its items.
// Recount, projection and completion commit together, completion last.
func (s *Service) EndSession(ctx context.Context, actor Actor, sessionID string, in EndInput) (*models.ScanSession, error) {
	const op = "endSession"
	if err := validateStruct(op, &in); err != nil {
		return nil, err
	}
	if _, err := s.loadSession(ctx, s.store, op, actor, sessionID); err != nil {
		return nil, err
	}

	var (
		session *models.ScanSession
		result  *projection.Result
	)
	started := time.Now()
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		session, err = s.lockSession(ctx, tx, op, actor, sessionID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionStatusInProgress {
			return invalidState(op, "session is "+string(session.Status))
		}

		// 1. Item count from event rows unless overridden
		if in.ItemCount != nil {
			session.ItemCount = *in.ItemCount
		} else {
			count, err := tx.Events().CountBySession(ctx, session.ID)
			if err != nil {
				return err
			}
			session.ItemCount = int(count)
		}
		if len(in.Metadata) > 0 {
			session.Metadata = mergeMetadata(session.Metadata, in.Metadata)
		}

		// 2. Project
		now := s.clock()
		result, err = s.projector.Project(ctx, tx, session, actor.Scope(), now)
		if err != nil {
			return err
		}

		// 3. Complete
		session.Status = models.SessionStatusCompleted
		session.CompletedAt = &now
		return tx.Sessions().Save(ctx, session)
	})
	if err != nil {
		return nil, internal(op, err)
	}
	s.metrics.ObserveProjection("live", time.Since(started))

	s.log.Infow("scan session completed",
		"session", session.ID,
		"type", session.Type,
		"tenant", session.TenantID,
		"items", session.ItemCount,
		"projected", result.Items,
	)
	s.record(actor, session.TenantID, models.AuditSessionCompleted, "scan_session", session.ID, map[string]interface{}{
		"itemCount": session.ItemCount,
		"projected": result.Items,
		"status":    result.Status,
	})
	return session, nil
}

// UpdateSessionMetadata shallow-merges patch into the session metadata.
// It is the one change allowed on closed sessions.
func (s *Service) UpdateSessionMetadata(ctx context.Context, actor Actor, sessionID string, patch map[string]interface{}) (*models.ScanSession, error) {
	const op = "updateSessionMetadata"
	if patch == nil {
		return nil, validationError(op, "metadata", "metadata object required")
	}
	session, err := s.loadSession(ctx, s.store, op, actor, sessionID)
	if err != nil {
		return nil, err
	}
	session.Metadata = mergeMetadata(session.Metadata, patch)
	if err := s.store.Sessions().Save(ctx, session); err != nil {
		return nil, internal(op, err)
	}
	return session, nil
}

// GetSession returns a session with its events
func (s *Service) GetSession(ctx context.Context, actor Actor, sessionID string) (*models.ScanSession, error) {
	const op = "getSession"
	session, err := s.store.Sessions().FindWithEvents(ctx, sessionID)
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

// Reproject runs projection again for a closed session. It repairs
// sessions whose items are inconsistent with their type.
func (s *Service) Reproject(ctx context.Context, actor Actor, sessionID string) (*projection.Result, error) {
	const op = "reproject"
	if !actor.Elevated() {
		return nil, forbidden(op, "elevated role required")
	}
	session, err := s.loadSession(ctx, s.store, op, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.Closed() {
		return nil, invalidState(op, "session is "+string(session.Status))
	}

	var result *projection.Result
	started := time.Now()
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		result, err = s.projector.Project(ctx, tx, session, actor.Scope(), s.clock())
		return err
	})
	if err != nil {
		return nil, internal(op, err)
	}
	s.metrics.ObserveProjection("reproject", time.Since(started))

	s.log.Infow("scan session reprojected", "session", session.ID, "items", result.Items)
	s.record(actor, session.TenantID, models.AuditSessionProjected, "scan_session", session.ID, map[string]interface{}{
		"projected": result.Items,
		"status":    result.Status,
	})
	return result, nil
}
