package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/repository"
	"github.com/xelth-com/ecklinen/internal/rfid"
)

// offlineUnit is one submitted offline session. err is set when the
// session body could not be decoded.
type offlineUnit struct {
	localID string
	session *OfflineSession
	err     error
}

// SyncOffline replays sessions a device captured while disconnected. Each
// offline session commits in its own transaction; a failing one is
// reported as an error outcome and does not affect the others. Every
// submitted session gets exactly one outcome, in submission order.
func (s *Service) SyncOffline(ctx context.Context, actor Actor, deviceID string, sessions []OfflineSession) (*SyncResult, error) {
	units := make([]offlineUnit, len(sessions))
	for i := range sessions {
		units[i] = offlineUnit{localID: sessions[i].LocalID, session: &sessions[i]}
	}
	return s.syncUnits(ctx, actor, deviceID, units)
}

// SyncOfflineJSON is SyncOffline over undecoded session bodies. A body
// that does not decode yields an error outcome for that session only.
func (s *Service) SyncOfflineJSON(ctx context.Context, actor Actor, deviceID string, bodies []json.RawMessage) (*SyncResult, error) {
	units := make([]offlineUnit, len(bodies))
	for i, body := range bodies {
		var in OfflineSession
		if err := json.Unmarshal(body, &in); err != nil {
			units[i] = offlineUnit{
				localID: localIDOf(body),
				err:     validationError("syncOffline", "", "malformed session: "+err.Error()),
			}
			continue
		}
		units[i] = offlineUnit{localID: in.LocalID, session: &in}
	}
	return s.syncUnits(ctx, actor, deviceID, units)
}

// localIDOf recovers the correlation id of a body that failed to decode
func localIDOf(body json.RawMessage) string {
	var head struct {
		LocalID string `json:"localId"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return ""
	}
	return head.LocalID
}

func (s *Service) syncUnits(ctx context.Context, actor Actor, deviceID string, units []offlineUnit) (*SyncResult, error) {
	const op = "syncOffline"
	if len(units) > s.opts.MaxOfflineSessions {
		return nil, validationError(op, "sessions", fmt.Sprintf("at most %d sessions per batch", s.opts.MaxOfflineSessions))
	}

	device, err := s.loadDevice(ctx, op, actor, deviceID)
	if err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, forbidden(op, "device is deactivated")
	}

	// One registry snapshot serves the whole batch
	snap, err := s.matcher.Snapshot(ctx, s.store.Items(), actor.Scope())
	if err != nil {
		return nil, internal(op, err)
	}

	syncedAt := s.clock()
	result := &SyncResult{DeviceID: device.ID, SyncedAt: syncedAt, Results: make([]SessionOutcome, 0, len(units))}
	for _, u := range units {
		var outcome SessionOutcome
		if u.err != nil {
			outcome = s.failed(device, u.localID, u.err)
		} else {
			outcome = s.syncOne(ctx, actor, device, snap, u.session, syncedAt)
		}
		s.metrics.ObserveOfflineOutcome(string(outcome.Outcome))
		result.Results = append(result.Results, outcome)
	}

	if err := s.store.Devices().Touch(ctx, device.ID, syncedAt, &syncedAt); err != nil {
		s.log.Warnw("failed to stamp device sync", "device", device.ID, "error", err)
	}

	s.log.Infow("offline batch synced",
		"device", device.ID,
		"tenant", device.TenantID,
		"sessions", len(units),
	)
	return result, nil
}

// failed reports one offline session as an error outcome
func (s *Service) failed(device *models.Device, localID string, err error) SessionOutcome {
	err = syncItem(localID, err)
	s.log.Warnw("offline session failed", "device", device.ID, "localId", localID, "error", err)
	return SessionOutcome{LocalID: localID, Outcome: OutcomeError, Error: err.Error()}
}

// syncOne replays a single offline session. Any failure rolls back every
// row of that session.
func (s *Service) syncOne(ctx context.Context, actor Actor, device *models.Device, snap *rfid.Snapshot, in *OfflineSession, syncedAt time.Time) SessionOutcome {
	session, contested, err := s.replay(ctx, actor, device, snap, in, syncedAt)
	if err != nil {
		return s.failed(device, in.LocalID, err)
	}

	outcome := SessionOutcome{LocalID: in.LocalID}
	outcome.SessionID = session.ID
	outcome.ItemCount = session.ItemCount
	outcome.Outcome = OutcomeSynced
	if len(contested) > 0 {
		outcome.Outcome = OutcomeConflict
		outcome.Conflicts = contested
		s.metrics.ObserveConflicts(len(contested))
	}

	s.record(actor, session.TenantID, models.AuditSessionSynced, "scan_session", session.ID, map[string]interface{}{
		"localId":   in.LocalID,
		"deviceId":  device.ID,
		"itemCount": session.ItemCount,
		"conflicts": len(contested),
	})
	return outcome
}

func (s *Service) checkOffline(in *OfflineSession) error {
	const op = "syncOffline"
	if err := validateStruct(op, in); err != nil {
		return err
	}
	if err := checkTags(op, "", in.Readings); err != nil {
		return err
	}
	for i, r := range in.Readings {
		if r.CapturedAt == nil {
			return validationError(op, fmt.Sprintf("readings[%d].capturedAt", i), "capture time required")
		}
	}
	if in.CompletedAt.Before(*in.StartedAt) {
		return validationError(op, "completedAt", "completedAt is before startedAt")
	}
	return nil
}

func (s *Service) replay(ctx context.Context, actor Actor, device *models.Device, snap *rfid.Snapshot, in *OfflineSession, syncedAt time.Time) (*models.ScanSession, []ContestedTag, error) {
	if err := s.checkOffline(in); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	observations := dedupe(in.Readings)
	sort.SliceStable(observations, func(i, j int) bool {
		a, b := *observations[i].capturedAt, *observations[j].capturedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return observations[i].tag < observations[j].tag
	})

	startedAt, completedAt := normalize(*in.StartedAt), normalize(*in.CompletedAt)
	deviceID := device.ID
	metadata := mergeMetadata(nil, in.Metadata)
	metadata["localId"] = in.LocalID

	session := &models.ScanSession{
		DeviceID:    &deviceID,
		UserID:      actor.UserID,
		TenantID:    device.TenantID,
		Type:        in.Type,
		Status:      models.SessionStatusSynced,
		Metadata:    metadata,
		Geo:         geoOf(in.Geo),
		ItemCount:   len(observations),
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
		SyncedAt:    &syncedAt,
	}
	if in.RelatedEntity != nil {
		entityType, entityID := in.RelatedEntity.Type, in.RelatedEntity.ID
		session.RelatedEntityType = &entityType
		session.RelatedEntityID = &entityID
	}

	var contested []ContestedTag
	started := time.Now()
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		contested = nil
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}

		events := make([]models.ScanEvent, 0, len(observations))
		for _, obs := range observations {
			capturedAt := normalize(*obs.capturedAt)
			event := models.ScanEvent{
				SessionID:      session.ID,
				RFIDTag:        obs.tag,
				SignalStrength: obs.signal,
				ReadCount:      obs.reads,
				SyncStatus:     models.EventSyncPending,
				ScannedAt:      capturedAt,
			}
			if entry, ok := snap.Resolve(obs.tag); ok {
				itemID := entry.ItemID
				event.ItemID = &itemID
				event.SyncStatus = models.EventSyncSynced
			}

			conflict, err := s.detectConflict(ctx, tx, session, obs.tag, capturedAt, syncedAt)
			if err != nil {
				return err
			}
			if conflict != nil {
				event.SyncStatus = models.EventSyncConflict
				contested = append(contested, ContestedTag{
					ConflictID:           conflict.ID,
					Tag:                  obs.tag,
					WinningSessionID:     conflict.WinningSessionID,
					WinningDeviceID:      conflict.WinningDeviceID,
					ConflictingSessionID: conflict.ConflictingSessionID,
				})
			}
			events = append(events, event)
		}
		if err := tx.Events().CreateBatch(ctx, events); err != nil {
			return err
		}

		_, err := s.projector.Project(ctx, tx, session, actor.Scope(), syncedAt)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveProjection("offline", time.Since(started))
	return session, contested, nil
}

// detectConflict records a conflict when the most recent synced claim on
// tag by another device's session of the same type was captured within the
// window of capturedAt. That claim wins; the new observation loses.
func (s *Service) detectConflict(ctx context.Context, tx repository.Store, session *models.ScanSession, tag string, capturedAt, now time.Time) (*models.ScanConflict, error) {
	claim, err := tx.Events().FindLatestClaim(ctx, repository.ClaimQuery{
		Tag:              tag,
		SessionType:      session.Type,
		ExcludeSessionID: session.ID,
		ExcludeDeviceID:  session.DeviceID,
	})
	if err != nil || claim == nil {
		return nil, err
	}
	if delta := capturedAt.Sub(claim.ScannedAt); delta > s.opts.ConflictWindow || delta < -s.opts.ConflictWindow {
		return nil, nil
	}

	conflict := &models.ScanConflict{
		TenantID:             session.TenantID,
		RFIDTag:              tag,
		SessionType:          session.Type,
		WinningSessionID:     claim.SessionID,
		ConflictingSessionID: session.ID,
		WinningDeviceID:      claim.DeviceID,
		ConflictingDeviceID:  session.DeviceID,
		WinningScannedAt:     normalize(claim.ScannedAt),
		ConflictingScannedAt: capturedAt,
		Resolution:           models.ResolutionFirstRecordedWins,
		IsResolved:           true,
		ResolvedAt:           &now,
	}
	if err := tx.Conflicts().Create(ctx, conflict); err != nil {
		return nil, err
	}
	s.log.Infow("scan conflict recorded",
		"conflict", conflict.ID,
		"tag", tag,
		"winningSession", conflict.WinningSessionID,
		"conflictingSession", conflict.ConflictingSessionID,
	)
	return conflict, nil
}
