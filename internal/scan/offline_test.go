package scan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xelth-com/ecklinen/internal/models"
)

func (s *ServiceSuite) offline(localID string, st models.SessionType, captured time.Time, tags ...string) OfflineSession {
	readings := make([]Reading, 0, len(tags))
	for i, tag := range tags {
		readings = append(readings, Reading{Tag: tag, CapturedAt: at(captured.Add(time.Duration(i) * time.Second))})
	}
	return OfflineSession{
		LocalID:     localID,
		Type:        st,
		Readings:    readings,
		StartedAt:   at(captured.Add(-time.Minute)),
		CompletedAt: at(captured.Add(time.Minute)),
	}
}

func (s *ServiceSuite) TestSyncOfflineReplaysSessions() {
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)
	s.seedItem("sheet-2", "hotel-a", "SH0002", models.ItemStatusAtHotel)
	device := s.device(operatorA, "reader-1")
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	in := s.offline("local-1", models.SessionTypePickup, captured, "E200SH0001", "E200SH0002", "E200SH0001", "E200UNKNOWN")
	in.RelatedEntity = &RelatedEntity{Type: models.EntityTypePickup, ID: "pickup-3"}

	res, err := s.svc.SyncOffline(s.ctx, operatorA, device.ID, []OfflineSession{in})
	s.Require().NoError(err)
	s.Equal(device.ID, res.DeviceID)
	s.Require().Len(res.Results, 1)

	out := res.Results[0]
	s.Equal(OutcomeSynced, out.Outcome)
	s.Equal("local-1", out.LocalID)
	s.Equal(3, out.ItemCount)
	s.Empty(out.Error)

	session, err := s.svc.GetSession(s.ctx, operatorA, out.SessionID)
	s.Require().NoError(err)
	s.Equal(models.SessionStatusSynced, session.Status)
	s.True(session.StartedAt.Equal(captured.Add(-time.Minute)), "device times are kept")
	s.True(session.CompletedAt.Equal(captured.Add(time.Minute)))
	s.True(session.SyncedAt.Equal(s.now))
	s.Equal("local-1", session.Metadata["localId"])
	s.Require().NotNil(session.DeviceID)
	s.Equal(device.ID, *session.DeviceID)

	events := s.events(session.ID)
	s.Equal(2, events["E200SH0001"].ReadCount)
	s.Equal(models.EventSyncSynced, events["E200SH0001"].SyncStatus)
	s.Equal(models.EventSyncPending, events["E200UNKNOWN"].SyncStatus)

	s.Equal(models.ItemStatusAtLaundry, s.item("sheet-1").Status)
	s.Equal(models.ItemStatusAtLaundry, s.item("sheet-2").Status)
	attached, err := s.store.Links().ListPickupItems(s.ctx, "pickup-3")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"sheet-1", "sheet-2"}, attached)

	stored, err := s.store.Devices().FindByID(s.ctx, device.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.LastSyncAt)
	s.True(stored.LastSyncAt.Equal(s.now))
	s.True(stored.LastSeenAt.Equal(s.now))

	s.Contains(s.audit.actions(), models.AuditSessionSynced)
}

// Two offline sessions, the second malformed: the first commits and moves
// its items, the second reports an error and leaves nothing behind.
func (s *ServiceSuite) TestSyncOfflineIsolatesFailures() {
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)
	device := s.device(operatorA, "reader-1")
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	good := s.offline("good", models.SessionTypePickup, captured, "SH0001")
	bad := s.offline("bad", models.SessionTypePickup, captured, "SH0002", "SH0003")
	bad.Readings[1].CapturedAt = nil

	res, err := s.svc.SyncOffline(s.ctx, operatorA, device.ID, []OfflineSession{good, bad})
	s.Require().NoError(err)
	s.Require().Len(res.Results, 2)

	s.Equal(OutcomeSynced, res.Results[0].Outcome)
	s.Equal("good", res.Results[0].LocalID)
	s.Equal(OutcomeError, res.Results[1].Outcome)
	s.Equal("bad", res.Results[1].LocalID)
	s.Contains(res.Results[1].Error, "readings[1].capturedAt")
	s.Empty(res.Results[1].SessionID)

	s.Equal(models.ItemStatusAtLaundry, s.item("sheet-1").Status)
	s.EqualValues(1, s.count(&models.ScanSession{}))
	s.EqualValues(1, s.count(&models.ScanEvent{}))
}

func (s *ServiceSuite) TestSyncOfflineRejectsInvalidSessions() {
	device := s.device(operatorA, "reader-1")
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	backwards := s.offline("backwards", models.SessionTypeClean, captured, "A")
	backwards.CompletedAt = at(captured.Add(-time.Hour))
	untyped := s.offline("untyped", "folding", captured, "A")
	unstarted := s.offline("unstarted", models.SessionTypeClean, captured, "A")
	unstarted.StartedAt = nil
	blank := s.offline("blank", models.SessionTypeClean, captured, " ")

	res, err := s.svc.SyncOffline(s.ctx, operatorA, device.ID, []OfflineSession{backwards, untyped, unstarted, blank})
	s.Require().NoError(err)
	s.Require().Len(res.Results, 4)
	for _, out := range res.Results {
		s.Equal(OutcomeError, out.Outcome, out.LocalID)
		s.NotEmpty(out.Error)
	}
	s.Zero(s.count(&models.ScanSession{}))
}

func (s *ServiceSuite) TestSyncOfflineDeviceChecks() {
	device := s.device(operatorA, "reader-1")

	_, err := s.svc.SyncOffline(s.ctx, operatorA, "missing", nil)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.SyncOffline(s.ctx, operatorB, device.ID, nil)
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.DeactivateDevice(s.ctx, managerA, device.ID)
	s.Require().NoError(err)
	_, err = s.svc.SyncOffline(s.ctx, operatorA, device.ID, nil)
	s.ErrorIs(err, ErrForbidden)
}

func (s *ServiceSuite) TestSyncOfflineBatchLimit() {
	device := s.device(operatorA, "reader-1")
	s.svc.opts.MaxOfflineSessions = 1
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	_, err := s.svc.SyncOffline(s.ctx, operatorA, device.ID, []OfflineSession{
		s.offline("a", models.SessionTypeClean, captured, "A"),
		s.offline("b", models.SessionTypeClean, captured, "B"),
	})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestSyncOfflineCancelled() {
	device := s.device(operatorA, "reader-1")
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(s.ctx)

	// The snapshot is taken before cancellation; every session then fails
	// without leaving rows behind.
	s.svc.now = func() time.Time {
		cancel()
		return s.now
	}
	res, err := s.svc.SyncOffline(ctx, operatorA, device.ID, []OfflineSession{
		s.offline("a", models.SessionTypeClean, captured, "A"),
	})
	s.Require().NoError(err)
	s.Require().Len(res.Results, 1)
	s.Equal(OutcomeError, res.Results[0].Outcome)
	s.Zero(s.count(&models.ScanSession{}))
}

func (s *ServiceSuite) TestSyncOfflineJSONIsolatesUndecodableSessions() {
	s.seedItem("towel-1", "hotel-a", "TW0001", models.ItemStatusAtHotel)
	device := s.device(operatorA, "reader-1")
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	good, err := json.Marshal(s.offline("good", models.SessionTypeReceive, captured, "E200TW0001"))
	s.Require().NoError(err)
	bodies := []json.RawMessage{
		good,
		json.RawMessage(`{"localId":"late","type":"receive","readings":[{"tag":"X","capturedAt":"yesterday"}]}`),
		json.RawMessage(`[1,2,3]`),
	}

	res, err := s.svc.SyncOfflineJSON(s.ctx, operatorA, device.ID, bodies)
	s.Require().NoError(err)
	s.Require().Len(res.Results, 3)
	s.Equal(OutcomeSynced, res.Results[0].Outcome)
	s.Equal("late", res.Results[1].LocalID)
	s.Equal(OutcomeError, res.Results[1].Outcome)
	s.Contains(res.Results[1].Error, `offline session "late"`)
	s.Equal("", res.Results[2].LocalID)
	s.Equal(OutcomeError, res.Results[2].Outcome)

	s.Equal(models.ItemStatusAtLaundry, s.item("towel-1").Status)
	s.Equal(int64(1), s.count(&models.ScanSession{}))

	s.svc.opts.MaxOfflineSessions = 2
	_, err = s.svc.SyncOfflineJSON(s.ctx, operatorA, device.ID, bodies)
	s.ErrorIs(err, ErrValidation)
}
