package scan

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/xelth-com/ecklinen/internal/cache"
	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/projection"
	"github.com/xelth-com/ecklinen/internal/rfid"
)

func (s *ServiceSuite) TestRegisterDevice() {
	id := uuid.NewString()
	device, created, err := s.svc.RegisterDevice(s.ctx, operatorA, RegisterDeviceInput{ID: id, Name: "dock reader"})
	s.Require().NoError(err)
	s.True(created)
	s.Equal(id, device.ID)
	s.Equal("hotel-a", device.TenantID)
	s.True(device.IsActive)

	_, err = s.svc.DeactivateDevice(s.ctx, operatorA, id)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.DeactivateDevice(s.ctx, managerA, id)
	s.Require().NoError(err)

	again, created, err := s.svc.RegisterDevice(s.ctx, operatorA, RegisterDeviceInput{ID: id, Name: "dock reader 2"})
	s.Require().NoError(err)
	s.False(created)
	s.Equal("dock reader 2", again.Name)
	s.True(again.IsActive, "re-registration reactivates")
	s.EqualValues(1, s.count(&models.Device{}))

	_, _, err = s.svc.RegisterDevice(s.ctx, operatorB, RegisterDeviceInput{ID: id, Name: "stolen"})
	s.ErrorIs(err, ErrForbidden)

	_, _, err = s.svc.RegisterDevice(s.ctx, operatorA, RegisterDeviceInput{ID: "not-a-uuid", Name: "x"})
	s.ErrorIs(err, ErrValidation)
	_, _, err = s.svc.RegisterDevice(s.ctx, operatorA, RegisterDeviceInput{})
	s.ErrorIs(err, ErrValidation)

	s.Contains(s.audit.actions(), models.AuditDeviceRegistered)
}

func (s *ServiceSuite) TestHeartbeat() {
	device := s.device(operatorA, "reader-1")
	s.now = s.now.Add(time.Hour)

	beat, err := s.svc.Heartbeat(s.ctx, operatorA, device.ID)
	s.Require().NoError(err)
	s.True(beat.LastSeenAt.Equal(s.now))

	stored, err := s.store.Devices().FindByID(s.ctx, device.ID)
	s.Require().NoError(err)
	s.True(stored.LastSeenAt.Equal(s.now))
	s.Nil(stored.LastSyncAt)

	_, err = s.svc.Heartbeat(s.ctx, operatorB, device.ID)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.Heartbeat(s.ctx, operatorA, "missing")
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.DeactivateDevice(s.ctx, managerA, device.ID)
	s.Require().NoError(err)
	_, err = s.svc.Heartbeat(s.ctx, operatorA, device.ID)
	s.ErrorIs(err, ErrForbidden)
}

func (s *ServiceSuite) TestGetSyncStatus() {
	device := s.device(operatorA, "reader-1")
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)

	status, err := s.svc.GetSyncStatus(s.ctx, operatorA, device.ID)
	s.Require().NoError(err)
	s.Nil(status.LastSyncAt)
	s.Zero(status.PendingCount)
	s.Empty(status.RecentSessions)

	open, err := s.svc.StartSession(s.ctx, operatorA, StartInput{DeviceID: &device.ID, Type: models.SessionTypeReceive})
	s.Require().NoError(err)
	_, err = s.svc.IngestBulk(s.ctx, operatorA, open.ID, []Reading{{Tag: "SH0001"}, {Tag: "UNKNOWN1"}, {Tag: "UNKNOWN2"}})
	s.Require().NoError(err)

	s.now = s.now.Add(time.Minute)
	captured := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	_, err = s.svc.SyncOffline(s.ctx, operatorA, device.ID, []OfflineSession{
		s.offline("o-1", models.SessionTypeClean, captured, "SH0001", "UNKNOWN3"),
	})
	s.Require().NoError(err)

	status, err = s.svc.GetSyncStatus(s.ctx, operatorA, device.ID)
	s.Require().NoError(err)
	s.Equal(device.ID, status.DeviceID)
	s.Require().NotNil(status.LastSyncAt)
	s.True(status.LastSyncAt.Equal(s.now))
	s.EqualValues(3, status.PendingCount)
	s.EqualValues(1, status.OpenSessions)
	s.Require().Len(status.RecentSessions, 2)
	s.Equal(open.ID, status.RecentSessions[0].ID, "newest start first")

	s.svc.opts.RecentSessions = 1
	status, err = s.svc.GetSyncStatus(s.ctx, operatorA, device.ID)
	s.Require().NoError(err)
	s.Len(status.RecentSessions, 1)

	_, err = s.svc.GetSyncStatus(s.ctx, operatorB, device.ID)
	s.ErrorIs(err, ErrForbidden)
}

func (s *ServiceSuite) TestInvalidateSnapshotPicksUpNewTags() {
	log := zaptest.NewLogger(s.T()).Sugar()
	matcher := rfid.NewMatcher(cache.NewLRU(8, time.Hour), log)
	s.svc = NewService(s.store, matcher, projection.NewProjector(matcher, log), s.audit, nil, DefaultOptions(), log)
	s.svc.now = func() time.Time { return s.now }

	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)
	first := s.start(operatorA, models.SessionTypePickup)
	_, err := s.svc.IngestBulk(s.ctx, operatorA, first.ID, []Reading{{Tag: "SH0001"}})
	s.Require().NoError(err)

	s.seedItem("sheet-2", "hotel-a", "SH0002", models.ItemStatusAtHotel)
	_, err = s.svc.IngestBulk(s.ctx, operatorA, first.ID, []Reading{{Tag: "SH0002"}})
	s.Require().NoError(err)
	s.Nil(s.events(first.ID)["SH0002"].ItemID, "cached registry predates the tag")

	s.ErrorIs(s.svc.InvalidateSnapshot(s.ctx, operatorA), ErrForbidden)
	s.Require().NoError(s.svc.InvalidateSnapshot(s.ctx, managerA))

	second := s.start(operatorA, models.SessionTypePickup)
	_, err = s.svc.IngestBulk(s.ctx, operatorA, second.ID, []Reading{{Tag: "SH0002"}})
	s.Require().NoError(err)
	e := s.events(second.ID)["SH0002"]
	s.Require().NotNil(e.ItemID)
	s.Equal("sheet-2", *e.ItemID)
}
