package scan

import (
	"time"

	"github.com/xelth-com/ecklinen/internal/models"
)

// conflictFixture syncs the same tag from two devices, the second capture
// delta after the first, and returns both outcomes
func (s *ServiceSuite) conflictFixture(delta time.Duration, second models.SessionType, sameDevice bool) (SessionOutcome, SessionOutcome) {
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)
	deviceA := s.device(operatorA, "reader-a")
	deviceB := s.device(operatorA, "reader-b")
	if sameDevice {
		deviceB = deviceA
	}
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	first, err := s.svc.SyncOffline(s.ctx, operatorA, deviceA.ID, []OfflineSession{
		s.offline("a-1", models.SessionTypePickup, t0, "E200SH0001"),
	})
	s.Require().NoError(err)
	s.Require().Equal(OutcomeSynced, first.Results[0].Outcome)

	later, err := s.svc.SyncOffline(s.ctx, operatorA, deviceB.ID, []OfflineSession{
		s.offline("b-1", second, t0.Add(delta), "E200SH0001"),
	})
	s.Require().NoError(err)
	return first.Results[0], later.Results[0]
}

func (s *ServiceSuite) TestConflictWithinWindow() {
	first, second := s.conflictFixture(30*time.Minute, models.SessionTypePickup, false)

	s.Equal(OutcomeConflict, second.Outcome)
	s.Require().Len(second.Conflicts, 1)
	contested := second.Conflicts[0]
	s.Equal("E200SH0001", contested.Tag)
	s.Equal(first.SessionID, contested.WinningSessionID)
	s.Equal(second.SessionID, contested.ConflictingSessionID)

	conflicts, err := s.svc.ListConflicts(s.ctx, operatorA, ConflictFilter{})
	s.Require().NoError(err)
	s.Require().Len(conflicts, 1)
	c := conflicts[0]
	s.Equal(contested.ConflictID, c.ID)
	s.Equal(models.ResolutionFirstRecordedWins, c.Resolution)
	s.True(c.IsResolved)
	s.Nil(c.ResolvedBy)
	s.Equal(first.SessionID, c.WinningSessionID)
	s.Require().NotNil(c.WinningDeviceID)
	s.Require().NotNil(c.ConflictingDeviceID)
	s.NotEqual(*c.WinningDeviceID, *c.ConflictingDeviceID)
	s.Equal(models.SessionTypePickup, c.SessionType)

	s.Equal(models.EventSyncConflict, s.events(second.SessionID)["E200SH0001"].SyncStatus)
	s.Equal(models.EventSyncSynced, s.events(first.SessionID)["E200SH0001"].SyncStatus)
}

func (s *ServiceSuite) TestNoConflictOutsideWindow() {
	_, second := s.conflictFixture(2*time.Hour, models.SessionTypePickup, false)

	s.Equal(OutcomeSynced, second.Outcome)
	s.Empty(second.Conflicts)
	s.Zero(s.count(&models.ScanConflict{}))
}

func (s *ServiceSuite) TestNoConflictAcrossSessionTypes() {
	_, second := s.conflictFixture(10*time.Minute, models.SessionTypeReceive, false)

	s.Equal(OutcomeSynced, second.Outcome)
	s.Zero(s.count(&models.ScanConflict{}))
}

func (s *ServiceSuite) TestNoConflictFromSameDevice() {
	_, second := s.conflictFixture(10*time.Minute, models.SessionTypePickup, true)

	s.Equal(OutcomeSynced, second.Outcome)
	s.Zero(s.count(&models.ScanConflict{}))
}

// A capture earlier than the existing claim still loses against it
func (s *ServiceSuite) TestConflictWindowIsSymmetric() {
	first, second := s.conflictFixture(-45*time.Minute, models.SessionTypePickup, false)

	s.Equal(OutcomeConflict, second.Outcome)
	s.Require().Len(second.Conflicts, 1)
	s.Equal(first.SessionID, second.Conflicts[0].WinningSessionID)
}

func (s *ServiceSuite) TestConflictWindowAppliesToLatestClaim() {
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	sync := func(name, localID string, captured time.Time) SessionOutcome {
		device := s.device(operatorA, name)
		res, err := s.svc.SyncOffline(s.ctx, operatorA, device.ID, []OfflineSession{
			s.offline(localID, models.SessionTypePickup, captured, "E200SH0001"),
		})
		s.Require().NoError(err)
		return res.Results[0]
	}

	s.Equal(OutcomeSynced, sync("reader-a", "a-1", t0).Outcome)
	s.Equal(OutcomeSynced, sync("reader-b", "b-1", t0.Add(100*time.Minute)).Outcome)

	// The latest claim is 70 minutes away, so the older one in range does
	// not count
	late := sync("reader-c", "c-1", t0.Add(30*time.Minute))
	s.Equal(OutcomeSynced, late.Outcome)
	s.Empty(late.Conflicts)
	s.Zero(s.count(&models.ScanConflict{}))
}

func (s *ServiceSuite) TestResolveConflict() {
	first, second := s.conflictFixture(30*time.Minute, models.SessionTypePickup, false)
	conflictID := second.Conflicts[0].ConflictID

	_, err := s.svc.ResolveConflict(s.ctx, operatorA, conflictID, ResolveInput{Resolution: models.ResolutionManual})
	s.ErrorIs(err, ErrForbidden)

	managerB := Actor{UserID: "manager-b", TenantID: "hotel-b", Role: RoleManager}
	_, err = s.svc.ResolveConflict(s.ctx, managerB, conflictID, ResolveInput{Resolution: models.ResolutionManual})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.ResolveConflict(s.ctx, managerA, "missing", ResolveInput{Resolution: models.ResolutionManual})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.ResolveConflict(s.ctx, managerA, conflictID, ResolveInput{Resolution: "coin_flip"})
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.ResolveConflict(s.ctx, managerA, conflictID, ResolveInput{
		Resolution:       models.ResolutionManual,
		WinningSessionID: ptr("unrelated-session"),
	})
	s.ErrorIs(err, ErrValidation)

	resolved, err := s.svc.ResolveConflict(s.ctx, managerA, conflictID, ResolveInput{
		Resolution:       models.ResolutionManual,
		WinningSessionID: ptr(second.SessionID),
	})
	s.Require().NoError(err)
	s.Equal(second.SessionID, resolved.WinningSessionID)
	s.Equal(first.SessionID, resolved.ConflictingSessionID)
	s.Equal(models.ResolutionManual, resolved.Resolution)
	s.True(resolved.IsResolved)
	s.Require().NotNil(resolved.ResolvedBy)
	s.Equal("manager-a", *resolved.ResolvedBy)
	s.Require().NotNil(resolved.ResolvedAt)
	s.True(resolved.ResolvedAt.Equal(s.now))

	// Item status is left as first projected
	s.Equal(models.ItemStatusAtLaundry, s.item("sheet-1").Status)
	s.Contains(s.audit.actions(), models.AuditConflictResolved)
}

func (s *ServiceSuite) TestResolveByCaptureOrder() {
	first, second := s.conflictFixture(30*time.Minute, models.SessionTypePickup, false)
	conflictID := second.Conflicts[0].ConflictID

	resolved, err := s.svc.ResolveConflict(s.ctx, managerA, conflictID, ResolveInput{Resolution: models.ResolutionLastRecordedWins})
	s.Require().NoError(err)
	s.Equal(second.SessionID, resolved.WinningSessionID)

	resolved, err = s.svc.ResolveConflict(s.ctx, managerA, conflictID, ResolveInput{Resolution: models.ResolutionFirstRecordedWins})
	s.Require().NoError(err)
	s.Equal(first.SessionID, resolved.WinningSessionID)

	stored, err := s.store.Conflicts().FindByID(s.ctx, conflictID)
	s.Require().NoError(err)
	s.Equal(first.SessionID, stored.WinningSessionID)
	s.Equal(models.ResolutionFirstRecordedWins, stored.Resolution)
}

func (s *ServiceSuite) TestListConflictsFilters() {
	s.conflictFixture(30*time.Minute, models.SessionTypePickup, false)

	unresolved := false
	conflicts, err := s.svc.ListConflicts(s.ctx, operatorA, ConflictFilter{Resolved: &unresolved})
	s.Require().NoError(err)
	s.Empty(conflicts)

	resolved := true
	conflicts, err = s.svc.ListConflicts(s.ctx, operatorA, ConflictFilter{Resolved: &resolved})
	s.Require().NoError(err)
	s.Len(conflicts, 1)

	conflicts, err = s.svc.ListConflicts(s.ctx, operatorB, ConflictFilter{})
	s.Require().NoError(err)
	s.Empty(conflicts)

	conflicts, err = s.svc.ListConflicts(s.ctx, superadmin, ConflictFilter{Tag: "E200SH0001"})
	s.Require().NoError(err)
	s.Len(conflicts, 1)
}
