package scan

import (
	"github.com/xelth-com/ecklinen/internal/models"
)

func (s *ServiceSuite) TestStartSession() {
	device := s.device(operatorA, "reader-1")
	foreign := s.device(operatorB, "reader-b")

	session, err := s.svc.StartSession(s.ctx, operatorA, StartInput{
		DeviceID:      &device.ID,
		Type:          models.SessionTypePickup,
		RelatedEntity: &RelatedEntity{Type: models.EntityTypePickup, ID: "pickup-1"},
		Geo:           &models.GeoLocation{Latitude: ptr(52.52), Longitude: ptr(13.40)},
		Metadata:      map[string]interface{}{"floor": "3"},
	})
	s.Require().NoError(err)
	s.Equal(models.SessionStatusInProgress, session.Status)
	s.Equal("hotel-a", session.TenantID)
	s.Equal("user-a", session.UserID)
	s.Require().NotNil(session.DeviceID)
	s.Equal(device.ID, *session.DeviceID)
	s.True(session.StartedAt.Equal(s.now))
	id, linked := session.LinkedTo(models.EntityTypePickup)
	s.True(linked)
	s.Equal("pickup-1", id)

	// Devices that do not resolve leave the session unbound
	for _, deviceID := range []string{"unknown-device", foreign.ID} {
		session, err = s.svc.StartSession(s.ctx, operatorA, StartInput{DeviceID: ptr(deviceID), Type: models.SessionTypeClean})
		s.Require().NoError(err)
		s.Nil(session.DeviceID)
	}

	s.Contains(s.audit.actions(), models.AuditSessionStarted)
}

func (s *ServiceSuite) TestStartSessionValidation() {
	_, err := s.svc.StartSession(s.ctx, operatorA, StartInput{Type: "laundromat"})
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.StartSession(s.ctx, operatorA, StartInput{
		Type:          models.SessionTypePickup,
		RelatedEntity: &RelatedEntity{Type: "invoice", ID: "x"},
	})
	s.ErrorIs(err, ErrValidation)
	var e *Error
	s.Require().ErrorAs(err, &e)
	s.Equal("relatedEntity.type", e.Field)
}

// Pickup round trip: three registered tags of the hotel are scanned,
// the session ends, every item is at the laundry and attached to the pickup.
func (s *ServiceSuite) TestPickupRoundTrip() {
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusAtHotel)
	s.seedItem("sheet-2", "hotel-a", "SH0002", models.ItemStatusAtHotel)
	s.seedItem("towel-1", "hotel-a", "TW0001", models.ItemStatusAtHotel)

	session, err := s.svc.StartSession(s.ctx, operatorA, StartInput{
		Type:          models.SessionTypePickup,
		RelatedEntity: &RelatedEntity{Type: models.EntityTypePickup, ID: "pickup-7"},
	})
	s.Require().NoError(err)

	res, err := s.svc.IngestBulk(s.ctx, operatorA, session.ID, []Reading{
		{Tag: "E2801160600000SH0001"},
		{Tag: "E2801160600000SH0002"},
		{Tag: "E2801160600000TW0001"},
	})
	s.Require().NoError(err)
	s.Equal(3, res.Added)

	ended, err := s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{})
	s.Require().NoError(err)
	s.Equal(models.SessionStatusCompleted, ended.Status)
	s.Equal(3, ended.ItemCount)
	s.Require().NotNil(ended.CompletedAt)

	for _, id := range []string{"sheet-1", "sheet-2", "towel-1"} {
		s.Equal(models.ItemStatusAtLaundry, s.item(id).Status, id)
	}
	attached, err := s.store.Links().ListPickupItems(s.ctx, "pickup-7")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"sheet-1", "sheet-2", "towel-1"}, attached)

	s.Contains(s.audit.actions(), models.AuditSessionCompleted)
}

func (s *ServiceSuite) TestDeliverCycle() {
	s.seedItem("sheet-1", "hotel-a", "SH0001", models.ItemStatusInTransit)
	session := s.start(operatorA, models.SessionTypeDeliver)

	_, err := s.svc.IngestBulk(s.ctx, operatorA, session.ID, []Reading{{Tag: "SH0001"}})
	s.Require().NoError(err)
	_, err = s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{})
	s.Require().NoError(err)

	s.Equal(models.ItemStatusAtHotel, s.item("sheet-1").Status)
}

func (s *ServiceSuite) TestEndSessionOverridesAndMerges() {
	session, err := s.svc.StartSession(s.ctx, operatorA, StartInput{
		Type:     models.SessionTypeClean,
		Metadata: map[string]interface{}{"shift": "early", "line": "2"},
	})
	s.Require().NoError(err)

	ended, err := s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{
		ItemCount: ptr(40),
		Metadata:  map[string]interface{}{"line": "4", "note": "manual count"},
	})
	s.Require().NoError(err)
	s.Equal(40, ended.ItemCount)

	stored, err := s.svc.GetSession(s.ctx, operatorA, session.ID)
	s.Require().NoError(err)
	s.Equal(40, stored.ItemCount)
	s.Equal("early", stored.Metadata["shift"])
	s.Equal("4", stored.Metadata["line"])
	s.Equal("manual count", stored.Metadata["note"])
}

func (s *ServiceSuite) TestEndSessionErrors() {
	session := s.start(operatorA, models.SessionTypeReceive)

	_, err := s.svc.EndSession(s.ctx, operatorB, session.ID, EndInput{})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.EndSession(s.ctx, operatorA, "missing", EndInput{})
	s.ErrorIs(err, ErrNotFound)

	_, err = s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{ItemCount: ptr(-1)})
	s.ErrorIs(err, ErrValidation)

	_, err = s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{})
	s.Require().NoError(err)
	_, err = s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{})
	s.ErrorIs(err, ErrInvalidState)

	// A superadmin may close any tenant's session
	other := s.start(operatorB, models.SessionTypeReceive)
	_, err = s.svc.EndSession(s.ctx, superadmin, other.ID, EndInput{})
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdateSessionMetadataOnClosedSession() {
	session := s.start(operatorA, models.SessionTypeClean)
	_, err := s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{})
	s.Require().NoError(err)

	updated, err := s.svc.UpdateSessionMetadata(s.ctx, operatorA, session.ID, map[string]interface{}{"checkedBy": "qa"})
	s.Require().NoError(err)
	s.Equal(models.SessionStatusCompleted, updated.Status)
	s.Equal("qa", updated.Metadata["checkedBy"])

	_, err = s.svc.UpdateSessionMetadata(s.ctx, operatorB, session.ID, map[string]interface{}{"x": 1})
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.UpdateSessionMetadata(s.ctx, operatorA, session.ID, nil)
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestGetSessionIncludesEvents() {
	session := s.start(operatorA, models.SessionTypeReceive)
	_, err := s.svc.IngestBulk(s.ctx, operatorA, session.ID, []Reading{{Tag: "B"}, {Tag: "A"}})
	s.Require().NoError(err)

	got, err := s.svc.GetSession(s.ctx, operatorA, session.ID)
	s.Require().NoError(err)
	s.Len(got.Events, 2)

	_, err = s.svc.GetSession(s.ctx, operatorB, session.ID)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.GetSession(s.ctx, operatorA, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestReproject() {
	s.seedItem("towel-1", "hotel-a", "TW0001", models.ItemStatusAtHotel)
	session := s.start(operatorA, models.SessionTypeReceive)
	_, err := s.svc.IngestBulk(s.ctx, operatorA, session.ID, []Reading{{Tag: "TW0001"}})
	s.Require().NoError(err)

	_, err = s.svc.Reproject(s.ctx, managerA, session.ID)
	s.ErrorIs(err, ErrInvalidState)

	_, err = s.svc.EndSession(s.ctx, operatorA, session.ID, EndInput{})
	s.Require().NoError(err)

	// Simulate a projection that never reached the item
	s.Require().NoError(s.db.Model(&models.Item{}).Where("id = ?", "towel-1").Update("status", models.ItemStatusAtHotel).Error)

	_, err = s.svc.Reproject(s.ctx, operatorA, session.ID)
	s.ErrorIs(err, ErrForbidden)

	res, err := s.svc.Reproject(s.ctx, managerA, session.ID)
	s.Require().NoError(err)
	s.Equal(1, res.Items)
	s.Equal(models.ItemStatusAtLaundry, s.item("towel-1").Status)
	s.Contains(s.audit.actions(), models.AuditSessionProjected)
}
