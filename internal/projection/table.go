package projection

import (
	"fmt"

	"github.com/xelth-com/ecklinen/internal/models"
)

// Transition is the effect a completed session of one type has on every
// item it resolved
type Transition struct {
	// Steps are applied in order; the last one is the resting status
	Steps []models.ItemStatus
	// RecordWash increments the wash count and stamps the wash date
	RecordWash bool
	// Attach names the linked entity the session's items are attached to.
	// Empty means no attachment.
	Attach models.EntityType
}

// Final returns the status items end in
func (t Transition) Final() models.ItemStatus {
	return t.Steps[len(t.Steps)-1]
}

// Table maps every session type to its transition. It is the only place
// item status changes are decided.
var Table = map[models.SessionType]Transition{
	models.SessionTypePickup: {
		Steps:  []models.ItemStatus{models.ItemStatusAtLaundry},
		Attach: models.EntityTypePickup,
	},
	models.SessionTypeReceive: {
		Steps: []models.ItemStatus{models.ItemStatusAtLaundry},
	},
	models.SessionTypeProcess: {
		Steps:      []models.ItemStatus{models.ItemStatusProcessing},
		RecordWash: true,
	},
	models.SessionTypeClean: {
		Steps: []models.ItemStatus{models.ItemStatusReadyForDelivery},
	},
	models.SessionTypePackage: {
		Steps:  []models.ItemStatus{models.ItemStatusPackaged},
		Attach: models.EntityTypeDelivery,
	},
	// Handed over, then resident at the hotel again
	models.SessionTypeDeliver: {
		Steps: []models.ItemStatus{models.ItemStatusDelivered, models.ItemStatusAtHotel},
	},
}

// checkPath verifies that consecutive steps follow the cycle
func (t Transition) checkPath() error {
	for i := 1; i < len(t.Steps); i++ {
		if next, _ := Next(t.Steps[i-1]); next != t.Steps[i] {
			return fmt.Errorf("status %q does not follow %q", t.Steps[i], t.Steps[i-1])
		}
	}
	return nil
}

// For returns the transition of a session type
func For(t models.SessionType) (Transition, bool) {
	tr, ok := Table[t]
	return tr, ok
}

// Cycle is the order items travel through the hotel/laundry loop. The
// status after delivered is at_hotel again.
var Cycle = []models.ItemStatus{
	models.ItemStatusAtHotel,
	models.ItemStatusAtLaundry,
	models.ItemStatusProcessing,
	models.ItemStatusReadyForDelivery,
	models.ItemStatusLabelPrinted,
	models.ItemStatusPackaged,
	models.ItemStatusInTransit,
	models.ItemStatusDelivered,
}

// Next returns the status following s in the cycle
func Next(s models.ItemStatus) (models.ItemStatus, bool) {
	for i, status := range Cycle {
		if status == s {
			return Cycle[(i+1)%len(Cycle)], true
		}
	}
	return "", false
}
