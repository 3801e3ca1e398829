package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/repository"
)

// observation is the deduplicated view of every reading of one tag
type observation struct {
	tag        string
	signal     *float64
	capturedAt *time.Time
	reads      int
}

// stronger reports whether candidate beats current. A missing strength
// ranks below any reported one.
func stronger(candidate, current *float64) bool {
	return candidate != nil && (current == nil || *candidate > *current)
}

func maxSignal(a, b *float64) *float64 {
	if stronger(b, a) {
		return b
	}
	return a
}

// dedupe collapses readings by trimmed tag, keeping the strongest one.
// Ties keep the first occurrence. Order follows first appearance.
func dedupe(readings []Reading) []*observation {
	byTag := make(map[string]*observation, len(readings))
	var out []*observation
	for _, r := range readings {
		tag := strings.TrimSpace(r.Tag)
		obs, ok := byTag[tag]
		if !ok {
			obs = &observation{tag: tag, signal: r.SignalStrength, capturedAt: r.CapturedAt}
			byTag[tag] = obs
			out = append(out, obs)
		} else if stronger(r.SignalStrength, obs.signal) {
			obs.signal = r.SignalStrength
			obs.capturedAt = r.CapturedAt
		}
		obs.reads++
	}
	return out
}

// checkTags rejects readings whose tag is blank after trimming
func checkTags(op, prefix string, readings []Reading) error {
	for i, r := range readings {
		if strings.TrimSpace(r.Tag) == "" {
			return validationError(op, fmt.Sprintf("%sreadings[%d].tag", prefix, i), "tag must not be blank")
		}
	}
	return nil
}

type ingestBatch struct {
	Readings []Reading `json:"readings" validate:"required,min=1,dive"`
}

// IngestBulk records a batch of live readings in an open session. Tags
// already recorded get one more read and the stronger signal; new tags are
// resolved against a single tenant snapshot and inserted. Item status is
// not touched until the session ends.
//
// The session row is locked for the whole merge, so concurrent batches on
// one session and a concurrent EndSession are applied one after another.
func (s *Service) IngestBulk(ctx context.Context, actor Actor, sessionID string, readings []Reading) (*IngestResult, error) {
	const op = "ingestBulk"
	if len(readings) > s.opts.MaxReadings {
		return nil, validationError(op, "readings", fmt.Sprintf("at most %d readings per batch", s.opts.MaxReadings))
	}
	if err := validateStruct(op, &ingestBatch{Readings: readings}); err != nil {
		return nil, err
	}
	if err := checkTags(op, "", readings); err != nil {
		return nil, err
	}

	session, err := s.loadSession(ctx, s.store, op, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, invalidState(op, "session is "+string(session.Status))
	}

	observations := dedupe(readings)
	tags := make([]string, len(observations))
	for i, obs := range observations {
		tags[i] = obs.tag
	}

	result := &IngestResult{}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := s.lockSession(ctx, tx, op, actor, session.ID)
		if err != nil {
			return err
		}
		if locked.Status != models.SessionStatusInProgress {
			return invalidState(op, "session is "+string(locked.Status))
		}

		existing, err := tx.Events().FindBySessionAndTags(ctx, session.ID, tags)
		if err != nil {
			return err
		}
		known := make(map[string]models.ScanEvent, len(existing))
		for _, e := range existing {
			known[e.RFIDTag] = e
		}

		// 1. Merge into recorded tags
		var fresh []*observation
		for _, obs := range observations {
			e, ok := known[obs.tag]
			if !ok {
				fresh = append(fresh, obs)
				continue
			}
			if err := tx.Events().UpdateReading(ctx, e.ID, e.ReadCount+1, maxSignal(e.SignalStrength, obs.signal)); err != nil {
				return err
			}
			result.Updated++
		}

		// 2. Resolve and insert new tags
		if len(fresh) > 0 {
			snap, err := s.matcher.Snapshot(ctx, tx.Items(), actor.Scope())
			if err != nil {
				return err
			}
			now := s.clock()
			events := make([]models.ScanEvent, 0, len(fresh))
			for _, obs := range fresh {
				event := models.ScanEvent{
					SessionID:      session.ID,
					RFIDTag:        obs.tag,
					SignalStrength: obs.signal,
					ReadCount:      1,
					SyncStatus:     models.EventSyncPending,
					ScannedAt:      now,
				}
				if obs.capturedAt != nil {
					event.ScannedAt = normalize(*obs.capturedAt)
				}
				if entry, ok := snap.Resolve(obs.tag); ok {
					itemID := entry.ItemID
					event.ItemID = &itemID
					event.SyncStatus = models.EventSyncSynced
				}
				events = append(events, event)
			}
			if err := tx.Events().MergeBatch(ctx, events); err != nil {
				return err
			}
			result.Added = len(events)
		}

		// 3. Denormalized distinct tag count
		total, err := tx.Events().CountBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		result.Total = int(total)
		return tx.Sessions().UpdateItemCount(ctx, session.ID, result.Total)
	})
	if err != nil {
		return nil, internal(op, err)
	}

	s.metrics.ObserveIngest(len(readings), result.Added, result.Updated)
	s.log.Debugw("readings ingested",
		"session", session.ID,
		"readings", len(readings),
		"added", result.Added,
		"updated", result.Updated,
		"total", result.Total,
	)
	return result, nil
}
