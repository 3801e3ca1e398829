// Package projection applies a completed session's item status transition.
package projection

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/repository"
	"github.com/xelth-com/ecklinen/internal/rfid"
)

// Result summarizes one projection run
type Result struct {
	Status    models.ItemStatus `json:"status"`
	Items     int               `json:"items"`
	Attached  int               `json:"attached"`
	Rechecked int               `json:"rechecked"`
}

// Projector drives items forward according to Table
type Projector struct {
	matcher *rfid.Matcher
	log     *zap.SugaredLogger
}

// NewProjector creates a Projector
func NewProjector(matcher *rfid.Matcher, log *zap.SugaredLogger) *Projector {
	return &Projector{matcher: matcher, log: log}
}

// Project applies the session's transition to the distinct items its events
// resolved. Events in conflict are skipped. Afterwards events without an
// item are matched again against a fresh snapshot of scope (a tenant id, or
// empty for every tenant) and marked synced when they now resolve.
//
// All writes go through store; callers run Project inside the transaction
// that completes the session.
func (p *Projector) Project(ctx context.Context, store repository.Store, session *models.ScanSession, scope string, now time.Time) (*Result, error) {
	tr, ok := For(session.Type)
	if !ok {
		return nil, fmt.Errorf("no transition for session type %q", session.Type)
	}
	if err := tr.checkPath(); err != nil {
		return nil, fmt.Errorf("transition for %q: %w", session.Type, err)
	}

	events, err := store.Events().ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var itemIDs, unresolved []string
	unresolvedEvents := make(map[string]string)
	seen := make(map[string]struct{})
	for _, e := range events {
		if e.SyncStatus == models.EventSyncConflict {
			continue
		}
		if e.ItemID == nil {
			unresolved = append(unresolved, e.RFIDTag)
			unresolvedEvents[e.RFIDTag] = e.ID
			continue
		}
		if _, dup := seen[*e.ItemID]; dup {
			continue
		}
		seen[*e.ItemID] = struct{}{}
		itemIDs = append(itemIDs, *e.ItemID)
	}

	res := &Result{Status: tr.Final(), Items: len(itemIDs)}

	// 1. Status steps
	for _, step := range tr.Steps {
		if err := store.Items().SetStatus(ctx, itemIDs, step, now); err != nil {
			return nil, err
		}
	}

	// 2. Wash accounting
	if tr.RecordWash {
		if err := store.Items().RecordWash(ctx, itemIDs, now); err != nil {
			return nil, err
		}
	}

	// 3. Attach to the linked pickup or delivery
	if entityID, linked := session.LinkedTo(tr.Attach); tr.Attach != "" && linked {
		var attached int
		switch tr.Attach {
		case models.EntityTypePickup:
			attached, err = store.Links().AttachPickupItems(ctx, entityID, session.ID, itemIDs)
		case models.EntityTypeDelivery:
			attached, err = store.Links().AttachDeliveryItems(ctx, entityID, session.ID, itemIDs)
		}
		if err != nil {
			return nil, err
		}
		res.Attached = attached
	}

	// 4. Re-check tags that did not match, covering items registered
	// while the session was open
	if len(unresolved) > 0 {
		snap, err := p.matcher.Fresh(ctx, store.Items(), scope)
		if err != nil {
			return nil, err
		}
		for tag, entry := range snap.ResolveAll(unresolved) {
			itemID := entry.ItemID
			if err := store.Events().UpdateResolution(ctx, unresolvedEvents[tag], &itemID, models.EventSyncSynced); err != nil {
				return nil, err
			}
			res.Rechecked++
		}
	}

	p.log.Infow("session projected",
		"session", session.ID,
		"type", session.Type,
		"status", res.Status,
		"items", res.Items,
		"attached", res.Attached,
		"rechecked", res.Rechecked,
	)
	return res, nil
}
