package scan

import (
	"context"
	"errors"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/repository"
)

// ListConflicts returns the actor's tenant conflicts, newest first
func (s *Service) ListConflicts(ctx context.Context, actor Actor, filter ConflictFilter) ([]models.ScanConflict, error) {
	const op = "listConflicts"
	q := repository.ConflictFilter{
		Resolved: filter.Resolved,
		Tag:      filter.Tag,
		Limit:    filter.Limit,
	}
	if scope := actor.Scope(); scope != "" {
		q.TenantID = &scope
	}
	conflicts, err := s.store.Conflicts().List(ctx, q)
	if err != nil {
		return nil, internal(op, err)
	}
	return conflicts, nil
}

// ResolveConflict overrides a conflict's winner and policy. Item status is
// not projected again.
//
// An explicit WinningSessionID must name one of the two sessions. Without
// one, first_recorded_wins makes the earlier capture the winner,
// last_recorded_wins the later one, and manual keeps the current sides.
func (s *Service) ResolveConflict(ctx context.Context, actor Actor, conflictID string, in ResolveInput) (*models.ScanConflict, error) {
	const op = "resolveConflict"
	if !actor.Elevated() {
		return nil, forbidden(op, "elevated role required")
	}
	if err := validateStruct(op, &in); err != nil {
		return nil, err
	}

	conflict, err := s.store.Conflicts().FindByID(ctx, conflictID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(op, "conflict")
	}
	if err != nil {
		return nil, internal(op, err)
	}
	if !actor.CanAccess(conflict.TenantID) {
		return nil, forbidden(op, "conflict belongs to another tenant")
	}

	switch {
	case in.WinningSessionID != nil:
		switch *in.WinningSessionID {
		case conflict.WinningSessionID:
		case conflict.ConflictingSessionID:
			conflict.SwapSides()
		default:
			return nil, validationError(op, "winningSessionId", "session is not part of this conflict")
		}
	case in.Resolution == models.ResolutionFirstRecordedWins:
		if conflict.ConflictingScannedAt.Before(conflict.WinningScannedAt) {
			conflict.SwapSides()
		}
	case in.Resolution == models.ResolutionLastRecordedWins:
		if conflict.WinningScannedAt.Before(conflict.ConflictingScannedAt) {
			conflict.SwapSides()
		}
	}

	now := s.clock()
	resolver := actor.UserID
	conflict.Resolution = in.Resolution
	conflict.IsResolved = true
	conflict.ResolvedAt = &now
	conflict.ResolvedBy = &resolver
	if err := s.store.Conflicts().Save(ctx, conflict); err != nil {
		return nil, internal(op, err)
	}

	s.metrics.ObserveResolution(string(in.Resolution))
	s.log.Infow("scan conflict resolved",
		"conflict", conflict.ID,
		"resolution", conflict.Resolution,
		"winningSession", conflict.WinningSessionID,
		"resolvedBy", resolver,
	)
	s.record(actor, conflict.TenantID, models.AuditConflictResolved, "scan_conflict", conflict.ID, map[string]interface{}{
		"resolution":       conflict.Resolution,
		"winningSessionId": conflict.WinningSessionID,
	})
	return conflict, nil
}
