package scan

import (
	"context"
	"errors"

	"github.com/xelth-com/ecklinen/internal/models"
	"github.com/xelth-com/ecklinen/internal/repository"
)

// RegisterDevice creates a device on first registration. Registering a
// known id again renames and reactivates it. The second return value
// reports whether a device was created.
func (s *Service) RegisterDevice(ctx context.Context, actor Actor, in RegisterDeviceInput) (*models.Device, bool, error) {
	const op = "registerDevice"
	if err := validateStruct(op, &in); err != nil {
		return nil, false, err
	}
	now := s.clock()

	if in.ID != "" {
		device, err := s.store.Devices().FindByID(ctx, in.ID)
		switch {
		case err == nil:
			if !actor.CanAccess(device.TenantID) {
				return nil, false, forbidden(op, "device belongs to another tenant")
			}
			device.Name = in.Name
			device.IsActive = true
			device.LastSeenAt = &now
			if err := s.store.Devices().Save(ctx, device); err != nil {
				return nil, false, internal(op, err)
			}
			s.log.Infow("device re-registered", "device", device.ID, "tenant", device.TenantID)
			return device, false, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, false, internal(op, err)
		}
	}

	device := &models.Device{
		ID:         in.ID,
		Name:       in.Name,
		TenantID:   actor.TenantID,
		IsActive:   true,
		LastSeenAt: &now,
	}
	if err := s.store.Devices().Create(ctx, device); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Registered concurrently under the same id
			return s.RegisterDevice(ctx, actor, in)
		}
		return nil, false, internal(op, err)
	}

	s.log.Infow("device registered", "device", device.ID, "tenant", device.TenantID)
	s.record(actor, device.TenantID, models.AuditDeviceRegistered, "device", device.ID, map[string]interface{}{
		"name": device.Name,
	})
	return device, true, nil
}

// Heartbeat stamps the device's last-seen time
func (s *Service) Heartbeat(ctx context.Context, actor Actor, deviceID string) (*models.Device, error) {
	const op = "heartbeat"
	device, err := s.loadDevice(ctx, op, actor, deviceID)
	if err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, forbidden(op, "device is deactivated")
	}
	now := s.clock()
	if err := s.store.Devices().Touch(ctx, device.ID, now, nil); err != nil {
		return nil, internal(op, err)
	}
	device.LastSeenAt = &now
	return device, nil
}

// DeactivateDevice soft-deletes a device
func (s *Service) DeactivateDevice(ctx context.Context, actor Actor, deviceID string) (*models.Device, error) {
	const op = "deactivateDevice"
	if !actor.Elevated() {
		return nil, forbidden(op, "elevated role required")
	}
	device, err := s.loadDevice(ctx, op, actor, deviceID)
	if err != nil {
		return nil, err
	}
	device.IsActive = false
	if err := s.store.Devices().Save(ctx, device); err != nil {
		return nil, internal(op, err)
	}
	s.log.Infow("device deactivated", "device", device.ID, "tenant", device.TenantID)
	return device, nil
}

// GetSyncStatus reports a device's last contact, unresolved events, open
// sessions and most recent sessions
func (s *Service) GetSyncStatus(ctx context.Context, actor Actor, deviceID string) (*SyncStatus, error) {
	const op = "getSyncStatus"
	device, err := s.loadDevice(ctx, op, actor, deviceID)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.Events().CountByDeviceAndStatus(ctx, device.ID, models.EventSyncPending)
	if err != nil {
		return nil, internal(op, err)
	}
	open, err := s.store.Sessions().CountByDevice(ctx, device.ID, models.SessionStatusInProgress)
	if err != nil {
		return nil, internal(op, err)
	}
	recent, err := s.store.Sessions().ListRecentByDevice(ctx, device.ID, s.opts.RecentSessions)
	if err != nil {
		return nil, internal(op, err)
	}

	return &SyncStatus{
		DeviceID:       device.ID,
		IsActive:       device.IsActive,
		LastSyncAt:     device.LastSyncAt,
		LastSeenAt:     device.LastSeenAt,
		PendingCount:   pending,
		OpenSessions:   open,
		RecentSessions: recent,
	}, nil
}

// InvalidateSnapshot drops the cached tag registry of the actor's scope so
// newly registered tags resolve on the next read
func (s *Service) InvalidateSnapshot(ctx context.Context, actor Actor) error {
	if !actor.Elevated() {
		return forbidden("invalidateSnapshot", "elevated role required")
	}
	s.matcher.Invalidate(ctx, actor.Scope())
	s.log.Infow("tag registry invalidated", "tenant", actor.Scope(), "user", actor.UserID)
	return nil
}
