package rfid

import (
	"context"

	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/models"
)

// ItemSource loads the tag registry. An empty tenantID means all tenants.
type ItemSource interface {
	ListTags(ctx context.Context, tenantID string) ([]models.Item, error)
}

// SnapshotCache stores registry entries per tenant. Implementations expire
// entries after their TTL; Invalidate drops an entry immediately.
type SnapshotCache interface {
	Get(ctx context.Context, tenantID string) ([]Entry, bool, error)
	Put(ctx context.Context, tenantID string, entries []Entry) error
	Invalidate(ctx context.Context, tenantID string) error
}

// Matcher hands out tenant snapshots, served from the cache when one is
// configured
type Matcher struct {
	cache SnapshotCache
	log   *zap.SugaredLogger
}

// NewMatcher creates a Matcher. cache may be nil.
func NewMatcher(cache SnapshotCache, log *zap.SugaredLogger) *Matcher {
	return &Matcher{cache: cache, log: log}
}

// Snapshot returns the tenant's snapshot, from the cache when possible.
// Cache failures are logged and fall through to the source.
func (m *Matcher) Snapshot(ctx context.Context, src ItemSource, tenantID string) (*Snapshot, error) {
	if m.cache != nil {
		entries, ok, err := m.cache.Get(ctx, tenantID)
		if err != nil {
			m.log.Warnw("snapshot cache read failed", "tenant", tenantID, "error", err)
		} else if ok {
			return NewSnapshot(tenantID, entries), nil
		}
	}
	return m.Fresh(ctx, src, tenantID)
}

// Fresh loads the tenant's snapshot from the source, bypassing the cache,
// and refreshes the cache with the result
func (m *Matcher) Fresh(ctx context.Context, src ItemSource, tenantID string) (*Snapshot, error) {
	items, err := src.ListTags(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{ItemID: item.ID, Tag: item.RFIDTag, TenantID: item.TenantID})
	}

	if m.cache != nil {
		if err := m.cache.Put(ctx, tenantID, entries); err != nil {
			m.log.Warnw("snapshot cache write failed", "tenant", tenantID, "error", err)
		}
	}
	snap := NewSnapshot(tenantID, entries)
	m.log.Debugw("tag registry loaded", "tenant", snap.TenantID(), "tags", snap.Len())
	return snap, nil
}

// Invalidate drops the tenant's cached snapshot
func (m *Matcher) Invalidate(ctx context.Context, tenantID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, tenantID); err != nil {
		m.log.Warnw("snapshot cache invalidation failed", "tenant", tenantID, "error", err)
	}
}
