package scan

import (
	"time"

	"github.com/xelth-com/ecklinen/internal/models"
)

// RelatedEntity links a session to a pickup or delivery record
type RelatedEntity struct {
	Type models.EntityType `json:"type" validate:"required,oneof=pickup delivery"`
	ID   string            `json:"id" validate:"required,max=36"`
}

// StartInput opens a session
type StartInput struct {
	DeviceID      *string                `json:"deviceId,omitempty"`
	Type          models.SessionType     `json:"type" validate:"required,session_type"`
	RelatedEntity *RelatedEntity         `json:"relatedEntity,omitempty" validate:"omitempty"`
	Geo           *models.GeoLocation    `json:"geo,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// EndInput closes a session
type EndInput struct {
	ItemCount *int                   `json:"itemCount,omitempty" validate:"omitempty,min=0"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Reading is one tag observation reported by a reader
type Reading struct {
	Tag            string     `json:"tag" validate:"required,max=255"`
	SignalStrength *float64   `json:"signalStrength,omitempty"`
	CapturedAt     *time.Time `json:"capturedAt,omitempty"`
}

// IngestResult reports what a bulk submission changed
type IngestResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// OfflineSession is a session captured and closed while the device had no
// connectivity. Every reading must carry its capture time.
type OfflineSession struct {
	LocalID       string                 `json:"localId" validate:"required,max=100"`
	Type          models.SessionType     `json:"type" validate:"required,session_type"`
	RelatedEntity *RelatedEntity         `json:"relatedEntity,omitempty" validate:"omitempty"`
	Geo           *models.GeoLocation    `json:"geo,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Readings      []Reading              `json:"readings" validate:"dive"`
	StartedAt     *time.Time             `json:"startedAt" validate:"required"`
	CompletedAt   *time.Time             `json:"completedAt" validate:"required"`
}

// Outcome is the result of replaying one offline session
type Outcome string

const (
	OutcomeSynced   Outcome = "synced"
	OutcomeConflict Outcome = "conflict"
	OutcomeError    Outcome = "error"
)

// ContestedTag describes one tag that lost against an earlier claim
type ContestedTag struct {
	ConflictID           string  `json:"conflictId"`
	Tag                  string  `json:"tag"`
	WinningSessionID     string  `json:"winningSessionId"`
	WinningDeviceID      *string `json:"winningDeviceId,omitempty"`
	ConflictingSessionID string  `json:"conflictingSessionId"`
}

// SessionOutcome is reported for every submitted offline session
type SessionOutcome struct {
	LocalID   string         `json:"localId"`
	Outcome   Outcome        `json:"outcome"`
	SessionID string         `json:"sessionId,omitempty"`
	ItemCount int            `json:"itemCount"`
	Conflicts []ContestedTag `json:"conflicts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// SyncResult answers an offline sync call
type SyncResult struct {
	DeviceID string           `json:"deviceId"`
	SyncedAt time.Time        `json:"syncedAt"`
	Results  []SessionOutcome `json:"results"`
}

// SyncStatus summarizes a device's reconciliation state
type SyncStatus struct {
	DeviceID       string               `json:"deviceId"`
	IsActive       bool                 `json:"isActive"`
	LastSyncAt     *time.Time           `json:"lastSyncAt"`
	LastSeenAt     *time.Time           `json:"lastSeenAt"`
	PendingCount   int64                `json:"pendingCount"`
	OpenSessions   int64                `json:"openSessions"`
	RecentSessions []models.ScanSession `json:"recentSessions"`
}

// ConflictFilter narrows ListConflicts
type ConflictFilter struct {
	Resolved *bool
	Tag      string
	Limit    int
}

// ResolveInput overrides a conflict's outcome
type ResolveInput struct {
	Resolution       models.ConflictResolution `json:"resolution" validate:"required,resolution"`
	WinningSessionID *string                   `json:"winningSessionId,omitempty"`
}

// RegisterDeviceInput registers or re-registers a reader
type RegisterDeviceInput struct {
	ID   string `json:"deviceId,omitempty" validate:"omitempty,uuid"`
	Name string `json:"name" validate:"required,max=255"`
}
