package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionType is the business purpose of a scan session
type SessionType string

const (
	SessionTypePickup  SessionType = "pickup"  // Collected at the hotel
	SessionTypeReceive SessionType = "receive" // Unloaded at the laundry
	SessionTypeProcess SessionType = "process" // Washing
	SessionTypeClean   SessionType = "clean"   // Washed and checked
	SessionTypePackage SessionType = "package" // Packed for delivery
	SessionTypeDeliver SessionType = "deliver" // Handed over at the hotel
)

// SessionTypes lists every session type in lifecycle order
var SessionTypes = []SessionType{
	SessionTypePickup,
	SessionTypeReceive,
	SessionTypeProcess,
	SessionTypeClean,
	SessionTypePackage,
	SessionTypeDeliver,
}

// Valid reports whether t is a known session type
func (t SessionType) Valid() bool {
	for _, known := range SessionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SessionStatus is the lifecycle state of a scan session
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress" // Open, accepting readings
	SessionStatusCompleted  SessionStatus = "completed"   // Closed live session
	SessionStatusSynced     SessionStatus = "synced"      // Replayed from an offline batch
)

// Closed reports whether the session no longer accepts readings
func (s SessionStatus) Closed() bool {
	return s == SessionStatusCompleted || s == SessionStatusSynced
}

// EntityType identifies the business record a session is linked to
type EntityType string

const (
	EntityTypePickup   EntityType = "pickup"
	EntityTypeDelivery EntityType = "delivery"
)

// EventSyncStatus is the reconciliation state of a single scan event
type EventSyncStatus string

const (
	EventSyncPending  EventSyncStatus = "pending"  // Tag not resolved to an item yet
	EventSyncSynced   EventSyncStatus = "synced"   // Resolved, no contradicting claim
	EventSyncConflict EventSyncStatus = "conflict" // Lost against an earlier claim
)

// GeoLocation is an optional position where the session was recorded
type GeoLocation struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// ScanSession is one bounded scanning activity by a device or operator
type ScanSession struct {
	ID                string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DeviceID          *string           `gorm:"type:varchar(36);index" json:"deviceId,omitempty"`
	UserID            string            `gorm:"type:varchar(36);not null" json:"userId"`
	TenantID          string            `gorm:"type:varchar(36);not null;index" json:"tenantId"`
	Type              SessionType       `gorm:"type:varchar(20);not null;index" json:"type"`
	RelatedEntityType *EntityType       `gorm:"type:varchar(20)" json:"relatedEntityType,omitempty"`
	RelatedEntityID   *string           `gorm:"type:varchar(36)" json:"relatedEntityId,omitempty"`
	Status            SessionStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	Geo               GeoLocation       `gorm:"embedded;embeddedPrefix:geo_" json:"geo"`
	ItemCount         int               `gorm:"not null;default:0" json:"itemCount"`
	StartedAt         time.Time         `gorm:"not null;index" json:"startedAt"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
	SyncedAt          *time.Time        `json:"syncedAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`

	Events []ScanEvent `gorm:"foreignKey:SessionID" json:"events,omitempty"`
}

// TableName specifies the table name for ScanSession
func (ScanSession) TableName() string {
	return "scan_sessions"
}

// BeforeCreate assigns the session id
func (s *ScanSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// LinkedTo reports whether the session is attached to an entity of type t
func (s *ScanSession) LinkedTo(t EntityType) (string, bool) {
	if s.RelatedEntityType == nil || s.RelatedEntityID == nil || *s.RelatedEntityType != t {
		return "", false
	}
	return *s.RelatedEntityID, true
}

// ScanEvent is the first observation of one tag within a session.
// ReadCount, SignalStrength, ItemID and SyncStatus are the only fields
// that change after creation.
type ScanEvent struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID      string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_session_tag" json:"sessionId"`
	RFIDTag        string          `gorm:"column:rfid_tag;type:varchar(255);not null;uniqueIndex:idx_session_tag;index:idx_tag_scanned" json:"rfidTag"`
	ItemID         *string         `gorm:"type:varchar(36);index" json:"itemId,omitempty"`
	SignalStrength *float64        `json:"signalStrength,omitempty"`
	ReadCount      int             `gorm:"not null;default:1" json:"readCount"`
	SyncStatus     EventSyncStatus `gorm:"type:varchar(20);not null;index" json:"syncStatus"`
	ScannedAt      time.Time       `gorm:"not null;index:idx_tag_scanned" json:"scannedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for ScanEvent
func (ScanEvent) TableName() string {
	return "scan_events"
}

// BeforeCreate assigns the event id
func (e *ScanEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
