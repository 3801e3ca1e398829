package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConflictResolution names the policy that decided a conflict
type ConflictResolution string

const (
	ResolutionFirstRecordedWins ConflictResolution = "first_recorded_wins" // Default, applied automatically
	ResolutionLastRecordedWins  ConflictResolution = "last_recorded_wins"
	ResolutionManual            ConflictResolution = "manual"
)

// Valid reports whether r is a known resolution policy
func (r ConflictResolution) Valid() bool {
	switch r {
	case ResolutionFirstRecordedWins, ResolutionLastRecordedWins, ResolutionManual:
		return true
	}
	return false
}

// ScanConflict records two sessions of the same type claiming the same tag
// from different devices within the conflict window.
type ScanConflict struct {
	ID                   string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID             string             `gorm:"type:varchar(36);not null;index" json:"tenantId"`
	RFIDTag              string             `gorm:"column:rfid_tag;type:varchar(255);not null;index" json:"rfidTag"`
	SessionType          SessionType        `gorm:"type:varchar(20);not null" json:"sessionType"`
	WinningSessionID     string             `gorm:"type:varchar(36);not null" json:"winningSessionId"`
	ConflictingSessionID string             `gorm:"type:varchar(36);not null" json:"conflictingSessionId"`
	WinningDeviceID      *string            `gorm:"type:varchar(36)" json:"winningDeviceId,omitempty"`
	ConflictingDeviceID  *string            `gorm:"type:varchar(36)" json:"conflictingDeviceId,omitempty"`
	WinningScannedAt     time.Time          `json:"winningScannedAt"`
	ConflictingScannedAt time.Time          `json:"conflictingScannedAt"`
	Resolution           ConflictResolution `gorm:"type:varchar(30);not null" json:"resolution"`
	IsResolved           bool               `gorm:"not null;default:false;index" json:"isResolved"`
	ResolvedAt           *time.Time         `json:"resolvedAt,omitempty"`
	ResolvedBy           *string            `gorm:"type:varchar(36)" json:"resolvedBy,omitempty"`
	CreatedAt            time.Time          `gorm:"index" json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// TableName specifies the table name for ScanConflict
func (ScanConflict) TableName() string {
	return "scan_conflicts"
}

// BeforeCreate assigns the conflict id
func (c *ScanConflict) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// SwapSides exchanges the winning and conflicting claims
func (c *ScanConflict) SwapSides() {
	c.WinningSessionID, c.ConflictingSessionID = c.ConflictingSessionID, c.WinningSessionID
	c.WinningDeviceID, c.ConflictingDeviceID = c.ConflictingDeviceID, c.WinningDeviceID
	c.WinningScannedAt, c.ConflictingScannedAt = c.ConflictingScannedAt, c.WinningScannedAt
}
