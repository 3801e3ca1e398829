package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device represents a handheld or mobile RFID reader registered to a tenant.
// Devices are never hard-deleted; IsActive=false deactivates them.
// Convention: Go PascalCase -> DB snake_case (GORM auto) -> JSON camelCase
type Device struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name       string     `gorm:"type:varchar(255)" json:"name"`
	TenantID   string     `gorm:"type:varchar(36);not null;index" json:"tenantId"`
	IsActive   bool       `gorm:"not null;default:true" json:"isActive"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for Device
func (Device) TableName() string {
	return "devices"
}

// BeforeCreate assigns a UUID when the device did not bring its own
func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
