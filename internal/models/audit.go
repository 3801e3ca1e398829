package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction names what happened in an audit record
type AuditAction string

const (
	AuditSessionStarted   AuditAction = "scan_session.started"
	AuditSessionCompleted AuditAction = "scan_session.completed"
	AuditSessionSynced    AuditAction = "scan_session.synced"
	AuditSessionProjected AuditAction = "scan_session.reprojected"
	AuditConflictResolved AuditAction = "scan_conflict.resolved"
	AuditDeviceRegistered AuditAction = "device.registered"
)

// AuditLog is an append-only record of a scan lifecycle event
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	TenantID   string            `gorm:"type:varchar(36);index" json:"tenantId"`
	UserID     string            `gorm:"type:varchar(36)" json:"userId"`
	Action     AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string            `gorm:"type:varchar(50)" json:"entityType"`
	EntityID   string            `gorm:"type:varchar(36);index" json:"entityId"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
