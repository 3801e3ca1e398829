package database

import (
	"github.com/xelth-com/ecklinen/internal/models"
)

// Models lists every table owned or touched by the scan core
var Models = []interface{}{
	&models.Device{},
	&models.Item{},
	&models.ScanSession{},
	&models.ScanEvent{},
	&models.ScanConflict{},
	&models.PickupItem{},
	&models.DeliveryItem{},
	&models.AuditLog{},
}

// Migrate synchronizes the schema
func (db *DB) Migrate() error {
	return db.DB.AutoMigrate(Models...)
}
