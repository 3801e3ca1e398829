package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemStatus is the position of a textile item in the hotel/laundry loop
type ItemStatus string

const (
	ItemStatusAtHotel          ItemStatus = "at_hotel"
	ItemStatusAtLaundry        ItemStatus = "at_laundry"
	ItemStatusProcessing       ItemStatus = "processing"
	ItemStatusReadyForDelivery ItemStatus = "ready_for_delivery"
	ItemStatusLabelPrinted     ItemStatus = "label_printed"
	ItemStatusPackaged         ItemStatus = "packaged"
	ItemStatusInTransit        ItemStatus = "in_transit"
	ItemStatusDelivered        ItemStatus = "delivered"
)

// Item is a reusable RFID-tagged textile. Item CRUD lives outside this
// service; the scan core only writes Status, WashCount, LastWashDate and
// UpdatedAt.
type Item struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RFIDTag      string     `gorm:"column:rfid_tag;type:varchar(255);not null;uniqueIndex" json:"rfidTag"`
	TenantID     string     `gorm:"type:varchar(36);not null;index" json:"tenantId"`
	ItemTypeID   *string    `gorm:"type:varchar(36)" json:"itemTypeId,omitempty"`
	Status       ItemStatus `gorm:"type:varchar(30);not null;default:'at_hotel';index" json:"status"`
	WashCount    int        `gorm:"not null;default:0" json:"washCount"`
	LastWashDate *time.Time `json:"lastWashDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for Item
func (Item) TableName() string {
	return "items"
}

// BeforeCreate assigns the item id
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// PickupItem attaches an item to a pickup record
type PickupItem struct {
	PickupID  string    `gorm:"primaryKey;type:varchar(36)" json:"pickupId"`
	ItemID    string    `gorm:"primaryKey;type:varchar(36)" json:"itemId"`
	SessionID string    `gorm:"type:varchar(36)" json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for PickupItem
func (PickupItem) TableName() string {
	return "pickup_items"
}

// DeliveryItem attaches an item to a delivery record
type DeliveryItem struct {
	DeliveryID string    `gorm:"primaryKey;type:varchar(36)" json:"deliveryId"`
	ItemID     string    `gorm:"primaryKey;type:varchar(36)" json:"itemId"`
	SessionID  string    `gorm:"type:varchar(36)" json:"sessionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for DeliveryItem
func (DeliveryItem) TableName() string {
	return "delivery_items"
}
