package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/ecklinen/internal/models"
)

// LinkRepository attaches items to pickup and delivery records
type LinkRepository interface {
	// AttachPickupItems attaches items not yet on the pickup and returns how
	// many were newly attached.
	AttachPickupItems(ctx context.Context, pickupID, sessionID string, itemIDs []string) (int, error)
	// AttachDeliveryItems attaches items not yet on the delivery and returns
	// how many were newly attached.
	AttachDeliveryItems(ctx context.Context, deliveryID, sessionID string, itemIDs []string) (int, error)
	ListPickupItems(ctx context.Context, pickupID string) ([]string, error)
	ListDeliveryItems(ctx context.Context, deliveryID string) ([]string, error)
}

type linkRepository struct {
	db *gorm.DB
}

func missing(all, present []string) []string {
	seen := make(map[string]struct{}, len(present))
	for _, id := range present {
		seen[id] = struct{}{}
	}
	var out []string
	for _, id := range all {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *linkRepository) AttachPickupItems(ctx context.Context, pickupID, sessionID string, itemIDs []string) (int, error) {
	attached, err := r.ListPickupItems(ctx, pickupID)
	if err != nil {
		return 0, err
	}
	ids := missing(itemIDs, attached)
	if len(ids) == 0 {
		return 0, nil
	}
	rows := make([]models.PickupItem, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.PickupItem{PickupID: pickupID, ItemID: id, SessionID: sessionID})
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return 0, errors.Wrap(err, "failed to attach pickup items")
	}
	return len(rows), nil
}

func (r *linkRepository) AttachDeliveryItems(ctx context.Context, deliveryID, sessionID string, itemIDs []string) (int, error) {
	attached, err := r.ListDeliveryItems(ctx, deliveryID)
	if err != nil {
		return 0, err
	}
	ids := missing(itemIDs, attached)
	if len(ids) == 0 {
		return 0, nil
	}
	rows := make([]models.DeliveryItem, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.DeliveryItem{DeliveryID: deliveryID, ItemID: id, SessionID: sessionID})
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return 0, errors.Wrap(err, "failed to attach delivery items")
	}
	return len(rows), nil
}

func (r *linkRepository) ListPickupItems(ctx context.Context, pickupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.PickupItem{}).
		Where("pickup_id = ?", pickupID).
		Order("item_id").
		Pluck("item_id", &ids).Error
	return ids, errors.Wrap(err, "failed to list pickup items")
}

func (r *linkRepository) ListDeliveryItems(ctx context.Context, deliveryID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryItem{}).
		Where("delivery_id = ?", deliveryID).
		Order("item_id").
		Pluck("item_id", &ids).Error
	return ids, errors.Wrap(err, "failed to list delivery items")
}
