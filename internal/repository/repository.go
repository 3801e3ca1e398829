package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/xelth-com/ecklinen/internal/database"
)

// Store bundles the repositories used by the scan core. Repositories
// obtained from the Store passed to Transaction's callback share one
// database transaction.
type Store interface {
	Devices() DeviceRepository
	Sessions() SessionRepository
	Events() EventRepository
	Conflicts() ConflictRepository
	Items() ItemRepository
	Links() LinkRepository
	Audit() AuditRepository

	// Transaction runs fn atomically. Returning an error rolls back every
	// write made through the Store handed to fn.
	Transaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
	tx database.TransactionFunc
}

// NewStore creates a gorm-backed Store
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, tx: database.TransactionFor(db)}
}

func (s *gormStore) Devices() DeviceRepository     { return &deviceRepository{db: s.db} }
func (s *gormStore) Sessions() SessionRepository   { return &sessionRepository{db: s.db} }
func (s *gormStore) Events() EventRepository       { return &eventRepository{db: s.db} }
func (s *gormStore) Conflicts() ConflictRepository { return &conflictRepository{db: s.db} }
func (s *gormStore) Items() ItemRepository         { return &itemRepository{db: s.db} }
func (s *gormStore) Links() LinkRepository         { return &linkRepository{db: s.db} }
func (s *gormStore) Audit() AuditRepository        { return &auditRepository{db: s.db} }

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.tx(ctx, func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
