package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// TransactionFunc runs fn inside a transaction bound to ctx. The transaction
// commits when fn returns nil and rolls back otherwise.
type TransactionFunc func(ctx context.Context, fn func(tx *gorm.DB) error, opts ...*sql.TxOptions) error

// TransactionFor returns a TransactionFunc over a plain gorm handle
func TransactionFor(db *gorm.DB) TransactionFunc {
	return func(ctx context.Context, fn func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
		var o *sql.TxOptions
		if len(opts) > 0 {
			o = opts[0]
		}
		return db.WithContext(ctx).Transaction(fn, o)
	}
}
