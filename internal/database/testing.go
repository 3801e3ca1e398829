package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// NewTestDatabase opens a private in-memory sqlite database with the full
// schema migrated. It is closed when the test ends.
func NewTestDatabase(t testing.TB) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := OpenSQLite(dsn, "silent")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
