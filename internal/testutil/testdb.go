package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"voice-capture-service/internal/store"
)

// OpenTestDB creates an in-memory SQLite DB and applies the service schema.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	// An in-memory database exists per connection; keep the pool at one so
	// every query sees the same database.
	db.SetMaxOpenConns(1)

	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	if _, err := db.Exec(store.Schema()); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
