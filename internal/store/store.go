// Package store provides the SQLite-backed persistence layer.
//
// It is the sole writer of ingest status transitions and transcription
// records. All writes go through database/sql with the pure-Go sqlite
// driver, so the service needs no cgo.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the service database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an already-open database handle. The schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle so the integrity chain can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema returns the embedded schema SQL. Used by test helpers and tooling.
func Schema() string {
	return schemaSQL
}
