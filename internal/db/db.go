// Package db provides the durable local note store backed by SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB with Memovox-specific configuration.
type DB struct {
	*sql.DB
}

// Open opens the local SQLite database.
// The database is opened with:
// - WAL mode for concurrent reads/writes
// - Foreign key constraints enabled
// - A single writer connection (SQLite doesn't support multiple writers)
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "memovox.db")

	// modernc.org/sqlite is pure Go, no CGO
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	wrapped := &DB{db}

	if err := wrapped.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return wrapped, nil
}

// initSchema creates the note and reminder tables if absent.
// Audio payloads are stored as BLOBs so they round-trip byte-exact.
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		transcript TEXT NOT NULL,
		audio_data BLOB,
		reminder_at INTEGER,
		created_at INTEGER NOT NULL CHECK(created_at > 0)
	);
	CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_notes_owner_id ON notes(owner_id);

	CREATE TABLE IF NOT EXISTS reminders (
		note_id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		fire_at INTEGER NOT NULL CHECK(fire_at > 0),
		created_at INTEGER NOT NULL CHECK(created_at > 0)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
