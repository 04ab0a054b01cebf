// Package database is the dataset store: imported and uploaded tables kept
// in a local SQLite file so the server can restore a default between runs.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// connPragmas are applied to the store's only connection.
var connPragmas = []string{
	"journal_mode=WAL",
	"foreign_keys=ON",
	"busy_timeout=5000",
}

// DB is a handle on the dataset store.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the store at dbPath, creating the file and its directory on
// first use, and upgrades the schema.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dbPath, err)
	}
	// PRAGMAs are per connection.
	conn.SetMaxOpenConns(1)

	for _, p := range connPragmas {
		if _, err := conn.Exec("PRAGMA " + p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("PRAGMA %s: %w", p, err)
		}
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("upgrading store schema: %w", err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

// Close releases the store.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path is the store's file on disk.
func (db *DB) Path() string {
	return db.path
}
