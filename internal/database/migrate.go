package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// schemaVersion is the last migration applied, kept in PRAGMA user_version.
// A fresh store is at 0.
func schemaVersion(conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// migrate applies every migration newer than the store's schema version.
func migrate(conn *sql.DB) error {
	from, err := schemaVersion(conn)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.Version <= from {
			continue
		}
		if err := apply(conn, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(conn *sql.DB, m Migration) error {
	slog.Info("upgrading dataset store", "to", m.Version, "step", m.Description)

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}

	// user_version is written outside the transaction; every step is
	// idempotent so an interrupted upgrade re-runs cleanly.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("migration %d: recording version: %w", m.Version, err)
	}
	return nil
}
