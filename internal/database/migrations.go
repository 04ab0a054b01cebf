package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "datasets and observations",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    source TEXT NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS observations (
    dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    date TEXT,
    steps REAL,
    calories REAL,
    workout_minutes REAL,
    sleep_hours REAL,
    water_intake REAL,
    heart_rate REAL,
    PRIMARY KEY (dataset_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(dataset_id, date);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "dataset origin",
		Up: func(tx *sql.Tx) error {
			var n int
			if err := tx.QueryRow(
				"SELECT COUNT(*) FROM pragma_table_info('datasets') WHERE name = 'origin'",
			).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
			_, err := tx.Exec("ALTER TABLE datasets ADD COLUMN origin TEXT")
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
