package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

// ErrNotFound is returned when a dataset id does not resolve.
var ErrNotFound = errors.New("dataset not found")

// metricColumns maps each metric to its observations column.
var metricColumns = map[dataset.Metric]string{
	dataset.Steps:          "steps",
	dataset.Calories:       "calories",
	dataset.WorkoutMinutes: "workout_minutes",
	dataset.SleepHours:     "sleep_hours",
	dataset.WaterIntake:    "water_intake",
	dataset.HeartRate:      "heart_rate",
}

const (
	dateLayout  = "2006-01-02"
	sqliteTime  = "2006-01-02 15:04:05"
	datasetCols = "id, name, source, origin, row_count, is_default, created_at"
)

func observationColumns() []string {
	cols := []string{"date"}
	for _, m := range dataset.AllMetrics() {
		cols = append(cols, metricColumns[m])
	}
	return cols
}

// SaveDataset stores t and its rows. origin records where the data came
// from (a file path or "upload").
func (db *DB) SaveDataset(t *dataset.Table, origin string) (*Dataset, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO datasets (id, name, source, origin, row_count) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Source, nullString(origin), t.Len(),
	); err != nil {
		return nil, fmt.Errorf("inserting dataset: %w", err)
	}

	cols := observationColumns()
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO observations (dataset_id, row_index, %s) VALUES (?, ?%s)",
		strings.Join(cols, ", "), strings.Repeat(", ?", len(cols)),
	))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := make([]any, 0, len(cols)+2)
	for i, o := range t.Rows {
		args = append(args[:0], t.ID, i, nullDate(o))
		for _, m := range dataset.AllMetrics() {
			args = append(args, nullFloat(o.Value(m)))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return nil, fmt.Errorf("inserting row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return db.GetDatasetInfo(t.ID)
}

// GetDatasetInfo returns the catalogue entry for id, or nil if not found.
func (db *DB) GetDatasetInfo(id string) (*Dataset, error) {
	row := db.conn.QueryRow("SELECT "+datasetCols+" FROM datasets WHERE id = ?", id)
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// GetDataset loads the dataset with id including its rows, or nil if not
// found.
func (db *DB) GetDataset(id string) (*dataset.Table, error) {
	d, err := db.GetDatasetInfo(id)
	if err != nil || d == nil {
		return nil, err
	}
	return db.loadTable(d)
}

func (db *DB) loadTable(d *Dataset) (*dataset.Table, error) {
	rows, err := db.conn.Query(
		"SELECT "+strings.Join(observationColumns(), ", ")+
			" FROM observations WHERE dataset_id = ? ORDER BY row_index", d.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := dataset.AllMetrics()
	obs := make([]dataset.Observation, 0, d.Rows)
	for rows.Next() {
		var date sql.NullString
		vals := make([]sql.NullFloat64, len(metrics))
		dest := []any{&date}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		var day time.Time
		if date.Valid {
			day, _ = time.Parse(dateLayout, date.String)
		}
		o := dataset.NewObservation(day)
		for i, m := range metrics {
			if vals[i].Valid {
				o.Values[m] = vals[i].Float64
			}
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t := &dataset.Table{ID: d.ID, Name: d.Name, Source: d.Source, Rows: obs}
	if d.CreatedAt != nil {
		t.LoadedAt, _ = time.Parse(sqliteTime, *d.CreatedAt)
	}
	return t, nil
}

// ListDatasets returns all stored datasets, newest first.
func (db *DB) ListDatasets() ([]Dataset, error) {
	rows, err := db.conn.Query("SELECT " + datasetCols + " FROM datasets ORDER BY created_at DESC, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ResolveID expands a unique id prefix to the full dataset id.
func (db *DB) ResolveID(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrNotFound
	}
	rows, err := db.conn.Query("SELECT id FROM datasets WHERE id LIKE ? || '%' LIMIT 2", prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("ambiguous dataset id %q", prefix)
	}
}

// DeleteDataset removes a dataset and its rows. Returns false if it did not
// exist.
func (db *DB) DeleteDataset(id string) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM observations WHERE dataset_id = ?", id); err != nil {
		return false, err
	}
	res, err := tx.Exec("DELETE FROM datasets WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// SetDefaultDataset marks id as the dataset served when no file is
// configured. Only one dataset is the default at a time.
func (db *DB) SetDefaultDataset(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM datasets WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.Exec("UPDATE datasets SET is_default = 0 WHERE is_default = 1"); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE datasets SET is_default = 1 WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearDefaultDataset unmarks the default dataset, if any.
func (db *DB) ClearDefaultDataset() error {
	_, err := db.conn.Exec("UPDATE datasets SET is_default = 0 WHERE is_default = 1")
	return err
}

// GetDefaultDataset loads the default dataset, or nil if none is set.
func (db *DB) GetDefaultDataset() (*dataset.Table, error) {
	row := db.conn.QueryRow("SELECT " + datasetCols + " FROM datasets WHERE is_default = 1 LIMIT 1")
	d, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.loadTable(d)
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM datasets", &s.Datasets},
		{"SELECT COUNT(*) FROM observations", &s.Observations},
		{"SELECT COUNT(DISTINCT substr(date, 1, 7)) FROM observations WHERE date IS NOT NULL", &s.Months},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	err := db.conn.QueryRow("SELECT name FROM datasets WHERE is_default = 1 LIMIT 1").Scan(&s.DefaultName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (*Dataset, error) {
	var d Dataset
	var isDefault int
	if err := s.Scan(&d.ID, &d.Name, &d.Source, &d.Origin, &d.Rows, &isDefault, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.IsDefault = isDefault == 1
	return &d, nil
}

func nullFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullDate(o dataset.Observation) any {
	if !o.HasDate() {
		return nil
	}
	return o.Date.Format(dateLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
