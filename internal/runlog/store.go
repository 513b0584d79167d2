// Package runlog persists a summary of each completed pipeline run to a
// local SQLite database, for `dataforge report --history`. This is
// diagnostic history about runs, not in-flight pipeline state; the
// scheduler itself persists nothing.
package runlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forgekiln/dataforge/internal/driver"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	submitted INTEGER NOT NULL,
	items_per_second REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS run_stages (
	run_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	name TEXT NOT NULL,
	pool_size INTEGER NOT NULL,
	processed INTEGER NOT NULL,
	rejected INTEGER NOT NULL,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

// Store is a handle on the run-history database.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path, running
// the schema migration idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordRun upserts report as one row in runs plus one row per stage in
// run_stages, replacing any prior stage rows for the same run id.
func (s *Store) RecordRun(report *driver.Report, startedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("runlog: starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, duration_ms, submitted, items_per_second)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at=excluded.started_at,
			duration_ms=excluded.duration_ms,
			submitted=excluded.submitted,
			items_per_second=excluded.items_per_second
	`, report.RunID, startedAt.Unix(), report.Duration.Milliseconds(), report.Submitted, report.ItemsPerSecond)
	if err != nil {
		return fmt.Errorf("runlog: upserting run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM run_stages WHERE run_id = ?`, report.RunID); err != nil {
		return fmt.Errorf("runlog: clearing prior stage rows: %w", err)
	}

	for _, st := range report.Stages {
		_, err := tx.Exec(`
			INSERT INTO run_stages (run_id, task_id, name, pool_size, processed, rejected)
			VALUES (?, ?, ?, ?, ?, ?)
		`, report.RunID, st.TaskID, st.Name, st.PoolSize, st.Processed, st.Rejected)
		if err != nil {
			return fmt.Errorf("runlog: inserting stage row: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of run history, without its per-stage breakdown.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	Submitted      int64
	ItemsPerSecond float64
}

// History returns the most recent runs, newest first, bounded to limit rows
// (limit <= 0 means unbounded).
func (s *Store) History(limit int) ([]RunSummary, error) {
	query := `SELECT id, started_at, duration_ms, submitted, items_per_second FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runlog: querying history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var startedAt, durationMs int64
		if err := rows.Scan(&r.RunID, &startedAt, &durationMs, &r.Submitted, &r.ItemsPerSecond); err != nil {
			return nil, fmt.Errorf("runlog: scanning history row: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
