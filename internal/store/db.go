package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"

	"retail-insights/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store keeps a record of processing runs in sqlite. Datasets themselves are
// never stored here.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT,
	status TEXT,
	records_in INTEGER,
	records_out INTEGER,
	stages TEXT,
	started_at DATETIME,
	ended_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS run_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	error_message TEXT,
	created_at DATETIME
);
`

// Open opens (creating if needed) the run database at path.
func Open(path string, clock clockwork.Clock) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}
	return &Store{db: db, clock: clock}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run.
func (s *Store) StartRun(ctx context.Context, run model.RunSummary) error {
	now := s.clock.Now().UTC()
	status := run.Status
	if status == "" {
		status = model.RunPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, records_in, records_out, stages, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, status, run.RecordsIn, run.RecordsOut, "[]", run.StartTime.UTC(), now)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun stores the final state of a run and its error, if any.
func (s *Store) FinishRun(ctx context.Context, run model.RunSummary) error {
	stages, err := json.Marshal(run.Stages)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, records_in = ?, records_out = ?, stages = ?, ended_at = ?, updated_at = ? WHERE id = ?`,
		run.Status, run.RecordsIn, run.RecordsOut, string(stages), run.EndTime.UTC(), now, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}

	if run.Error != "" {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
			run.RunID, run.Error, now); err != nil {
			return fmt.Errorf("failed to save run error: %w", err)
		}
	}
	return nil
}

// GetRun fetches a run with its stages and last error.
func (s *Store) GetRun(ctx context.Context, runID string) (model.RunSummary, error) {
	var (
		run     model.RunSummary
		stages  string
		endedAt sql.NullTime
		lastErr sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.source, r.status, r.records_in, r.records_out, r.stages, r.started_at, r.ended_at,
			(SELECT e.error_message FROM run_errors e WHERE e.run_id = r.id ORDER BY e.id DESC LIMIT 1)
		FROM runs r WHERE r.id = ?`, runID).
		Scan(&run.RunID, &run.Source, &run.Status, &run.RecordsIn, &run.RecordsOut, &stages, &run.StartTime, &endedAt, &lastErr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return model.RunSummary{}, err
	}

	if err := json.Unmarshal([]byte(stages), &run.Stages); err != nil {
		return model.RunSummary{}, fmt.Errorf("bad stages for run %s: %w", runID, err)
	}
	run.EndTime = endedAt.Time
	run.Error = lastErr.String
	return run, nil
}

// ListRuns returns the most recent runs first, without stage detail.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, records_in, records_out, started_at, ended_at FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.RunSummary, 0)
	for rows.Next() {
		var run model.RunSummary
		var endedAt sql.NullTime
		if err := rows.Scan(&run.RunID, &run.Source, &run.Status, &run.RecordsIn, &run.RecordsOut, &run.StartTime, &endedAt); err != nil {
			return nil, err
		}
		run.EndTime = endedAt.Time
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
