package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"scrubber/internal/config"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// BeginRun registers a new run before any documents are processed.
func (s *Store) BeginRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at) VALUES (?, ?)",
		runID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stamps the run's completion time and outcome counts.
func (s *Store) FinishRun(ctx context.Context, runID string, succeeded, failed, skipped int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, skipped = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), succeeded, failed, skipped, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// RecordDocument upserts a document's row for the run. Workers call it when a
// document enters processing and again with the terminal outcome.
func (s *Store) RecordDocument(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (run_id, document_id, source, status, attempts, output_path, error_message, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (run_id, document_id) DO UPDATE SET
             source = excluded.source,
             status = excluded.status,
             attempts = excluded.attempts,
             output_path = excluded.output_path,
             error_message = excluded.error_message,
             updated_at = excluded.updated_at`,
		rec.RunID, rec.DocumentID, rec.Source, string(rec.Status),
		rec.Attempts, rec.OutputPath, rec.ErrorMessage,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record document %s: %w", rec.DocumentID, err)
	}
	return nil
}

// Documents returns the rows recorded for a run ordered by document id.
func (s *Store) Documents(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, document_id, source, status, attempts, output_path, error_message, updated_at
         FROM documents WHERE run_id = ? ORDER BY document_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list documents for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status, updated string
		if err := rows.Scan(&rec.RunID, &rec.DocumentID, &rec.Source, &status,
			&rec.Attempts, &rec.OutputPath, &rec.ErrorMessage, &updated); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		rec.Status = Status(status)
		rec.UpdatedAt = parseTimestamp(updated)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentRuns returns up to limit runs ordered newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, succeeded, failed, skipped
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &started, &finished, &run.Succeeded, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		if finished.Valid {
			ts := parseTimestamp(finished.String)
			run.FinishedAt = &ts
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run, or nil when the ledger is empty.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.RecentRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
