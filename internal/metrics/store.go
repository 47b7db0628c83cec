// Package metrics persists per-operation call records in SQLite.
//
// The store is an optional subsystem: a nil *Store is valid and turns
// every method into a no-op, so the server keeps working when the
// database cannot be opened.
package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Call is the input for Record: one finished façade operation.
type Call struct {
	Operation string
	Duration  time.Duration
	Success   bool
	ErrorKind string // taxonomy kind name, empty on success
	Attempts  int
}

// Entry is one persisted call record.
type Entry struct {
	ID         int64  `json:"id"`
	Operation  string `json:"operation"`
	DurationMS int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Attempts   int    `json:"attempts"`
	CreatedAt  string `json:"created_at"`
}

// OperationSummary aggregates every recorded call of one operation.
type OperationSummary struct {
	Operation     string  `json:"operation"`
	Calls         int     `json:"calls"`
	Failures      int     `json:"failures"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	MaxDurationMS int64   `json:"max_duration_ms"`
	TotalAttempts int     `json:"total_attempts"`
	LastCall      string  `json:"last_call"`
}

// Store is the SQLite-backed call log.
type Store struct {
	db *sql.DB
}

// Open creates the parent directory if needed, opens SQLite with WAL
// mode, and runs the migration.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("metrics: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metrics: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("metrics: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("metrics: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS api_calls (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			operation   TEXT    NOT NULL,
			duration_ms INTEGER NOT NULL,
			success     INTEGER NOT NULL,
			error_kind  TEXT,
			attempts    INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_calls_operation ON api_calls(operation);
		CREATE INDEX IF NOT EXISTS idx_calls_created   ON api_calls(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists one call. Recording never blocks an operation: the
// caller logs the returned error and moves on.
func (s *Store) Record(c Call) error {
	if s == nil {
		return nil
	}
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var kind any
	if c.ErrorKind != "" {
		kind = c.ErrorKind
	}
	_, err := s.db.Exec(
		`INSERT INTO api_calls (operation, duration_ms, success, error_kind, attempts)
		 VALUES (?, ?, ?, ?, ?)`,
		c.Operation, c.Duration.Milliseconds(), c.Success, kind, attempts,
	)
	return err
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, operation, duration_ms, success, COALESCE(error_kind, ''), attempts, created_at
		 FROM api_calls
		 ORDER BY id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Operation, &e.DurationMS, &e.Success, &e.ErrorKind, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates the call log per operation, ordered by operation
// name for stable output.
func (s *Store) Summary() ([]OperationSummary, error) {
	if s == nil {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT operation,
		       COUNT(*),
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		       AVG(duration_ms),
		       MAX(duration_ms),
		       SUM(attempts),
		       MAX(created_at)
		FROM api_calls
		GROUP BY operation
		ORDER BY operation
	`)
	if err != nil {
		return nil, fmt.Errorf("metrics: summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []OperationSummary
	for rows.Next() {
		var sum OperationSummary
		if err := rows.Scan(&sum.Operation, &sum.Calls, &sum.Failures, &sum.AvgDurationMS, &sum.MaxDurationMS, &sum.TotalAttempts, &sum.LastCall); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
