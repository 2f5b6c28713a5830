// Package history keeps an optional SQLite record of past jarcompare runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/jarcompare/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

// RunRecord is one stored run.
type RunRecord struct {
	ID             int64
	RunID          string
	Dir            string
	Extension      string
	Mode           string
	Scanned        int
	DuplicateCount int
	WriteFailures  int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store manages the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// NewStore opens (creating if needed) the database at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: an in-memory database is per connection, and a single
	// CLI process never needs more.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry retries a statement with exponential backoff while the
// database reports itself locked.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a run and its duplicate records in one transaction.
func (s *Store) RecordRun(ctx context.Context, summary models.RunSummary) error {
	if summary.RunID == "" {
		return fmt.Errorf("record run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, dir, extension, mode, scanned, duplicate_count, write_failures, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Dir,
		summary.Extension,
		summary.Mode,
		summary.Scanned,
		summary.DuplicateCount(),
		summary.WriteFailures,
		summary.StartedAt.UTC().Format(timeLayout),
		summary.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, d := range summary.Duplicates {
		_, err := tx.ExecContext(ctx, `INSERT INTO duplicates
			(run_id, position, base_name, file, previous)
			VALUES (?, ?, ?, ?, ?)`,
			summary.RunID, i, d.BaseName, d.File, d.Previous,
		)
		if err != nil {
			return fmt.Errorf("insert duplicate %s: %w", d.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, run_id, dir, extension, mode, scanned, duplicate_count, write_failures, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*RunRecord, error) {
	rec := &RunRecord{}
	var started, finished string
	if err := row.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Dir,
		&rec.Extension,
		&rec.Mode,
		&rec.Scanned,
		&rec.DuplicateCount,
		&rec.WriteFailures,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return rec, nil
}

// ListRuns returns up to limit runs, most recent first. limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run and its duplicate records in detection order.
// A run ID prefix is accepted when it is unambiguous. The prefix is compared
// literally, so "%" and "_" match only themselves.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, []models.DuplicateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE substr(run_id, 1, length(?)) = ? ORDER BY id DESC LIMIT 2`, runID, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query run: %w", err)
	}

	var matches []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, rec)
	}
	rows.Close()

	switch {
	case runID == "" || len(matches) == 0:
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	case len(matches) > 1 && matches[0].RunID != runID:
		return nil, nil, fmt.Errorf("run id prefix %q is ambiguous", runID)
	}
	run := matches[0]

	dupRows, err := s.db.QueryContext(ctx, `SELECT base_name, file, previous FROM duplicates WHERE run_id = ? ORDER BY position`, run.RunID)
	if err != nil {
		return nil, nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer dupRows.Close()

	var dups []models.DuplicateRecord
	for dupRows.Next() {
		var d models.DuplicateRecord
		if err := dupRows.Scan(&d.BaseName, &d.File, &d.Previous); err != nil {
			return nil, nil, fmt.Errorf("scan duplicate: %w", err)
		}
		dups = append(dups, d)
	}
	if err := dupRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate duplicates: %w", err)
	}

	return run, dups, nil
}

// Prune deletes all but the keep most recent runs. keep <= 0 keeps everything.
// It returns the number of runs deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicates WHERE run_id NOT IN (SELECT run_id FROM runs)`); err != nil {
		return 0, fmt.Errorf("prune duplicates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return deleted, nil
}

// BaseNameCounts returns how often each base name was flagged across all
// stored runs, most frequent first.
func (s *Store) BaseNameCounts(ctx context.Context, limit int) ([]BaseNameCount, error) {
	query := `SELECT base_name, COUNT(*) AS n FROM duplicates GROUP BY base_name ORDER BY n DESC, base_name ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query base names: %w", err)
	}
	defer rows.Close()

	var counts []BaseNameCount
	for rows.Next() {
		var c BaseNameCount
		if err := rows.Scan(&c.BaseName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan base name: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// BaseNameCount is an aggregate of flagged files per library.
type BaseNameCount struct {
	BaseName string
	Count    int
}
