// internal/output/history.go
package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/griogair/embedfeed/internal/pipeline"
)

// HistoryStore records harvest runs in a local SQLite database so past runs
// can be inspected after the fact. Recording is best-effort; callers log
// failures and continue.
type HistoryStore struct {
	db     *sql.DB
	closed bool
}

// NewHistoryStore opens (or creates) the history database at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &HistoryStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *HistoryStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			feeds INTEGER NOT NULL,
			failed_feeds INTEGER NOT NULL,
			entries INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feed_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			feed TEXT NOT NULL,
			found INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			resolved INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			entries INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_runs_run ON feed_runs(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate history schema: %w", err)
		}
	}
	return nil
}

// FeedRecord is one feed's outcome within a run.
type FeedRecord struct {
	Feed     string
	Counters pipeline.Counters
	Entries  int
}

// RecordRun inserts a run and its per-feed records in one transaction.
func (s *HistoryStore) RecordRun(startedAt, finishedAt time.Time, failedFeeds int, feeds []FeedRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	totalEntries := 0
	for _, f := range feeds {
		totalEntries += f.Entries
	}

	result, err := tx.Exec(
		`INSERT INTO runs (started_at, finished_at, feeds, failed_feeds, entries) VALUES (?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339), finishedAt.UTC().Format(time.RFC3339),
		len(feeds), failedFeeds, totalEntries,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO feed_runs (run_id, feed, found, duplicates, resolved, skipped, entries)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare feed insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range feeds {
		found, duplicates := 0, 0
		for _, n := range f.Counters.Found {
			found += n
		}
		for _, n := range f.Counters.Duplicates {
			duplicates += n
		}
		if _, err := stmt.Exec(runID, f.Feed, found, duplicates,
			f.Counters.Resolved, f.Counters.Skipped, f.Entries); err != nil {
			return fmt.Errorf("failed to insert feed record: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row from the runs table.
type RunSummary struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Feeds       int
	FailedFeeds int
	Entries     int
}

// RecentRuns returns up to limit runs, newest first.
func (s *HistoryStore) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, feeds, failed_feeds, entries
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Feeds, &r.FailedFeeds, &r.Entries); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			r.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			r.FinishedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	if s.db != nil && !s.closed {
		err := s.db.Close()
		s.closed = true
		return err
	}
	return nil
}
