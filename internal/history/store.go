// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists run and per-file processing records so earlier
// runs can be inspected after the browser session is gone.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/regtet/image-processor/pkg/types"
)

const dbFile = "history.db"

// Store manages the processing history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at dir/history.db, creating
// the schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_dir TEXT NOT NULL,
			format TEXT NOT NULL,
			converted INTEGER NOT NULL DEFAULT 0,
			compressed INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			step TEXT NOT NULL,
			input_path TEXT,
			output_path TEXT,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT,
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun inserts a new run row when processing starts.
func (s *Store) RecordRun(run types.Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, input_dir, format, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.InputDir, string(run.Format), run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the final counts and finish time for a run.
func (s *Store) FinishRun(run types.Run) error {
	res, err := s.db.Exec(
		`UPDATE runs SET converted = ?, compressed = ?, failed = ?, finished_at = ? WHERE id = ?`,
		run.Converted, run.Compressed, run.Failed,
		run.FinishedAt.UTC().Format(time.RFC3339), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// RecordFile inserts one per-file record for a run.
func (s *Store) RecordFile(runID string, rec types.FileRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO files (run_id, step, input_path, output_path, size_bytes, status, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Step, rec.InputPath, rec.OutputPath, rec.SizeBytes,
		string(rec.Status), rec.Error, rec.ProcessedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting file record for run %s: %w", runID, err)
	}
	return nil
}

// RecordFiles inserts all records in one transaction.
func (s *Store) RecordFiles(runID string, recs []types.FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	for _, rec := range recs {
		_, err := tx.Exec(
			`INSERT INTO files (run_id, step, input_path, output_path, size_bytes, status, error, processed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, rec.Step, rec.InputPath, rec.OutputPath, rec.SizeBytes,
			string(rec.Status), rec.Error, rec.ProcessedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting file record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing file records: %w", err)
	}
	return nil
}

// RecentRuns returns up to n runs, most recently started first.
func (s *Store) RecentRuns(n int) ([]types.Run, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.Query(
		`SELECT id, input_dir, format, converted, compressed, failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var (
			run      types.Run
			format   string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.InputDir, &format, &run.Converted,
			&run.Compressed, &run.Failed, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Format = types.ImageFormat(format)
		if t, parseErr := time.Parse(time.RFC3339, started); parseErr == nil {
			run.StartedAt = t
		}
		if finished.Valid {
			if t, parseErr := time.Parse(time.RFC3339, finished.String); parseErr == nil {
				run.FinishedAt = t
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunFiles returns the per-file records of one run in insertion order.
func (s *Store) RunFiles(runID string) ([]types.FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT step, input_path, output_path, size_bytes, status, error, processed_at
		 FROM files WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying files for run %s: %w", runID, err)
	}
	defer rows.Close()

	var recs []types.FileRecord
	for rows.Next() {
		var (
			rec       types.FileRecord
			status    string
			processed string
		)
		if err := rows.Scan(&rec.Step, &rec.InputPath, &rec.OutputPath,
			&rec.SizeBytes, &status, &rec.Error, &processed); err != nil {
			return nil, fmt.Errorf("scanning file record: %w", err)
		}
		rec.Status = types.FileStatus(status)
		if t, parseErr := time.Parse(time.RFC3339, processed); parseErr == nil {
			rec.ProcessedAt = t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
