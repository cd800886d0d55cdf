// Package store handles SQLite persistence of confirmed results.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ysegawa/forceplate/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for result records.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			subject TEXT NOT NULL,
			mode TEXT NOT NULL,
			source_file TEXT NOT NULL,
			peak_force_n REAL NOT NULL,
			impulse_ns REAL NOT NULL,
			start_time_s REAL NOT NULL,
			end_time_s REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_results_subject ON results(subject);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertResult stores a confirmed result record.
func (s *Store) InsertResult(ctx context.Context, rec model.ResultRecord, createdAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (created_at, subject, mode, source_file, peak_force_n, impulse_ns, start_time_s, end_time_s)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.Format(time.RFC3339Nano),
		rec.Subject,
		string(rec.Mode),
		rec.SourceFile,
		rec.PeakForce,
		rec.Impulse,
		rec.StartTime,
		rec.EndTime,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListResults returns stored results filtered and ordered by creation time.
func (s *Store) ListResults(ctx context.Context, filter model.ResultFilter) ([]model.StoredResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, filter.Subject)
	}
	if filter.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, filter.Mode)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, created_at, subject, mode, source_file, peak_force_n, impulse_ns, start_time_s, end_time_s
		FROM results
		WHERE %s
		ORDER BY created_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.StoredResult
	for rows.Next() {
		var r model.StoredResult
		var createdAt, mode string
		if err := rows.Scan(&r.ID, &createdAt, &r.Subject, &mode, &r.SourceFile, &r.PeakForce, &r.Impulse, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		r.CreatedAt = parsed
		r.Mode = model.Mode(mode)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(results) > filter.Last {
		results = results[len(results)-filter.Last:]
	}
	return results, nil
}
