// Package history persists analysis runs in SQLite so results can be listed
// and compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/metrics"
)

var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an ID prefix matches several runs.
	ErrAmbiguousID = errors.New("ambiguous run id")
)

// Run is one stored analysis.
type Run struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	StartedAt  time.Time          `json:"started_at"`
	DurationMS int64              `json:"duration_ms"`
	Analyzed   int                `json:"classes_analyzed"`
	Skipped    []analyzer.Skipped `json:"skipped,omitempty"`
	Summary    metrics.Summary    `json:"metrics"`
}

// Store reads and writes runs.
type Store struct {
	db *sql.DB
}

// DefaultPath returns ~/.bytemetrics/history.db. It fails when the home
// directory cannot be determined rather than falling back to the working
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".bytemetrics", "history.db"), nil
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database and ensures the schema exists.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a report and returns the new run ID.
func (s *Store) Save(ctx context.Context, r *analyzer.Report) (string, error) {
	if r.Summary == nil {
		return "", fmt.Errorf("report has no metrics")
	}
	id := uuid.New().String()
	sum := r.Summary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, source, started_at, duration_ms, classes_analyzed,
			abc_assignments, abc_branches, abc_conditions, abc_magnitude,
			average_field_count, average_depth, max_depth, average_override_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Source, r.StartedAt.UnixMilli(), r.DurationMS, r.Analyzed,
		sum.ABC.Assignments, sum.ABC.Branches, sum.ABC.Conditions, sum.Magnitude,
		sum.AverageFieldCount, sum.AverageDepth, sum.MaxDepth, sum.AverageOverrideCount,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	classStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO class_metrics (run_id, class_name, field_count, depth, override_count)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare class insert: %w", err)
	}
	defer classStmt.Close()
	for _, c := range sum.Classes {
		if _, err := classStmt.ExecContext(ctx, id, c.Name, c.Fields, c.Depth, c.Overrides); err != nil {
			return "", fmt.Errorf("failed to insert class %s: %w", c.Name, err)
		}
	}

	for _, sk := range r.Skipped {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO skipped_entries (run_id, entry, reason) VALUES (?, ?, ?)`,
			id, sk.Entry, sk.Reason,
		); err != nil {
			return "", fmt.Errorf("failed to insert skipped entry %s: %w", sk.Entry, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `
	id, source, started_at, duration_ms, classes_analyzed,
	abc_assignments, abc_branches, abc_conditions, abc_magnitude,
	average_field_count, average_depth, max_depth, average_override_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var started int64
	sum := &run.Summary
	err := row.Scan(
		&run.ID, &run.Source, &started, &run.DurationMS, &run.Analyzed,
		&sum.ABC.Assignments, &sum.ABC.Branches, &sum.ABC.Conditions, &sum.Magnitude,
		&sum.AverageFieldCount, &sum.AverageDepth, &sum.MaxDepth, &sum.AverageOverrideCount,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = time.UnixMilli(started)
	return &run, nil
}

// List returns the most recent runs first, without per-class rows. A limit
// of 0 or less returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get loads a run by ID or unique ID prefix, including per-class rows and
// skipped entries.
func (s *Store) Get(ctx context.Context, idOrPrefix string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 2:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
	run := matches[0]

	if err := s.loadClasses(ctx, run); err != nil {
		return nil, err
	}
	if err := s.loadSkipped(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadClasses(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT class_name, field_count, depth, override_count
		FROM class_metrics WHERE run_id = ? ORDER BY class_name`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load classes: %w", err)
	}
	defer rows.Close()

	run.Summary.Classes = []metrics.ClassMetrics{}
	for rows.Next() {
		var c metrics.ClassMetrics
		if err := rows.Scan(&c.Name, &c.Fields, &c.Depth, &c.Overrides); err != nil {
			return fmt.Errorf("failed to scan class: %w", err)
		}
		run.Summary.Classes = append(run.Summary.Classes, c)
	}
	return rows.Err()
}

func (s *Store) loadSkipped(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry, reason FROM skipped_entries WHERE run_id = ? ORDER BY rowid`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load skipped entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sk analyzer.Skipped
		if err := rows.Scan(&sk.Entry, &sk.Reason); err != nil {
			return fmt.Errorf("failed to scan skipped entry: %w", err)
		}
		run.Skipped = append(run.Skipped, sk)
	}
	return rows.Err()
}

// Delete removes a run and its rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Report rebuilds an analyzer.Report from a stored run.
func (r *Run) Report() *analyzer.Report {
	sum := r.Summary
	return &analyzer.Report{
		Source:     r.Source,
		StartedAt:  r.StartedAt,
		DurationMS: r.DurationMS,
		Analyzed:   r.Analyzed,
		Skipped:    r.Skipped,
		Summary:    &sum,
	}
}
