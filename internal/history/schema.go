package history

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is bumped whenever the DDL below changes.
const SchemaVersion = "1"

// CreateSchema creates the history tables if they do not exist.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"class_metrics", createClassMetricsTable},
		{"skipped_entries", createSkippedEntriesTable},
		{"history_metadata", createMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO history_metadata (key, value) VALUES ('schema_version', ?)`,
		SchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion reads the stored schema version.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var version string
	err := db.QueryRow(`SELECT value FROM history_metadata WHERE key = 'schema_version'`).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    classes_analyzed INTEGER NOT NULL,
    abc_assignments INTEGER NOT NULL,
    abc_branches INTEGER NOT NULL,
    abc_conditions INTEGER NOT NULL,
    abc_magnitude REAL NOT NULL,
    average_field_count REAL NOT NULL,
    average_depth REAL NOT NULL,
    max_depth INTEGER NOT NULL,
    average_override_count REAL NOT NULL
)`

const createClassMetricsTable = `
CREATE TABLE IF NOT EXISTS class_metrics (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    class_name TEXT NOT NULL,
    field_count INTEGER NOT NULL,
    depth INTEGER NOT NULL,
    override_count INTEGER NOT NULL,
    PRIMARY KEY (run_id, class_name)
)`

const createSkippedEntriesTable = `
CREATE TABLE IF NOT EXISTS skipped_entries (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    entry TEXT NOT NULL,
    reason TEXT NOT NULL
)`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS history_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source)`,
	`CREATE INDEX IF NOT EXISTS idx_skipped_run ON skipped_entries(run_id)`,
}
