package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current database layout version.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for the record database.
// Uses a single transaction so schema creation succeeds or fails as a whole.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"blobs", createBlobsTable},
		{"functions", createFunctionsTable},
		{"store_metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"INSERT INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    source TEXT NOT NULL,                        -- directory or CSV path the blobs came from
    seed INTEGER NOT NULL,                       -- split seed recorded for export
    blob_count INTEGER NOT NULL,
    record_count INTEGER NOT NULL,
    created_at TEXT NOT NULL                     -- ISO 8601
)
`

const createBlobsTable = `
CREATE TABLE blobs (
    run_id TEXT NOT NULL,
    blob_index INTEGER NOT NULL,                 -- position in the batch input
    repo TEXT NOT NULL,
    path TEXT NOT NULL,
    content_hash TEXT NOT NULL,                  -- SHA-256 of the blob text
    PRIMARY KEY (run_id, blob_index),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createFunctionsTable = `
CREATE TABLE functions (
    run_id TEXT NOT NULL,
    blob_index INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,                    -- enumeration order within the blob
    name TEXT NOT NULL,
    underscored_name TEXT NOT NULL,
    line INTEGER NOT NULL,                       -- 1-based def line
    source_text TEXT NOT NULL,
    code_tokens TEXT NOT NULL,                   -- JSON array
    docstring_tokens TEXT NOT NULL,              -- JSON array, [] when undocumented
    api_sequence_tokens TEXT NOT NULL,           -- JSON array
    name_tokens TEXT NOT NULL,                   -- JSON array
    has_docstring INTEGER NOT NULL DEFAULT 0,    -- Boolean
    PRIMARY KEY (run_id, blob_index, ordinal),
    FOREIGN KEY (run_id, blob_index) REFERENCES blobs(run_id, blob_index) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_runs_created_at ON runs(created_at)",
		"CREATE INDEX idx_blobs_hash ON blobs(content_hash)",
		"CREATE INDEX idx_functions_name ON functions(underscored_name)",
		"CREATE INDEX idx_functions_has_docstring ON functions(run_id, has_docstring)",
	}
}
