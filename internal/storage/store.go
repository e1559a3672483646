// Package storage persists extraction runs and their records in SQLite.
//
// A run is one batch over a corpus. Each blob of the run is stored with its
// provenance, and each record with its blob index and ordinal, so records
// read back in exactly the order the batch produced them.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/code-pairs/internal/corpus"
	"github.com/mvp-joe/code-pairs/internal/pairs"
)

var (
	// ErrRunNotFound indicates an unknown run ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoRuns indicates an empty database.
	ErrNoRuns = errors.New("no runs stored")

	// ErrShapeMismatch indicates results that do not line up with their blobs.
	ErrShapeMismatch = errors.New("results do not match blobs")
)

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run describes one stored batch.
type Run struct {
	ID        string
	Source    string
	Seed      uint64
	Blobs     int
	Records   int
	CreatedAt time.Time
}

// Entry is a stored record with its provenance.
type Entry struct {
	BlobIndex int
	Ordinal   int
	Repo      string
	Path      string
	Record    pairs.Record
}

// Lineage returns the provenance string of the entry.
func (e Entry) Lineage() string {
	return corpus.Blob{Repo: e.Repo, Path: e.Path}.Lineage(e.Record.Line)
}

// Store reads and writes runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the record database at dbPath. Use ":memory:" for a
// throwaway database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)

	// Enable foreign keys (required for FK constraints)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}

	switch version {
	case "0":
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version %s (want %s)", version, SchemaVersion)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteRun stores a batch atomically. blobs and results must have the same
// length; results[i] holds the records of blobs[i]. The run ID is generated
// when empty and returned either way.
func (s *Store) WriteRun(ctx context.Context, run Run, blobs []corpus.Blob, results [][]pairs.Record) (string, error) {
	if len(blobs) != len(results) {
		return "", fmt.Errorf("%w: %d blobs, %d results", ErrShapeMismatch, len(blobs), len(results))
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.Blobs = len(blobs)
	run.Records = 0
	for _, records := range results {
		run.Records += len(records)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns("run_id", "source", "seed", "blob_count", "record_count", "created_at").
		Values(run.ID, run.Source, int64(run.Seed), run.Blobs, run.Records, run.CreatedAt.UTC().Format(timeLayout)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, blob := range blobs {
		_, err := sq.Insert("blobs").
			Columns("run_id", "blob_index", "repo", "path", "content_hash").
			Values(run.ID, i, blob.Repo, blob.Path, contentHash(blob.Content)).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to insert blob %d: %w", i, err)
		}

		for ordinal, rec := range results[i] {
			if err := insertRecord(ctx, tx, run.ID, i, ordinal, rec); err != nil {
				return "", fmt.Errorf("failed to insert record %d of blob %d: %w", ordinal, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return run.ID, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, runID string, blobIndex, ordinal int, rec pairs.Record) error {
	lists := [][]string{rec.CodeTokens, rec.DocstringTokens, rec.APISequenceTokens, rec.NameTokens}
	encoded := make([]string, len(lists))
	for i, tokens := range lists {
		s, err := encodeTokens(tokens)
		if err != nil {
			return err
		}
		encoded[i] = s
	}

	_, err := sq.Insert("functions").
		Columns("run_id", "blob_index", "ordinal", "name", "underscored_name", "line", "source_text",
			"code_tokens", "docstring_tokens", "api_sequence_tokens", "name_tokens", "has_docstring").
		Values(runID, blobIndex, ordinal, rec.Name, rec.UnderscoredName, rec.Line, rec.SourceText,
			encoded[0], encoded[1], encoded[2], encoded[3], boolToInt(rec.HasDocstring())).
		RunWith(tx).
		ExecContext(ctx)
	return err
}

// ReadRecords returns every record of a run ordered by blob then ordinal.
func (s *Store) ReadRecords(ctx context.Context, runID string) ([]Entry, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := sq.Select("f.blob_index", "f.ordinal", "b.repo", "b.path",
		"f.name", "f.underscored_name", "f.line", "f.source_text",
		"f.code_tokens", "f.docstring_tokens", "f.api_sequence_tokens", "f.name_tokens").
		From("functions f").
		Join("blobs b ON b.run_id = f.run_id AND b.blob_index = f.blob_index").
		Where(sq.Eq{"f.run_id": runID}).
		OrderBy("f.blob_index", "f.ordinal").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                         Entry
		code, doc, api, nameToken string
	)
	err := rows.Scan(&e.BlobIndex, &e.Ordinal, &e.Repo, &e.Path,
		&e.Record.Name, &e.Record.UnderscoredName, &e.Record.Line, &e.Record.SourceText,
		&code, &doc, &api, &nameToken)
	if err != nil {
		return Entry{}, err
	}

	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{code, &e.Record.CodeTokens},
		{doc, &e.Record.DocstringTokens},
		{api, &e.Record.APISequenceTokens},
		{nameToken, &e.Record.NameTokens},
	} {
		tokens, err := decodeTokens(f.raw)
		if err != nil {
			return Entry{}, err
		}
		*f.dst = tokens
	}
	return e, nil
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := runQuery().Where(sq.Eq{"run_id": runID}).RunWith(s.db).QueryRowContext(ctx)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := runQuery().OrderBy("created_at DESC", "rowid DESC").Limit(1).RunWith(s.db).QueryRowContext(ctx)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	return run, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := runQuery().OrderBy("created_at DESC", "rowid DESC").RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run with its blobs and records.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := sq.Delete("runs").Where(sq.Eq{"run_id": runID}).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func runQuery() sq.SelectBuilder {
	return sq.Select("run_id", "source", "seed", "blob_count", "record_count", "created_at").From("runs")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		seed      int64
		createdAt string
	)
	if err := row.Scan(&run.ID, &run.Source, &seed, &run.Blobs, &run.Records, &createdAt); err != nil {
		return nil, err
	}
	run.Seed = uint64(seed)

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t
	return &run, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
