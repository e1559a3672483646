package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV column names.
const (
	ColumnRepoPath = "repo_path"
	ColumnContent  = "content"
)

// ErrMissingColumn indicates a CSV header without a required column.
var ErrMissingColumn = errors.New("missing csv column")

// ReadCSV reads a repository dump with a header row containing repo_path and
// content columns. repo_path holds "owner/name path/to/file.py".
func ReadCSV(r io.Reader) ([]Blob, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Blob{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	repoCol, contentCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColumnRepoPath:
			repoCol = i
		case ColumnContent:
			contentCol = i
		}
	}
	if repoCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnRepoPath)
	}
	if contentCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnContent)
	}

	blobs := []Blob{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(blobs)+1, err)
		}
		if repoCol >= len(row) || contentCol >= len(row) {
			return nil, fmt.Errorf("csv row %d: expected at least %d fields, got %d",
				len(blobs)+1, max(repoCol, contentCol)+1, len(row))
		}

		repo, path := splitRepoPath(row[repoCol])
		blobs = append(blobs, Blob{
			ID:      len(blobs),
			Repo:    repo,
			Path:    path,
			Content: row[contentCol],
		})
	}
	return blobs, nil
}

func splitRepoPath(s string) (repo, path string) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	}
	return fields[0], strings.Join(fields[1:], " ")
}
