package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/code-pairs/internal/pairs"
	"github.com/mvp-joe/code-pairs/internal/storage"
)

// WithoutDocstrings is the file prefix for records lacking a docstring.
const WithoutDocstrings = "without_docstrings"

// Options controls an export.
type Options struct {
	Seed       uint64
	ValidRatio float64
	TestRatio  float64
}

// Summary counts the lines written per file set.
type Summary struct {
	Train             int `json:"train"`
	Valid             int `json:"valid"`
	Test              int `json:"test"`
	WithoutDocstrings int `json:"without_docstrings"`
}

// field is one parallel line file.
type field struct {
	ext   string
	value func(storage.Entry) string
}

var fields = []field{
	{"function", func(e storage.Entry) string { return joinTokens(e.Record.CodeTokens) }},
	{"docstring", func(e storage.Entry) string { return joinTokens(e.Record.DocstringTokens) }},
	{"api_seq", func(e storage.Entry) string { return joinTokens(e.Record.APISequenceTokens) }},
	{"function_name", func(e storage.Entry) string { return joinTokens(e.Record.NameTokens) }},
	{"lineage", func(e storage.Entry) string { return sanitize(e.Lineage()) }},
}

// Write exports entries to dir. Documented records are split into
// train/valid/test; undocumented records go to without_docstrings files,
// which have no docstring file. Line i of every file in a set describes the
// same function.
func Write(dir string, entries []storage.Entry, opts Options) (*Summary, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var documented, undocumented []storage.Entry
	for _, e := range entries {
		if e.Record.HasDocstring() {
			documented = append(documented, e)
		} else {
			undocumented = append(undocumented, e)
		}
	}

	sets := map[Split][]storage.Entry{}
	for i, split := range Assign(len(documented), opts.Seed, opts.ValidRatio, opts.TestRatio) {
		sets[split] = append(sets[split], documented[i])
	}

	for _, split := range []Split{Train, Valid, Test} {
		if err := writeSet(dir, split.String(), sets[split], true); err != nil {
			return nil, err
		}
	}
	if err := writeSet(dir, WithoutDocstrings, undocumented, false); err != nil {
		return nil, err
	}

	return &Summary{
		Train:             len(sets[Train]),
		Valid:             len(sets[Valid]),
		Test:              len(sets[Test]),
		WithoutDocstrings: len(undocumented),
	}, nil
}

func writeSet(dir, prefix string, entries []storage.Entry, withDocstring bool) error {
	for _, f := range fields {
		if f.ext == "docstring" && !withDocstring {
			continue
		}
		path := filepath.Join(dir, prefix+"."+f.ext)
		if err := writeLines(path, entries, f.value); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func writeLines(path string, entries []storage.Entry, value func(storage.Entry) string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, e := range entries {
		w.WriteString(value(e))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteJSONL writes one JSON object per entry: the record fields plus its
// lineage.
func WriteJSONL(w io.Writer, entries []storage.Entry) error {
	type line struct {
		Lineage string `json:"lineage"`
		pairs.Record
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		if err := enc.Encode(line{Lineage: e.Lineage(), Record: e.Record}); err != nil {
			return err
		}
	}
	return nil
}

// joinTokens joins with single spaces. Line breaks inside a token would
// desynchronize the parallel files, so they become spaces.
func joinTokens(tokens []string) string {
	return sanitize(strings.Join(tokens, " "))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func sanitize(s string) string {
	return lineBreaks.Replace(s)
}
