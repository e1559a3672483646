// Package search provides keyword search over extracted records, analyzed
// with the same tokenizers that produced them.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/mvp-joe/code-pairs/internal/storage"
	"github.com/mvp-joe/code-pairs/internal/tokenize"
)

const (
	codeAnalyzer      = "pairs_code_analyzer"
	docstringAnalyzer = "pairs_docstring_analyzer"

	batchSize    = 1000
	defaultLimit = 10
	maxLimit     = 100
)

// ErrIndexNotFound indicates no index exists at the given path.
var ErrIndexNotFound = errors.New("search index not found")

// Hit is one search result.
type Hit struct {
	ID         string   `json:"id"`
	RunID      string   `json:"run_id"`
	Name       string   `json:"name"`
	Lineage    string   `json:"lineage"`
	Docstring  string   `json:"docstring"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// Options narrows a search.
type Options struct {
	Limit          int
	RunID          string // restrict to one run
	DocumentedOnly bool
}

// Index is a bleve index of records.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex // Protects index during updates
}

// Create builds a new empty index at path, replacing any existing one.
// An empty path creates an in-memory index.
func Create(path string) (*Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, err
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to remove old index: %w", err)
		}
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Open opens an existing on-disk index.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildMapping creates the index mapping for record documents.
func buildMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(codeAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     tokenize.CodeTokenizerName,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("failed to register code analyzer: %w", err)
	}
	if err := indexMapping.AddCustomAnalyzer(docstringAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     tokenize.LinguisticTokenizerName,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("failed to register docstring analyzer: %w", err)
	}

	keyword := func(index bool) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = "keyword"
		fm.Store = true
		fm.Index = index
		return fm
	}
	text := func(analyzer string, store bool) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzer
		fm.Store = store
		fm.Index = true
		fm.IncludeTermVectors = true // Enable phrase search
		return fm
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("run_id", keyword(true))
	docMapping.AddFieldMappingsAt("name", keyword(true))
	docMapping.AddFieldMappingsAt("lineage", keyword(false))
	docMapping.AddFieldMappingsAt("name_tokens", text("standard", false))
	docMapping.AddFieldMappingsAt("docstring", text(docstringAnalyzer, true))
	docMapping.AddFieldMappingsAt("code", text(codeAnalyzer, false))
	docMapping.AddFieldMappingsAt("api", text(codeAnalyzer, false))

	hasDoc := bleve.NewBooleanFieldMapping()
	hasDoc.Store = false
	docMapping.AddFieldMappingsAt("has_docstring", hasDoc)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = codeAnalyzer
	return indexMapping, nil
}

// DocumentID returns the index ID of a stored entry.
func DocumentID(runID string, e storage.Entry) string {
	return fmt.Sprintf("%s/%d/%d", runID, e.BlobIndex, e.Ordinal)
}

func entryToDocument(runID string, e storage.Entry) map[string]interface{} {
	return map[string]interface{}{
		"run_id":        runID,
		"name":          e.Record.Name,
		"lineage":       e.Lineage(),
		"name_tokens":   strings.Join(e.Record.NameTokens, " "),
		"docstring":     strings.Join(e.Record.DocstringTokens, " "),
		"code":          e.Record.SourceText,
		"api":           strings.Join(e.Record.APISequenceTokens, " "),
		"has_docstring": e.Record.HasDocstring(),
	}
}

// Add indexes the entries of a run in batches.
func (x *Index) Add(ctx context.Context, runID string, entries []storage.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.index.NewBatch()
	for i, e := range entries {
		// Check cancellation periodically
		if i%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		id := DocumentID(runID, e)
		if err := batch.Index(id, entryToDocument(runID, e)); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", id, err)
		}

		if batch.Size() >= batchSize {
			if err := x.index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = x.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

// Search runs a bleve query-string query. Unscoped terms match every
// analyzed field; "docstring:", "code:", "api:" and "name_tokens:" scope them.
func (x *Index) Search(ctx context.Context, queryStr string, opts Options) ([]Hit, error) {
	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}
	if opts.RunID != "" {
		runQuery := bleve.NewTermQuery(opts.RunID)
		runQuery.SetField("run_id")
		queries = append(queries, runQuery)
	}
	if opts.DocumentedOnly {
		docQuery := bleve.NewBoolFieldQuery(true)
		docQuery.SetField("has_docstring")
		queries = append(queries, docQuery)
	}

	var finalQuery query.Query = queries[0]
	if len(queries) > 1 {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	req.Fields = []string{"run_id", "name", "lineage", "docstring"}
	req.Highlight = bleve.NewHighlightWithStyle("ansi")
	req.Highlight.Fields = []string{"docstring"}

	x.mu.RLock()
	defer x.mu.RUnlock()

	result, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		hit.RunID, _ = h.Fields["run_id"].(string)
		hit.Name, _ = h.Fields["name"].(string)
		hit.Lineage, _ = h.Fields["lineage"].(string)
		hit.Docstring, _ = h.Fields["docstring"].(string)
		for _, snippets := range h.Fragments {
			hit.Highlights = append(hit.Highlights, snippets...)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DocCount returns the number of indexed records.
func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	return x.index.Close()
}
