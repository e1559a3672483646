package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/code-pairs/internal/pairs"
	"github.com/mvp-joe/code-pairs/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Search Index:
// - Docstring words find the documented record
// - Field-scoped queries hit code, api and name tokens
// - Camel-case identifiers match case-insensitively through the code analyzer
// - DocumentedOnly and RunID narrow results
// - Limit is clamped to the default when out of range
// - On-disk index persists across Close/Open; Open of a missing path fails
// - Create replaces an existing index
// - Add honors context cancellation

func sampleEntries() []storage.Entry {
	return []storage.Entry{
		{BlobIndex: 0, Ordinal: 0, Repo: "owner/app", Path: "io.py", Record: pairs.Record{
			Name:              "loadConfig",
			UnderscoredName:   "load_config",
			Line:              3,
			SourceText:        "def loadConfig(path):\n    return yaml.safe_load(open(path))",
			DocstringTokens:   []string{"load", "the", "yaml", "configuration", "file", "."},
			APISequenceTokens: []string{"return", "yaml", "safe_load", "open", "path"},
			NameTokens:        []string{"load", "config"},
		}},
		{BlobIndex: 0, Ordinal: 1, Repo: "owner/app", Path: "io.py", Record: pairs.Record{
			Name:              "remove_tmp",
			UnderscoredName:   "remove_tmp",
			Line:              9,
			SourceText:        "def remove_tmp(d):\n    shutil.rmtree(d)",
			DocstringTokens:   []string{},
			APISequenceTokens: []string{"shutil", "rmtree", "d"},
			NameTokens:        []string{"remove", "tmp"},
		}},
		{BlobIndex: 2, Ordinal: 0, Repo: "owner/lib", Path: "net/http.py", Record: pairs.Record{
			Name:              "fetchAll",
			UnderscoredName:   "fetch_all",
			Line:              20,
			SourceText:        "def fetchAll(urls):\n    return [requests.get(u) for u in urls]",
			DocstringTokens:   []string{"fetch", "every", "url", "and", "return", "responses", "."},
			APISequenceTokens: []string{"return", "requests", "get", "u", "u", "urls"},
			NameTokens:        []string{"fetch", "all"},
		}},
	}
}

func newIndex(t *testing.T, runID string) *Index {
	t.Helper()
	idx, err := Create("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Add(context.Background(), runID, sampleEntries()))
	return idx
}

func names(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Name
	}
	return out
}

func TestSearch_Docstring(t *testing.T) {
	t.Parallel()

	idx := newIndex(t, "run1")
	hits, err := idx.Search(context.Background(), "docstring:configuration", Options{})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Equal(t, "loadConfig", hits[0].Name)
	assert.Equal(t, "run1", hits[0].RunID)
	assert.Equal(t, "owner/app io.py:3", hits[0].Lineage)
	assert.Equal(t, "run1/0/0", hits[0].ID)
	assert.Contains(t, hits[0].Docstring, "configuration")
	assert.Positive(t, hits[0].Score)
}

func TestSearch_FieldScoped(t *testing.T) {
	t.Parallel()

	idx := newIndex(t, "run1")
	ctx := context.Background()

	hits, err := idx.Search(ctx, "api:rmtree", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"remove_tmp"}, names(hits))

	hits, err = idx.Search(ctx, "code:requests", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fetchAll"}, names(hits))

	hits, err = idx.Search(ctx, "name_tokens:config", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loadConfig"}, names(hits))

	hits, err = idx.Search(ctx, "code:LOADCONFIG", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loadConfig"}, names(hits))
}

func TestSearch_Filters(t *testing.T) {
	t.Parallel()

	idx := newIndex(t, "run1")
	require.NoError(t, idx.Add(context.Background(), "run2", sampleEntries()[:1]))
	ctx := context.Background()

	hits, err := idx.Search(ctx, "code:def", Options{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, hits, 4)

	hits, err = idx.Search(ctx, "code:def", Options{RunID: "run1", DocumentedOnly: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"loadConfig", "fetchAll"}, names(hits))

	hits, err = idx.Search(ctx, "code:def", Options{RunID: "run2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"loadConfig"}, names(hits))

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestSearch_LimitClamped(t *testing.T) {
	t.Parallel()

	idx := newIndex(t, "run1")
	hits, err := idx.Search(context.Background(), "code:def", Options{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(context.Background(), "code:def", Options{Limit: 10000})
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestIndex_Persistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "search.bleve")

	_, err := Open(path)
	require.ErrorIs(t, err, ErrIndexNotFound)

	idx, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), "run1", sampleEntries()))
	require.NoError(t, idx.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	hits, err := reopened.Search(context.Background(), "docstring:responses", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fetchAll"}, names(hits))
	require.NoError(t, reopened.Close())

	replaced, err := Create(path)
	require.NoError(t, err)
	defer replaced.Close()
	count, err := replaced.DocCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndex_AddCanceled(t *testing.T) {
	t.Parallel()

	idx, err := Create("")
	require.NoError(t, err)
	defer idx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, idx.Add(ctx, "run1", sampleEntries()), context.Canceled)
}
