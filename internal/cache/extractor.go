package cache

import (
	"context"
	"slices"

	"github.com/mvp-joe/code-pairs/internal/pairs"
)

// Extractor wraps a BlobExtractor and serves repeated blobs from a Cache.
// Only successful results are cached, including empty ones.
type Extractor struct {
	inner    pairs.BlobExtractor
	cache    *Cache
	maxDepth int
}

// NewExtractor returns a caching wrapper around inner. maxDepth must match
// the limit inner was built with so results for different limits never mix.
func NewExtractor(inner pairs.BlobExtractor, cache *Cache, maxDepth int) *Extractor {
	return &Extractor{inner: inner, cache: cache, maxDepth: maxDepth}
}

// Pairs implements pairs.BlobExtractor.
func (e *Extractor) Pairs(ctx context.Context, blob string) ([]pairs.Record, error) {
	key := Key(blob, e.maxDepth)
	if records, ok := e.cache.Get(key); ok {
		return slices.Clone(records), nil
	}

	records, err := e.inner.Pairs(ctx, blob)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, records)
	return records, nil
}
