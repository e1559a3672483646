// Package batch runs per-blob extraction over an ordered list of blobs with
// bounded parallelism while preserving input order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/mvp-joe/code-pairs/internal/pairs"
	"golang.org/x/sync/errgroup"
)

// ErrWorkerPanic marks a batch aborted by a panic inside a worker.
var ErrWorkerPanic = errors.New("batch worker panicked")

// Config is the explicit configuration of a Driver.
type Config struct {
	// Workers is the number of chunks processed concurrently.
	// Zero or negative means runtime.NumCPU().
	Workers int

	// Seed is handed to downstream stages that need randomness, such as
	// dataset splitting. The driver itself is deterministic.
	Seed uint64
}

// Stats summarizes a completed batch.
type Stats struct {
	Blobs                 int     `json:"blobs"`
	BlobsWithRecords      int     `json:"blobs_with_records"`
	Records               int     `json:"records"`
	Workers               int     `json:"workers"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// Driver fans blobs out to workers in contiguous chunks.
type Driver struct {
	extractor pairs.BlobExtractor
	cfg       Config
	progress  ProgressReporter
}

// Option configures a Driver.
type Option func(*Driver)

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(d *Driver) {
		if p != nil {
			d.progress = p
		}
	}
}

// NewDriver creates a batch driver around extractor.
func NewDriver(extractor pairs.BlobExtractor, cfg Config, opts ...Option) *Driver {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	d := &Driver{
		extractor: extractor,
		cfg:       cfg,
		progress:  &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Driver) Config() Config { return d.cfg }

// Run extracts every blob and returns one record sequence per blob, in input
// order. Blobs that fail extraction contribute an empty sequence. Any other
// error, including a worker panic, fails the whole batch and no results are
// returned.
func (d *Driver) Run(ctx context.Context, blobs []string) ([][]pairs.Record, error) {
	start := time.Now()
	spans := Partition(len(blobs), d.cfg.Workers)
	d.progress.OnBatchStart(len(blobs), len(spans))

	results := make([][]pairs.Record, len(blobs))
	g, gctx := errgroup.WithContext(ctx)
	for _, span := range spans {
		g.Go(func() error {
			return d.runChunk(gctx, blobs, span, results)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{
		Blobs:                 len(blobs),
		Workers:               len(spans),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}
	for _, recs := range results {
		if len(recs) > 0 {
			stats.BlobsWithRecords++
		}
		stats.Records += len(recs)
	}
	d.progress.OnBatchComplete(stats)
	return results, nil
}

// runChunk processes blobs[span.Start:span.End] sequentially. Each slot of
// results is written by exactly one worker.
func (d *Driver) runChunk(ctx context.Context, blobs []string, span Span, results [][]pairs.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: chunk [%d, %d): %v", ErrWorkerPanic, span.Start, span.End, r)
		}
	}()

	for i := span.Start; i < span.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := d.extractor.Pairs(ctx, blobs[i])
		if err != nil {
			return fmt.Errorf("blob %d: %w", i, err)
		}
		if records == nil {
			records = []pairs.Record{}
		}
		results[i] = records
		d.progress.OnBlobDone()
	}
	return nil
}

// Span is the half-open index range [Start, End) of one chunk.
type Span struct {
	Start int
	End   int
}

// Len returns the number of blobs in the span.
func (s Span) Len() int { return s.End - s.Start }

// Partition splits n items into contiguous chunks of ceil(n/workers) items.
// The last chunk may be shorter; no chunk is empty.
func Partition(n, workers int) []Span {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	size := (n + workers - 1) / workers

	spans := make([]Span, 0, workers)
	for start := 0; start < n; start += size {
		spans = append(spans, Span{Start: start, End: min(start+size, n)})
	}
	return spans
}

// Flatten concatenates per-blob record sequences in order.
func Flatten(results [][]pairs.Record) []pairs.Record {
	total := 0
	for _, recs := range results {
		total += len(recs)
	}
	out := make([]pairs.Record, 0, total)
	for _, recs := range results {
		out = append(out, recs...)
	}
	return out
}
