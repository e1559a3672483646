package watcher

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// RunFunc performs one extraction pass. changed lists the files that
// triggered it; it is empty for the initial pass.
type RunFunc func(ctx context.Context, changed []string) error

// Loop runs once, then again after every debounced batch of changes, until
// ctx is done. Runs never overlap: the watcher is paused while a run is in
// progress and changes that arrive meanwhile are merged into the next run.
// A failed run is logged and does not end the loop.
func Loop(ctx context.Context, fw FileWatcher, run RunFunc, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := run(ctx, nil); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("extraction failed", "error", err)
	}

	var (
		mu      sync.Mutex
		pending = map[string]bool{}
		signal  = make(chan struct{}, 1)
	)
	err := fw.Start(ctx, func(files []string) {
		mu.Lock()
		for _, f := range files {
			pending[f] = true
		}
		mu.Unlock()
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer fw.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signal:
		}

		mu.Lock()
		files := make([]string, 0, len(pending))
		for f := range pending {
			files = append(files, f)
		}
		pending = map[string]bool{}
		mu.Unlock()
		if len(files) == 0 {
			continue
		}
		slices.Sort(files)

		logger.Info("source files changed", "count", len(files))
		fw.Pause()
		if err := run(ctx, files); err != nil && ctx.Err() == nil {
			logger.Error("extraction failed", "error", err)
		}
		fw.Resume()
	}
}
