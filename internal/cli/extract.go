package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mvp-joe/code-pairs/internal/batch"
	"github.com/mvp-joe/code-pairs/internal/cache"
	"github.com/mvp-joe/code-pairs/internal/corpus"
	"github.com/mvp-joe/code-pairs/internal/pairs"
	"github.com/mvp-joe/code-pairs/internal/storage"
	"github.com/mvp-joe/code-pairs/internal/watcher"
	"github.com/spf13/cobra"
)

// extractOptions holds the extract command flags.
type extractOptions struct {
	csvPath string
	dbPath  string
	workers int
	quiet   bool
	watch   bool
	noCache bool
}

var extractOpts extractOptions

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [dir]",
	Short: "Extract training records from Python source",
	Long: `Extract reads Python blobs, either every included file under a directory
or the rows of a repository CSV dump, and stores one record per function or
method as a new run in the record database.

Blobs that fail to parse, exceed the nesting limit or are otherwise
unusable contribute no records; they never fail the run.

Examples:
  # Extract from the project root
  pairs extract

  # Extract from a CSV with repo_path and content columns
  pairs extract --csv github_python.csv

  # Re-extract whenever a source file changes
  pairs extract --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	f := extractCmd.Flags()
	f.StringVar(&extractOpts.csvPath, "csv", "", "read blobs from a CSV file instead of a directory")
	f.StringVar(&extractOpts.dbPath, "db", "", "record database (default storage.db_path)")
	f.IntVar(&extractOpts.workers, "workers", -1, "parallel workers, 0 for one per CPU (default batch.workers)")
	f.BoolVarP(&extractOpts.quiet, "quiet", "q", false, "disable progress output")
	f.BoolVarP(&extractOpts.watch, "watch", "w", false, "re-extract when source files change")
	f.BoolVar(&extractOpts.noCache, "no-cache", false, "bypass the extraction cache")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := loadProject(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	src := p.root
	if len(args) == 1 {
		src = args[0]
	}

	opts := extractOpts
	if opts.watch && opts.csvPath != "" {
		return fmt.Errorf("--watch cannot be combined with --csv")
	}

	if !opts.watch {
		_, err := extract(ctx, p, src, opts, cmd.OutOrStdout())
		return err
	}

	discovery, err := corpus.NewFileDiscovery(src, p.cfg.Paths.Include, p.cfg.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("invalid path pattern: %w", err)
	}
	fw, err := watcher.NewFileWatcher(src, discovery,
		watcher.WithSkipDir(discovery.Ignores),
		watcher.WithLogger(p.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl+C to stop)...")
	err = watcher.Loop(ctx, fw, func(ctx context.Context, _ []string) error {
		_, err := extract(ctx, p, src, opts, cmd.OutOrStdout())
		return err
	}, p.logger)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// extract runs one batch over src and stores it. It returns the new run ID.
func extract(ctx context.Context, p *project, src string, opts extractOptions, out io.Writer) (string, error) {
	blobs, source, err := readBlobs(p, src, opts.csvPath)
	if err != nil {
		return "", err
	}

	var extractor pairs.BlobExtractor = pairs.NewExtractor(
		pairs.WithMaxDepth(p.cfg.Extract.MaxDepth),
		pairs.WithLogger(p.logger),
	)
	if p.cfg.Cache.Enabled && !opts.noCache {
		c, err := cache.Open(p.cfg.Cache.Size, p.path(p.cfg.Cache.Path), p.logger)
		if err != nil {
			return "", fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()
		extractor = cache.NewExtractor(extractor, c, p.cfg.Extract.MaxDepth)
	}

	workers := p.cfg.Batch.Workers
	if opts.workers >= 0 {
		workers = opts.workers
	}
	driver := batch.NewDriver(extractor,
		batch.Config{Workers: workers, Seed: p.cfg.Batch.Seed},
		batch.WithProgress(NewCLIProgressReporter(out, opts.quiet)),
	)

	results, err := driver.Run(ctx, corpus.Contents(blobs))
	if err != nil {
		return "", fmt.Errorf("extraction failed: %w", err)
	}

	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = p.path(p.cfg.Storage.DBPath)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	runID, err := store.WriteRun(ctx, storage.Run{Source: source, Seed: driver.Config().Seed}, blobs, results)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}

	p.logger.Info("run stored", "run", runID, "blobs", len(blobs), "db", dbPath)
	if !opts.quiet {
		fmt.Fprintf(out, "✓ Stored run %s\n", runID)
	}
	return runID, nil
}

// readBlobs loads the corpus from a CSV file when csvPath is set, otherwise
// from the directory dir.
func readBlobs(p *project, dir, csvPath string) ([]corpus.Blob, string, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open csv: %w", err)
		}
		defer f.Close()

		blobs, err := corpus.ReadCSV(f)
		if err != nil {
			return nil, "", err
		}
		abs, _ := filepath.Abs(csvPath)
		return blobs, abs, nil
	}

	blobs, err := corpus.FromDir(dir, p.cfg.Paths.Include, p.cfg.Paths.Ignore)
	if err != nil {
		return nil, "", err
	}
	abs, _ := filepath.Abs(dir)
	return blobs, abs, nil
}
