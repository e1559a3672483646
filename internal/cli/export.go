package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mvp-joe/code-pairs/internal/export"
	"github.com/mvp-joe/code-pairs/internal/storage"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	dbPath string
	runID  string
	outDir string
	jsonl  string
}

var exportOpts exportOptions

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a stored run as train/valid/test line files",
	Long: `Export writes the records of a run as parallel line files, one function
per line: <split>.function, .docstring, .api_seq, .function_name and .lineage.
Documented functions are split into train, valid and test with the seed
recorded for the run; undocumented ones go to without_docstrings.*.

Examples:
  # Export the latest run to export.dir
  pairs export

  # Export a specific run as JSON lines too
  pairs export --run 3f2c... --jsonl records.jsonl
`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.dbPath, "db", "", "record database (default storage.db_path)")
	f.StringVar(&exportOpts.runID, "run", "", "run to export (default latest)")
	f.StringVarP(&exportOpts.outDir, "out", "o", "", "output directory (default export.dir)")
	f.StringVar(&exportOpts.jsonl, "jsonl", "", "also write all records as JSON lines to this file")
}

func runExport(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return exportRun(cmd.Context(), p, exportOpts, cmd.OutOrStdout())
}

func exportRun(ctx context.Context, p *project, opts exportOptions, out io.Writer) error {
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = p.path(p.cfg.Storage.DBPath)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := resolveRun(ctx, store, opts.runID)
	if err != nil {
		return err
	}

	entries, err := store.ReadRecords(ctx, run.ID)
	if err != nil {
		return err
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = p.path(p.cfg.Export.Dir)
	}
	summary, err := export.Write(outDir, entries, export.Options{
		Seed:       run.Seed,
		ValidRatio: p.cfg.Export.ValidRatio,
		TestRatio:  p.cfg.Export.TestRatio,
	})
	if err != nil {
		return err
	}

	if opts.jsonl != "" {
		if err := writeJSONLFile(opts.jsonl, entries); err != nil {
			return err
		}
	}

	p.logger.Info("run exported", "run", run.ID, "dir", outDir)
	fmt.Fprintf(out, "✓ Exported run %s to %s\n", run.ID, outDir)
	fmt.Fprintf(out, "  train: %s  valid: %s  test: %s  without docstrings: %s\n",
		formatNumber(summary.Train), formatNumber(summary.Valid),
		formatNumber(summary.Test), formatNumber(summary.WithoutDocstrings))
	return nil
}

func resolveRun(ctx context.Context, store *storage.Store, runID string) (*storage.Run, error) {
	if runID != "" {
		return store.GetRun(ctx, runID)
	}
	run, err := store.LatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'pairs extract' first)", err)
	}
	return run, nil
}

func writeJSONLFile(path string, entries []storage.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteJSONL(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
