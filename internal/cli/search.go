package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/code-pairs/internal/search"
	"github.com/mvp-joe/code-pairs/internal/storage"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	dbPath     string
	runID      string
	limit      int
	reindex    bool
	documented bool
}

var searchOpts searchOptions

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search over extracted records",
	Long: `Search runs a bleve query-string query over the records of a run.
Fields: docstring, code, api, name_tokens, name.

The index is built from the latest run on first use and reused afterwards;
pass --reindex after a new extraction.

Examples:
  pairs search 'docstring:parse +api:json'
  pairs search --documented --limit 20 yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.dbPath, "db", "", "record database (default storage.db_path)")
	f.StringVar(&searchOpts.runID, "run", "", "run to index and search (default latest)")
	f.IntVarP(&searchOpts.limit, "limit", "n", 10, "maximum results (1-100)")
	f.BoolVar(&searchOpts.reindex, "reindex", false, "rebuild the index from the record database")
	f.BoolVar(&searchOpts.documented, "documented", false, "only return records with a docstring")
}

func runSearch(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return searchRecords(cmd.Context(), p, args[0], searchOpts, cmd.OutOrStdout())
}

func searchRecords(ctx context.Context, p *project, q string, opts searchOptions, out io.Writer) error {
	indexPath := p.path(p.cfg.Search.IndexPath)

	idx, err := search.Open(indexPath)
	if opts.reindex || errors.Is(err, search.ErrIndexNotFound) {
		if idx != nil {
			idx.Close()
		}
		idx, err = buildIndex(ctx, p, indexPath, opts)
	}
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, err := idx.Search(ctx, q, search.Options{
		Limit:          opts.limit,
		RunID:          opts.runID,
		DocumentedOnly: opts.documented,
	})
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(out, "%.3f  %s  %s\n", h.Score, h.Name, h.Lineage)
		if h.Docstring != "" {
			fmt.Fprintf(out, "       %s\n", h.Docstring)
		}
	}
	return nil
}

func buildIndex(ctx context.Context, p *project, indexPath string, opts searchOptions) (*search.Index, error) {
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = p.path(p.cfg.Storage.DBPath)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	run, err := resolveRun(ctx, store, opts.runID)
	if err != nil {
		return nil, err
	}
	entries, err := store.ReadRecords(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	idx, err := search.Create(indexPath)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, run.ID, entries); err != nil {
		idx.Close()
		return nil, err
	}
	p.logger.Info("search index built", "run", run.ID, "records", len(entries))
	return idx, nil
}
