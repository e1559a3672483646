package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/code-pairs/internal/storage"
	"github.com/spf13/cobra"
)

var runsDBPath string

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored extraction runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		return listRuns(cmd.Context(), p, runsDBPath, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsDBPath, "db", "", "record database (default storage.db_path)")
}

func listRuns(ctx context.Context, p *project, dbPath string, out io.Writer) error {
	if dbPath == "" {
		dbPath = p.path(p.cfg.Storage.DBPath)
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored.")
		return nil
	}

	fmt.Fprintf(out, "Stored Runs (%d):\n", len(runs))
	for _, r := range runs {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s\n", r.ID)
		fmt.Fprintf(out, "    Created: %s\n", r.CreatedAt.Local().Format(time.DateTime))
		fmt.Fprintf(out, "    Blobs:   %s\n", formatNumber(r.Blobs))
		fmt.Fprintf(out, "    Records: %s\n", formatNumber(r.Records))
		fmt.Fprintf(out, "    Source:  %s\n", r.Source)
	}
	return nil
}
