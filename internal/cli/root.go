// Package cli implements the pairs command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mvp-joe/code-pairs/internal/config"
	"github.com/spf13/cobra"
)

var (
	projectDir string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Extract function/docstring training pairs from Python code",
	Long: `pairs parses Python source, finds every module-level function and
method of a module-level class, and turns each into a training record:
code tokens, docstring tokens, an API-call sequence and name tokens.

Records are stored per run in .pairs/pairs.db and can be exported as
parallel line files or searched by keyword.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "project root holding .pairs/config.yml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// project bundles what every command needs.
type project struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

// loadProject resolves the project root, loads its configuration and builds
// the logger.
func loadProject(stderr io.Writer) (*project, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	return &project{root: root, cfg: cfg, logger: newLogger(stderr, cfg.Log)}, nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func (p *project) path(configured string) string {
	return config.Resolve(p.root, configured)
}
