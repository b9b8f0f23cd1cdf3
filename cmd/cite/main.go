// Package main provides the cite CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ali-ramadhan/citekit/internal/citation"
	"github.com/ali-ramadhan/citekit/internal/config"
	"github.com/ali-ramadhan/citekit/internal/logging"
	"github.com/ali-ramadhan/citekit/internal/markdown"
	"github.com/ali-ramadhan/citekit/internal/refstore"
	"github.com/ali-ramadhan/citekit/internal/site"
	"github.com/ali-ramadhan/citekit/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	siteDir     string

	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors (bad flags, missing args) are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cite",
	Short: "Citation and bibliography engine for Markdown sites",
	Long: `cite resolves [@key] citations in Markdown pages against YAML
reference files and generates per-page bibliographies.

Pages cite references with [@key] or [@a; @b]; a line starting with
[[bibliography]] (or [[bibliography:source]]) is replaced by the sorted
list of references the page cited.

Usage data is stored in .citekit/usage.jsonl with an ephemeral SQLite
cache for queries. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVarP(&siteDir, "dir", "C", "", "Site directory (default: search upward from the working directory)")
	rootCmd.Version = Version
}

// mustFindSite finds the site root, exits on error.
func mustFindSite() string {
	start := siteDir
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			exitWithError(ExitError, "getting current directory: %v", err)
		}
		start = cwd
	}

	root, err := config.FindSite(start)
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'cite init' to create a site.", err)
	}
	return root
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	if err := config.EnsureStateDirs(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// newEngine wires a reference store and engine from site configuration.
func newEngine(root string, cfg *config.Config) *citation.Engine {
	store := refstore.New(cfg.DataPath(root), refstore.WithLogger(logger))
	return citation.NewEngine(store,
		citation.WithDefaultSource(cfg.DefaultSource),
		citation.WithClasses(cfg.Classes()),
		citation.WithLogger(logger),
	)
}

// newBuilder wires the full render pipeline for a site.
func newBuilder(root string, cfg *config.Config) *site.Builder {
	conv := markdown.NewConverter(newEngine(root, cfg))
	return site.NewBuilder(conv, cfg.ContentPath(root), cfg.OutputPath(root),
		site.WithWorkers(cfg.Workers),
		site.WithLogger(logger),
	)
}
