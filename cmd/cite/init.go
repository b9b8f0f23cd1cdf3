package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new citekit site",
	Long: `Initialize a new citekit site in the given directory (default: current).

Creates:
  citekit.yml                        # Site config
  _data/references/references.yaml   # Sample reference file
  content/                           # Markdown pages
  .citekit/cache/                    # Usage index cache (gitignored)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

const sampleReferences = `# Reference keys map to entries. type is article, book or chapter;
# anything else is formatted generically.
knuth1984:
  type: article
  authors: Knuth, D. E.
  year: 1984
  title: Literate Programming
  journal: The Computer Journal
  volume: 27
  issue: 2
  pages: 97-111
  doi: 10.1093/comjnl/27.2.97
`

const sampleGitignore = "cache/\n"

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	} else if siteDir != "" {
		root = siteDir
	}
	root, err := filepath.Abs(root)
	if err != nil {
		exitWithError(ExitError, "resolving directory: %v", err)
	}

	if config.IsSite(root) {
		exitWithError(ExitError, "directory already contains a citekit site")
	}

	cfg := &config.Config{
		DataDir:       config.DefaultDataDir,
		DefaultSource: config.DefaultSourceName,
		ContentDir:    config.DefaultContentDir,
		OutputDir:     config.DefaultOutputDir,
	}

	for _, dir := range []string{cfg.DataPath(root), cfg.ContentPath(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			exitWithError(ExitError, "creating %s: %v", dir, err)
		}
	}
	if err := config.EnsureStateDirs(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	refsPath := filepath.Join(cfg.DataPath(root), cfg.DefaultSource+".yaml")
	if _, err := os.Stat(refsPath); os.IsNotExist(err) {
		if err := os.WriteFile(refsPath, []byte(sampleReferences), 0644); err != nil {
			exitWithError(ExitError, "writing sample references: %v", err)
		}
	}

	ignorePath := filepath.Join(config.StatePath(root), ".gitignore")
	if err := os.WriteFile(ignorePath, []byte(sampleGitignore), 0644); err != nil {
		exitWithError(ExitError, "writing .gitignore: %v", err)
	}

	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized citekit site in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
