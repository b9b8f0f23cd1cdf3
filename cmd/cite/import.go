package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/importer"
	"github.com/ali-ramadhan/citekit/internal/reference"
	"github.com/ali-ramadhan/citekit/internal/refstore"
)

var (
	importFormat string
	importSource string
	importDryRun bool
)

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "paperpile", "Import format (paperpile)")
	importCmd.Flags().StringVar(&importSource, "source", "", "Reference source to add to (default: configured default_source)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report what would be added without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add references from a reference-manager export",
	Long: `Append references from a Paperpile JSON export to a YAML reference file.

Entries whose citation key or DOI already exist in the source are skipped.
New entries are appended; existing content and comments are kept.

Examples:
  cite import export.json
  cite import export.json --source talks --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult is the response for the import command.
type ImportResult struct {
	Source  string   `json:"source"`
	Path    string   `json:"path"`
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
	Errors  []string `json:"errors"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	if importFormat != "paperpile" {
		exitWithError(ExitError, "unsupported format: %s (supported: paperpile)", importFormat)
	}

	root := mustFindSite()
	cfg := mustLoadConfig(root)

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitError, "reading import file: %v", err)
	}

	entries, parseErrs := importer.ParsePaperpile(data)
	if entries == nil && len(parseErrs) > 0 {
		exitWithError(ExitDataError, "%v", parseErrs[0])
	}

	source := importSource
	if source == "" {
		source = cfg.DefaultSource
	}
	store := refstore.New(cfg.DataPath(root), refstore.WithLogger(logger))
	path, err := store.Path(source)
	existing := map[string]reference.Reference{}
	if err == nil {
		existing, err = refstore.ReadFile(path)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
	} else {
		path = filepath.Join(store.Dir(), source+".yaml")
	}

	fresh, skipped := importer.Merge(existing, entries)

	res := ImportResult{
		Source:  source,
		Path:    path,
		Added:   []string{},
		Skipped: nonNil(skipped),
		Errors:  []string{},
		DryRun:  importDryRun,
	}
	for _, e := range fresh {
		res.Added = append(res.Added, e.Key)
	}
	for _, err := range parseErrs {
		res.Errors = append(res.Errors, err.Error())
	}

	if !importDryRun {
		if err := refstore.AppendRecords(path, fresh); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	if humanOutput {
		verb := "Added"
		if importDryRun {
			verb = "Would add"
		}
		fmt.Printf("%s %d references to %s (%d skipped as duplicates)\n", verb, len(res.Added), path, len(res.Skipped))
		for _, e := range res.Errors {
			fmt.Printf("  [WARN] %s\n", e)
		}
	} else {
		outputJSON(res)
	}
	return nil
}
