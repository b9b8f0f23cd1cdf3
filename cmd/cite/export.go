package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/export"
)

var (
	exportBibtex bool
	exportSource string
	exportKeys   string
	exportCited  bool
	exportAppend string
	exportCopy   bool
)

func init() {
	exportCmd.Flags().BoolVar(&exportBibtex, "bibtex", false, "Export to BibTeX format")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "Reference source (default: configured default_source)")
	exportCmd.Flags().StringVar(&exportKeys, "keys", "", "Export only specified keys (comma-separated)")
	exportCmd.Flags().BoolVar(&exportCited, "cited", false, "Export only keys cited in the last build")
	exportCmd.Flags().StringVar(&exportAppend, "append", "", "Append new entries to this .bib file, skipping duplicates")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "Also copy the BibTeX to the clipboard")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export references to BibTeX format",
	Long: `Export references to BibTeX format.

Without --append, BibTeX is written to stdout (always text, never JSON).
With --append, entries whose DOI or key already appear in the file are
skipped and a summary is printed.

Examples:
  cite export --bibtex
  cite export --bibtex --keys knuth1984,lamport1994
  cite export --bibtex --source talks --cited > talks.bib
  cite export --bibtex --append paper/refs.bib`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if !exportBibtex {
		exitWithError(ExitError, "--bibtex flag is required")
	}
	if exportKeys != "" && exportCited {
		exitWithError(ExitError, "--keys and --cited are mutually exclusive")
	}

	root := mustFindSite()
	cfg := mustLoadConfig(root)
	engine := newEngine(root, cfg)

	source := exportSource
	if source == "" {
		source = cfg.DefaultSource
	}
	if _, err := engine.Store().Path(source); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	src := engine.Store().Load(source)

	var keys []string
	switch {
	case exportKeys != "":
		keys = splitList(exportKeys)
	case exportCited:
		db := mustOpenDatabase(root)
		cited, err := db.CitedKeys(source)
		db.Close()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		keys = cited
	default:
		keys = src.Keys()
	}

	entries := make([]export.Entry, 0, len(keys))
	for _, key := range keys {
		ref, ok := src.Lookup(key)
		if !ok {
			exitWithError(ExitDataError, "unknown key in %s: %s", source, key)
		}
		entries = append(entries, export.Entry{Key: key, Ref: ref})
	}

	if exportAppend == "" {
		bibtex := export.ToBibTeXList(entries)
		fmt.Print(bibtex)
		if exportCopy {
			copyToClipboard(bibtex)
		}
		return nil
	}

	res, err := export.AppendNew(exportAppend, entries)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if humanOutput {
		fmt.Printf("Appended %d entries to %s (%d already present)\n", len(res.Added), exportAppend, len(res.Skipped))
	} else {
		outputJSON(res)
	}
	return nil
}
