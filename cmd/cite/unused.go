package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unusedSource string

func init() {
	unusedCmd.Flags().StringVar(&unusedSource, "source", "", "Reference source (default: configured default_source)")
	rootCmd.AddCommand(unusedCmd)
}

var unusedCmd = &cobra.Command{
	Use:   "unused",
	Short: "List references no page cites",
	Long: `List the references of a source that no page cited in the last build.
Run 'cite build' first so the index is current.`,
	RunE: runUnused,
}

func runUnused(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	db := mustOpenDatabase(root)
	defer db.Close()

	source := unusedSource
	if source == "" {
		source = cfg.DefaultSource
	}

	keys, err := db.UnusedKeys(source)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		if len(keys) == 0 {
			fmt.Printf("Every reference in %s is cited\n", source)
			return nil
		}
		fmt.Printf("%d unused references in %s:\n", len(keys), source)
		for _, k := range keys {
			fmt.Printf("  %s\n", k)
		}
		return nil
	}

	outputJSON(KeyListResponse{
		Source: source,
		Keys:   nonNil(keys),
		Count:  len(keys),
	})
	return nil
}
