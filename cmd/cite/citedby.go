package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var citedBySource string

func init() {
	citedByCmd.Flags().StringVar(&citedBySource, "source", "", "Only count citations against this source")
	rootCmd.AddCommand(citedByCmd)
}

var citedByCmd = &cobra.Command{
	Use:   "cited-by <key>",
	Short: "List the pages citing a reference",
	Long: `List the pages that cited a reference key in the last build.

Examples:
  cite cited-by knuth1984
  cite cited-by keynote --source talks --human`,
	Args: cobra.ExactArgs(1),
	RunE: runCitedBy,
}

func runCitedBy(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	db := mustOpenDatabase(root)
	defer db.Close()

	key := args[0]
	pages, err := db.CitedBy(key, citedBySource)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		if len(pages) == 0 {
			fmt.Printf("%s is not cited\n", key)
			return nil
		}
		fmt.Printf("%s is cited by %d pages:\n", key, len(pages))
		for _, p := range pages {
			fmt.Printf("  %s\n", p)
		}
		return nil
	}

	outputJSON(KeyListResponse{
		Source: citedBySource,
		Key:    key,
		Pages:  nonNil(pages),
		Count:  len(pages),
	})
	return nil
}
