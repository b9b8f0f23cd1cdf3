package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/storage"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search references by title, author or year",
	Long: `Full-text search over every reference source indexed by the last build.

Examples:
  cite search turbulence
  cite search "Knuth literate" --limit 5 --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []storage.Match `json:"results"`
	Count   int             `json:"count"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	db := mustOpenDatabase(root)
	defer db.Close()

	query := strings.Join(args, " ")
	matches, err := db.Search(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if matches == nil {
		matches = []storage.Match{}
	}

	if humanOutput {
		if len(matches) == 0 {
			fmt.Printf("No references match %q\n", query)
			return nil
		}
		for i, m := range matches {
			fmt.Printf("%d. %s:%s [%s]\n", i+1, m.Source, m.Key, m.Kind)
			fmt.Printf("   %s\n", truncateString(m.Title, SearchTitleMaxLen))
			fmt.Printf("   %s (%s)\n\n", truncateString(m.Authors, SearchTitleMaxLen), m.Year)
		}
		return nil
	}

	outputJSON(SearchResponse{Query: query, Results: matches, Count: len(matches)})
	return nil
}
