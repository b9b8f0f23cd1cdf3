package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the usage index",
	Long:  `Summarize the citation usage recorded by the last build.`,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	db := mustOpenDatabase(root)
	defer db.Close()

	s, err := db.Stats()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		if s.Build == nil {
			fmt.Println("No build recorded; run 'cite build'")
			return nil
		}
		fmt.Printf("Last build:  %s (%s)\n", s.Build.BuiltAt, s.Build.ID)
		fmt.Printf("Pages:       %d\n", s.Pages)
		fmt.Printf("Citations:   %d (%d distinct keys)\n", s.Citations, s.UniqueKeys)
		fmt.Printf("Missing:     %d\n", s.Missing)
		fmt.Printf("References:  %d\n", s.References)
		return nil
	}

	outputJSON(s)
	return nil
}
