package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/storage"
)

func init() {
	rootCmd.AddCommand(missingCmd)
}

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List unresolved citations from the last build",
	RunE:  runMissing,
}

// MissingResponse is the response for the missing command.
type MissingResponse struct {
	Missing []storage.MissingKey `json:"missing"`
	Count   int                  `json:"count"`
}

func runMissing(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	db := mustOpenDatabase(root)
	defer db.Close()

	missing, err := db.MissingKeys()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if missing == nil {
		missing = []storage.MissingKey{}
	}

	if humanOutput {
		if len(missing) == 0 {
			fmt.Println("No unresolved citations")
			return nil
		}
		for _, m := range missing {
			fmt.Printf("  %s: %s (source %s)\n", m.Page, m.Key, m.Source)
		}
		return nil
	}

	outputJSON(MissingResponse{Missing: missing, Count: len(missing)})
	return nil
}
