package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/citation"
)

var (
	bibPage   string
	bibHTML   string
	bibSource string
	bibCopy   bool
)

func init() {
	bibCmd.Flags().StringVar(&bibPage, "page", "", "Page identifier recorded by the last build")
	bibCmd.Flags().StringVar(&bibHTML, "html", "", "Rendered HTML file to scan for citation links")
	bibCmd.Flags().StringVar(&bibSource, "source", "", "Reference source (default: the page's source, else default_source)")
	bibCmd.Flags().BoolVar(&bibCopy, "copy", false, "Also copy the bibliography to the clipboard")
	rootCmd.AddCommand(bibCmd)
}

var bibCmd = &cobra.Command{
	Use:   "bib",
	Short: "Render a standalone bibliography",
	Long: `Render a bibliography outside the Markdown pipeline.

With --page, the keys come from the usage index written by the last build.
With --html, the keys are recovered from citation links in rendered HTML.

The bibliography is always HTML text output, never JSON.

Examples:
  cite bib --page /blog/post/
  cite bib --html _site/blog/post/index.html --source talks`,
	RunE: runBib,
}

func runBib(cmd *cobra.Command, args []string) error {
	if (bibPage == "") == (bibHTML == "") {
		exitWithError(ExitError, "exactly one of --page or --html is required")
	}

	root := mustFindSite()
	cfg := mustLoadConfig(root)
	engine := newEngine(root, cfg)

	var out string
	if bibHTML != "" {
		data, err := os.ReadFile(bibHTML)
		if err != nil {
			exitWithError(ExitError, "reading html: %v", err)
		}
		out = engine.BibliographyFromContent(string(data), bibSource)
	} else {
		db := mustOpenDatabase(root)
		defer db.Close()

		keys, err := db.KeysForPage(bibPage)
		if err != nil {
			exitWithError(ExitError, "querying page keys: %v", err)
		}
		source := bibSource
		if source == "" {
			source, err = db.SourceForPage(bibPage)
			if err != nil {
				exitWithError(ExitError, "querying page source: %v", err)
			}
		}
		out = engine.Bibliography(citation.Keys(keys), source)
	}

	if out != "" {
		fmt.Println(out)
	}
	if bibCopy {
		copyToClipboard(out)
	}
	return nil
}
