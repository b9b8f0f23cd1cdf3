package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var renderReport bool

func init() {
	renderCmd.Flags().BoolVar(&renderReport, "report", false, "Print the page report as JSON instead of the fragment")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file.md>",
	Short: "Render one page to an HTML fragment",
	Long: `Render a single Markdown page, resolving its citations and bibliography
markers, and print the HTML fragment to stdout. Nothing is written to the
output directory.

The fragment is always text output, never JSON; use --report for the
page's keys and missing keys.

Examples:
  cite render content/blog/post.md
  cite render content/blog/post.md --report`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	path, err := filepath.Abs(args[0])
	if err != nil {
		exitWithError(ExitError, "resolving path: %v", err)
	}

	b := newBuilder(root, cfg)
	rep, html, err := b.RenderFile(path)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if renderReport {
		outputJSON(rep)
		return nil
	}
	fmt.Print(string(html))
	return nil
}
