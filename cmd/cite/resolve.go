package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	resolvePage         string
	resolveSource       string
	resolveBibliography bool
)

func init() {
	resolveCmd.Flags().StringVar(&resolvePage, "page", "", "Page identifier the citations are recorded under")
	resolveCmd.Flags().StringVar(&resolveSource, "source", "", "Reference source (default: configured default_source)")
	resolveCmd.Flags().BoolVar(&resolveBibliography, "bibliography", false, "Append the page bibliography")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [file|-]",
	Short: "Resolve citation markers in plain text",
	Long: `Resolve [@key] citation markers in a text file or stdin without Markdown
processing. Bibliography markers and other text pass through unchanged.

Examples:
  cite resolve notes.txt
  echo 'As shown [@knuth1984].' | cite resolve --human
  cite resolve draft.html --source talks --bibliography`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

// ResolveResult is the response for the resolve command.
type ResolveResult struct {
	Page         string   `json:"page"`
	Source       string   `json:"source"`
	Text         string   `json:"text"`
	Keys         []string `json:"keys"`
	Missing      []string `json:"missing"`
	Bibliography string   `json:"bibliography,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	var in []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		in, err = io.ReadAll(os.Stdin)
	} else {
		in, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitWithError(ExitError, "reading input: %v", err)
	}

	engine := newEngine(root, cfg)
	page := engine.Page(resolvePage, resolveSource)
	text := page.ResolveText(string(in))

	var bib string
	if resolveBibliography {
		bib = page.Bibliography("")
	}

	if humanOutput {
		fmt.Print(text)
		if bib != "" {
			fmt.Printf("\n%s\n", bib)
		}
		return nil
	}

	outputJSON(ResolveResult{
		Page:         page.ID,
		Source:       page.Source,
		Text:         text,
		Keys:         nonNil(page.Keys()),
		Missing:      nonNil(page.Missing()),
		Bibliography: bib,
	})
	return nil
}
