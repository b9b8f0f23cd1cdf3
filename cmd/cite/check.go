package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/config"
	"github.com/ali-ramadhan/citekit/internal/linkcheck"
	"github.com/ali-ramadhan/citekit/internal/markdown"
	"github.com/ali-ramadhan/citekit/internal/pdf"
	"github.com/ali-ramadhan/citekit/internal/refstore"
	"github.com/ali-ramadhan/citekit/internal/site"
)

var (
	checkPDFs   bool
	checkLinks  bool
	checkStrict bool
)

func init() {
	checkCmd.Flags().BoolVar(&checkPDFs, "pdfs", false, "Verify that local PDFs carry the reference's DOI")
	checkCmd.Flags().BoolVar(&checkLinks, "links", false, "Check that remote doi/url/pdf/source links respond")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit with status 4 when issues are found")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify citations and reference data",
	Long: `Render every page in memory and report problems:

  missing_key        a page cites a key its source does not define
  missing_source     a page or default_source names a file that does not exist
  malformed_source   a reference file cannot be parsed
  unused_reference   a reference no page cites

With --pdfs, local pdf links are opened and their DOI compared with the
reference's doi. With --links, remote links are requested (rate limited).

Nothing is written to the output directory.`,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status     string       `json:"status"`
	Pages      int          `json:"pages"`
	Sources    int          `json:"sources"`
	References int          `json:"references"`
	Issues     []CheckIssue `json:"issues"`
}

// CheckIssue represents a single issue found during check.
type CheckIssue struct {
	Type     string `json:"type"`
	Page     string `json:"page,omitempty"`
	Source   string `json:"source,omitempty"`
	Key      string `json:"key,omitempty"`
	Link     string `json:"link,omitempty"`
	Expected string `json:"expected,omitempty"`
	Found    string `json:"found,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := newEngine(root, cfg)
	store := engine.Store()

	// An empty output directory renders without writing fragments
	b := site.NewBuilder(markdown.NewConverter(engine), cfg.ContentPath(root), "",
		site.WithWorkers(cfg.Workers),
		site.WithLogger(logger),
	)
	report, err := b.Build(ctx)
	if err != nil {
		exitWithError(ExitDataError, "rendering pages: %v", err)
	}

	var issues []CheckIssue

	names, err := store.Names()
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	// Sources named by pages or config but backed by no file
	wanted := map[string]bool{cfg.DefaultSource: true}
	for _, p := range report.Pages {
		wanted[p.Source] = true
	}
	for _, name := range sortedKeys(wanted) {
		if _, err := store.Path(name); err != nil {
			issues = append(issues, CheckIssue{Type: "missing_source", Source: name, Reason: err.Error()})
		}
	}

	// Malformed files load as empty sources, so parse them directly
	valid := make([]string, 0, len(names))
	for _, name := range names {
		path, err := store.Path(name)
		if err != nil {
			continue
		}
		if _, err := refstore.ReadFile(path); err != nil {
			issues = append(issues, CheckIssue{Type: "malformed_source", Source: name, Reason: err.Error()})
			continue
		}
		valid = append(valid, name)
	}

	for _, p := range report.Pages {
		for _, key := range p.Missing {
			issues = append(issues, CheckIssue{Type: "missing_key", Page: p.ID, Source: p.Source, Key: key})
		}
	}

	cited := make(map[string]map[string]bool)
	for _, p := range report.Pages {
		if cited[p.Source] == nil {
			cited[p.Source] = make(map[string]bool)
		}
		for _, key := range p.Keys {
			cited[p.Source][key] = true
		}
	}

	references := 0
	for _, name := range valid {
		src := store.Load(name)
		references += src.Len()
		for _, key := range src.Keys() {
			if !cited[name][key] {
				issues = append(issues, CheckIssue{Type: "unused_reference", Source: name, Key: key})
			}
		}
	}

	if checkPDFs {
		pc := pdf.NewChecker(root)
		for _, name := range valid {
			src := store.Load(name)
			for _, key := range src.Keys() {
				ref, _ := src.Lookup(key)
				links := ref.Base().Links
				if links.PDF == "" {
					continue
				}
				res := pc.Check(key, links.PDF, links.DOI)
				if res.OK() {
					continue
				}
				issues = append(issues, CheckIssue{
					Type:     "pdf_" + string(res.Status),
					Source:   name,
					Key:      key,
					Link:     res.Link,
					Expected: res.Expected,
					Found:    res.Found,
					Reason:   res.Error,
				})
			}
		}
	}

	if checkLinks {
		lc := linkcheck.NewChecker(
			linkcheck.WithRate(cfg.LinkRate),
			linkcheck.WithConcurrency(cfg.Workers),
			linkcheck.WithUserAgent(config.UserAgent()),
			linkcheck.WithLogger(logger),
		)

		var links []linkcheck.Link
		owner := make(map[int]string)
		for _, name := range valid {
			src := store.Load(name)
			for _, key := range src.Keys() {
				ref, _ := src.Lookup(key)
				for _, l := range linkcheck.LinksFor(key, ref) {
					owner[len(links)] = name
					links = append(links, l)
				}
			}
		}

		results, err := lc.Check(ctx, links)
		if err != nil {
			exitWithError(ExitError, "checking links: %v", err)
		}
		for i, res := range results {
			if res.OK {
				continue
			}
			issues = append(issues, CheckIssue{
				Type:   "broken_link",
				Source: owner[i],
				Key:    res.Key,
				Link:   res.URL,
				Reason: res.Error,
			})
		}
	}

	status := "ok"
	if len(issues) > 0 {
		status = "issues"
	}

	// Ensure issues is an empty array, not null
	if issues == nil {
		issues = []CheckIssue{}
	}

	if humanOutput {
		printCheckHuman(issues, len(report.Pages), len(valid), references)
	} else {
		outputJSON(CheckResult{
			Status:     status,
			Pages:      len(report.Pages),
			Sources:    len(valid),
			References: references,
			Issues:     issues,
		})
	}

	if checkStrict && len(issues) > 0 {
		os.Exit(ExitIssues)
	}
	return nil
}

func printCheckHuman(issues []CheckIssue, pages, sources, references int) {
	if len(issues) == 0 {
		fmt.Printf("Site check: OK\n\n%d pages, %d sources, %d references checked\n", pages, sources, references)
		return
	}

	fmt.Printf("Site check: %d issues found\n\n", len(issues))
	for _, issue := range issues {
		switch issue.Type {
		case "missing_key":
			fmt.Printf("  [WARN] Unknown key %q on %s (source %s)\n\n", issue.Key, issue.Page, issue.Source)
		case "missing_source":
			fmt.Printf("  [WARN] Missing reference source %s\n", issue.Source)
			fmt.Printf("         %s\n\n", issue.Reason)
		case "malformed_source":
			fmt.Printf("  [WARN] Malformed reference source %s\n", issue.Source)
			fmt.Printf("         %s\n\n", issue.Reason)
		case "unused_reference":
			fmt.Printf("  [INFO] Unused reference %s:%s\n\n", issue.Source, issue.Key)
		case "broken_link":
			fmt.Printf("  [WARN] Broken link for %s:%s\n", issue.Source, issue.Key)
			fmt.Printf("         %s (%s)\n\n", issue.Link, issue.Reason)
		default:
			fmt.Printf("  [WARN] PDF %s for %s:%s\n", issue.Type, issue.Source, issue.Key)
			fmt.Printf("         %s", issue.Link)
			if issue.Expected != "" || issue.Found != "" {
				fmt.Printf(" (expected %s, found %s)", issue.Expected, issue.Found)
			}
			fmt.Printf("\n\n")
		}
	}
	fmt.Printf("%d pages, %d sources, %d references checked\n", pages, sources, references)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
