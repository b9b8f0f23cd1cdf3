package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/citation"
	"github.com/ali-ramadhan/citekit/internal/config"
	"github.com/ali-ramadhan/citekit/internal/reference"
	"github.com/ali-ramadhan/citekit/internal/site"
	"github.com/ali-ramadhan/citekit/internal/storage"
)

var buildReport bool

func init() {
	buildCmd.Flags().BoolVar(&buildReport, "report", false, "Include the per-page report")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render every page and rebuild the usage index",
	Long: `Render every Markdown page in the content directory to an HTML fragment
at <output>/<url>/index.html, then record per-page citation usage in
.citekit/usage.jsonl and rebuild the SQLite query cache from it.

Missing keys are reported but do not fail the build.`,
	RunE: runBuild,
}

// BuildResult is the response for the build command.
type BuildResult struct {
	Status     string            `json:"status"`
	BuildID    string            `json:"build_id"`
	Pages      int               `json:"pages"`
	Citations  int               `json:"citations"`
	Missing    int               `json:"missing"`
	References int               `json:"references"`
	Duration   string            `json:"duration"`
	Output     string            `json:"output"`
	Report     []site.PageReport `json:"report,omitempty"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := newBuilder(root, cfg)
	report, err := b.Build(ctx)
	if err != nil {
		exitWithError(ExitDataError, "building site: %v", err)
	}

	db := mustOpenDatabase(root)
	defer db.Close()

	build, refs, err := recordUsage(root, b.Converter().Engine(), db, report)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Built %d pages in %s: %d citations, %d missing\n",
			len(report.Pages), formatDuration(report.Duration), report.Citations(), report.MissingCount())
		for _, p := range report.Pages {
			for _, key := range p.Missing {
				fmt.Printf("  [WARN] %s: unknown key %q (source %s)\n", p.ID, key, p.Source)
			}
		}
		return nil
	}

	res := BuildResult{
		Status:     "built",
		BuildID:    build.ID,
		Pages:      len(report.Pages),
		Citations:  report.Citations(),
		Missing:    report.MissingCount(),
		References: refs,
		Duration:   formatDuration(report.Duration),
		Output:     b.OutputDir(),
	}
	if buildReport {
		res.Report = report.Pages
	}
	outputJSON(res)
	return nil
}

// recordUsage writes the build's usage log, indexes every reference source
// and rebuilds the query cache from the log. It returns the new build and
// the number of references indexed.
func recordUsage(root string, engine *citation.Engine, db *storage.DB, report *site.Report) (*storage.Build, int, error) {
	if err := config.EnsureStateDirs(root); err != nil {
		return nil, 0, err
	}

	usagePath := config.UsagePath(root)
	if err := storage.WriteAllUsage(usagePath, report.Usage()); err != nil {
		return nil, 0, fmt.Errorf("writing usage log: %w", err)
	}

	refs, err := indexSources(engine, db)
	if err != nil {
		return nil, 0, err
	}

	build, err := db.RebuildFromJSONL(usagePath)
	if err != nil {
		return nil, 0, fmt.Errorf("rebuilding usage index: %w", err)
	}
	return build, refs, nil
}

// indexSources loads every reference file in the data directory into the
// index so unused and search queries can see them.
func indexSources(engine *citation.Engine, db *storage.DB) (int, error) {
	store := engine.Store()
	names, err := store.Names()
	if err != nil {
		return 0, err
	}

	if err := db.ClearRefs(); err != nil {
		return 0, err
	}

	total := 0
	for _, name := range names {
		src := store.Load(name)
		refs := make(map[string]reference.Reference, src.Len())
		for _, key := range src.Keys() {
			ref, _ := src.Lookup(key)
			refs[key] = ref
		}
		n, err := db.IndexSource(name, refs)
		if err != nil {
			return 0, fmt.Errorf("indexing %s: %w", name, err)
		}
		total += n
	}
	return total, nil
}
