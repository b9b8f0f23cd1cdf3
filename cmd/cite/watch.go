package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ali-ramadhan/citekit/internal/site"
)

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", site.DefaultDebounce, "Settle time before rebuilding")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then rebuild whenever pages or references change",
	Long: `Build the site, then watch the content and reference data directories
and rebuild after changes settle. Editing a reference file drops the
reference cache so the next build reads it fresh.

Each build prints one line (JSON by default). Stop with Ctrl-C.`,
	RunE: runWatch,
}

// WatchEvent is printed after every build in watch mode.
type WatchEvent struct {
	Status    string `json:"status"`
	BuildID   string `json:"build_id,omitempty"`
	Pages     int    `json:"pages"`
	Citations int    `json:"citations"`
	Missing   int    `json:"missing"`
	Duration  string `json:"duration"`
	Error     string `json:"error,omitempty"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := mustOpenDatabase(root)
	defer db.Close()

	b := newBuilder(root, cfg)
	engine := b.Converter().Engine()

	onBuild := func(report *site.Report, err error) {
		if err != nil {
			printWatchEvent(WatchEvent{Status: "error", Error: err.Error()})
			return
		}
		ev := WatchEvent{
			Status:    "built",
			Pages:     len(report.Pages),
			Citations: report.Citations(),
			Missing:   report.MissingCount(),
			Duration:  formatDuration(report.Duration),
		}
		build, _, err := recordUsage(root, engine, db, report)
		if err != nil {
			logger.Warn("recording usage", zap.Error(err))
		} else {
			ev.BuildID = build.ID
		}
		printWatchEvent(ev)
	}

	w, err := site.NewWatcher(b, cfg.DataPath(root),
		site.WithDebounce(watchDebounce),
		site.WithWatchLogger(logger),
		site.OnBuild(onBuild),
	)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Watching %s and %s (Ctrl-C to stop)\n", b.ContentDir(), cfg.DataPath(root))
	}
	if err := w.Run(ctx); err != nil {
		exitWithError(ExitError, "watching: %v", err)
	}
	return nil
}

func printWatchEvent(ev WatchEvent) {
	if !humanOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.Encode(ev)
		return
	}
	if ev.Error != "" {
		fmt.Printf("[%s] build failed: %s\n", time.Now().Format("15:04:05"), ev.Error)
		return
	}
	fmt.Printf("[%s] built %d pages in %s: %d citations, %d missing\n",
		time.Now().Format("15:04:05"), ev.Pages, ev.Duration, ev.Citations, ev.Missing)
}
