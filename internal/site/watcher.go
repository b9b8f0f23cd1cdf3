package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ali-ramadhan/citekit/internal/logging"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher rebuilds the site when pages or reference files change.
type Watcher struct {
	builder  *Builder
	dataDir  string
	debounce time.Duration
	logger   *zap.Logger
	onBuild  func(*Report, error)

	watcher *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the settle time before a rebuild.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logging.OrNop(l)
	}
}

// OnBuild registers a callback invoked after every build, including the
// initial one.
func OnBuild(fn func(*Report, error)) WatcherOption {
	return func(w *Watcher) {
		w.onBuild = fn
	}
}

// NewWatcher creates a watcher over the builder's content directory and
// the reference data directory.
func NewWatcher(b *Builder, dataDir string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		builder:  b,
		dataDir:  dataDir,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		onBuild:  func(*Report, error) {},
		watcher:  fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run builds once, then rebuilds on every settled change until ctx is done.
// A change to reference data also drops the reference cache.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addTree(w.builder.ContentDir()); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dataDir); err != nil {
		w.logger.Warn("cannot watch reference data", zap.String("dir", w.dataDir), zap.Error(err))
	}

	w.rebuild(ctx, false)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending, dataChanged := false, false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			data, relevant := w.classify(event)
			if !relevant {
				continue
			}
			w.logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			dataChanged = dataChanged || data
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))

		case <-timer.C:
			if pending {
				w.rebuild(ctx, dataChanged)
				pending, dataChanged = false, false
			}
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context, dataChanged bool) {
	if dataChanged {
		w.builder.Converter().Engine().Store().Reset()
	}
	report, err := w.builder.Build(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("build failed", zap.Error(err))
	}
	w.onBuild(report, err)
}

// classify reports whether an event touches reference data and whether
// it matters at all. New content directories are added to the watch.
func (w *Watcher) classify(event fsnotify.Event) (data, relevant bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false, false
	}

	if filepath.Dir(event.Name) == filepath.Clean(w.dataDir) {
		ext := strings.ToLower(filepath.Ext(event.Name))
		return true, ext == ".yaml" || ext == ".yml"
	}

	if out := w.builder.OutputDir(); out != "" && strings.HasPrefix(event.Name, filepath.Clean(out)+string(filepath.Separator)) {
		return false, false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return false, true
		}
	}

	return false, strings.EqualFold(filepath.Ext(event.Name), ".md")
}

// addTree watches dir and every non-hidden subdirectory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if out := w.builder.OutputDir(); out != "" && p == filepath.Clean(out) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
