package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ali-ramadhan/citekit/internal/logging"
	"github.com/ali-ramadhan/citekit/internal/markdown"
	"github.com/ali-ramadhan/citekit/internal/storage"
)

// DefaultWorkers is the number of pages rendered at once.
const DefaultWorkers = 4

// PageReport describes one rendered page.
type PageReport struct {
	ID      string   `json:"page"`
	File    string   `json:"file"`
	Title   string   `json:"title,omitempty"`
	Source  string   `json:"source"`
	Output  string   `json:"output,omitempty"`
	Keys    []string `json:"keys"`
	Missing []string `json:"missing,omitempty"`
}

// Report summarizes a build.
type Report struct {
	Pages    []PageReport  `json:"pages"`
	Duration time.Duration `json:"duration_ns"`
}

// Citations returns the total number of distinct keys cited per page,
// summed over pages.
func (r *Report) Citations() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Keys)
	}
	return n
}

// MissingCount returns the number of unresolved keys over all pages.
func (r *Report) MissingCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Missing)
	}
	return n
}

// Usage converts the report to usage records for the index.
func (r *Report) Usage() []storage.Usage {
	out := make([]storage.Usage, 0, len(r.Pages))
	for _, p := range r.Pages {
		out = append(out, storage.Usage{
			Page:    p.ID,
			Source:  p.Source,
			File:    p.File,
			Keys:    p.Keys,
			Missing: p.Missing,
		})
	}
	return out
}

// Builder renders every page of a content directory.
type Builder struct {
	conv       *markdown.Converter
	contentDir string
	outputDir  string
	workers    int
	logger     *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkers sets how many pages render in parallel.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the build logger.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logging.OrNop(l)
	}
}

// NewBuilder creates a builder. An empty outputDir renders without
// writing files.
func NewBuilder(conv *markdown.Converter, contentDir, outputDir string, opts ...BuilderOption) *Builder {
	b := &Builder{
		conv:       conv,
		contentDir: contentDir,
		outputDir:  outputDir,
		workers:    DefaultWorkers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Converter returns the Markdown converter the builder renders with.
func (b *Builder) Converter() *markdown.Converter { return b.conv }

// ContentDir returns the directory pages are discovered in.
func (b *Builder) ContentDir() string { return b.contentDir }

// OutputDir returns the directory fragments are written to.
func (b *Builder) OutputDir() string { return b.outputDir }

// Build resets the engine's page records and renders every page. Pages
// render in parallel; within a page all citations resolve before its
// bibliography is generated.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	b.conv.Engine().Reset()

	paths, err := Discover(b.contentDir, b.outputDir)
	if err != nil {
		return nil, err
	}

	pages := make([]*Page, len(paths))
	owners := make(map[string]string, len(paths))
	for i, p := range paths {
		page, err := LoadPage(b.contentDir, p)
		if err != nil {
			return nil, err
		}
		id := page.ID()
		if prev, dup := owners[id]; dup {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicatePage, prev, page.Rel, id)
		}
		owners[id] = page.Rel
		pages[i] = page
	}

	reports := make([]PageReport, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, _, err := b.render(page, b.outputDir != "")
			if err != nil {
				return err
			}
			reports[i] = *rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Pages: reports, Duration: time.Since(start)}
	b.logger.Info("build complete",
		zap.Int("pages", len(reports)),
		zap.Int("citations", report.Citations()),
		zap.Int("missing", report.MissingCount()),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// RenderFile renders a single Markdown file and returns its fragment
// without writing it.
func (b *Builder) RenderFile(p string) (*PageReport, []byte, error) {
	page, err := LoadPage(b.contentDir, p)
	if err != nil {
		return nil, nil, err
	}
	return b.render(page, false)
}

func (b *Builder) render(page *Page, write bool) (*PageReport, []byte, error) {
	engine := b.conv.Engine()
	id := page.ID()
	engine.Registry().ClearPage(id)

	html, err := b.conv.Convert(page.Body, id, page.ReferenceFile)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering %s: %w", page.Rel, err)
	}

	bound := engine.Page(id, page.ReferenceFile)
	rep := &PageReport{
		ID:      id,
		File:    page.Rel,
		Title:   page.Title,
		Source:  bound.Source,
		Keys:    bound.Keys(),
		Missing: bound.Missing(),
	}

	if write {
		out := OutputPath(b.outputDir, id)
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(out, html, 0644); err != nil {
			return nil, nil, fmt.Errorf("writing %s: %w", out, err)
		}
		rep.Output = out
	}

	b.logger.Debug("rendered page",
		zap.String("page", id),
		zap.Int("citations", len(rep.Keys)),
		zap.Int("missing", len(rep.Missing)))
	return rep, html, nil
}
