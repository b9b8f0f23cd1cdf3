package citation

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ali-ramadhan/citekit/internal/format"
	"github.com/ali-ramadhan/citekit/internal/refstore"
)

// DefaultSourceName is the reference source used when a page names none.
const DefaultSourceName = "references"

// Engine holds the state of one build invocation: the reference cache and
// the per-page citation record. Create one per build, or Reset it between
// builds of a long-lived process.
type Engine struct {
	store         *refstore.Store
	registry      *Registry
	defaultSource string
	classes       format.Classes
	logger        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultSource sets the source used by pages without an override.
func WithDefaultSource(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.defaultSource = name
		}
	}
}

// WithClasses sets the CSS classes used in rendered markup.
func WithClasses(c format.Classes) Option {
	return func(e *Engine) {
		e.classes = c.WithDefaults()
	}
}

// WithLogger sets the logger for missing-key warnings.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine resolving keys through store.
func NewEngine(store *refstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		registry:      NewRegistry(),
		defaultSource: DefaultSourceName,
		classes:       format.DefaultClasses(),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the reference store.
func (e *Engine) Store() *refstore.Store { return e.store }

// Registry returns the page citation record.
func (e *Engine) Registry() *Registry { return e.registry }

// DefaultSource returns the process-wide default source name.
func (e *Engine) DefaultSource() string { return e.defaultSource }

// Classes returns the CSS classes in use.
func (e *Engine) Classes() format.Classes { return e.classes }

// Reset clears the page citation record. The reference cache is kept;
// reset the store separately when reference data changed.
func (e *Engine) Reset() {
	e.registry.Clear()
}

// Page binds a page identifier and its reference source. An empty id
// means DefaultPageID, an empty source the engine default.
func (e *Engine) Page(id, source string) *Page {
	if id == "" {
		id = DefaultPageID
	}
	if source == "" {
		source = e.defaultSource
	}
	return &Page{engine: e, ID: id, Source: source}
}

// Bibliography renders one entry per cited key that resolves in source,
// sorted by key. An empty key set renders nothing.
func (e *Engine) Bibliography(keys KeySource, source string) string {
	if source == "" {
		source = e.defaultSource
	}

	sorted := uniqueSorted(keys.CitedKeys())
	if len(sorted) == 0 {
		return ""
	}

	src := e.store.Load(source)

	var b strings.Builder
	fmt.Fprintf(&b, "<div class=\"%s\">\n", e.classes.References)
	for _, key := range sorted {
		ref, ok := src.Lookup(key)
		if !ok {
			e.logger.Warn("reference not found",
				zap.String("key", key),
				zap.String("source", source))
			continue
		}
		b.WriteString(format.BibliographyEntry(ref, key))
		b.WriteString("\n")
	}
	b.WriteString("</div>")

	return b.String()
}

// BibliographyForPage renders the bibliography from the record of a page
// that has already been resolved.
func (e *Engine) BibliographyForPage(pageID, source string) string {
	if pageID == "" {
		pageID = DefaultPageID
	}
	return e.Bibliography(FromPageRecord(e.registry, pageID), source)
}

// BibliographyFromContent renders the bibliography for the citation
// anchors found in rendered HTML.
func (e *Engine) BibliographyFromContent(html, source string) string {
	return e.Bibliography(FromRenderedContent(html, e.classes.Citation), source)
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
