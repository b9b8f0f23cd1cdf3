package citation

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ali-ramadhan/citekit/internal/format"
)

// Page resolves citations for a single page against one reference source.
type Page struct {
	engine *Engine
	ID     string
	Source string
}

// Cite renders one citation marker. Keys are rendered in marker order and
// wrapped in parentheses, separated by "; ". Resolved keys are recorded
// as used on the page; unknown keys render a placeholder and are not.
func (p *Page) Cite(keys []string) string {
	e := p.engine
	src := e.store.Load(p.Source)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		ref, ok := src.Lookup(key)
		if !ok {
			e.logger.Warn("citation key not found",
				zap.String("key", key),
				zap.String("source", p.Source),
				zap.String("page", p.ID))
			e.registry.Miss(p.ID, key)
			parts = append(parts, fmt.Sprintf(`<span class="%s">[%s]</span>`, e.classes.Missing, key))
			continue
		}

		e.registry.Use(p.ID, key)
		parts = append(parts, fmt.Sprintf(`<a href="#%s" class="%s" data-tooltip='%s'>%s</a>`,
			key, e.classes.Citation, format.Tooltip(ref), format.InlineCitation(ref)))
	}

	return "(" + strings.Join(parts, "; ") + ")"
}

// ResolveText replaces every citation marker in text. Bibliography markers
// and other text pass through unchanged, so resolving resolved output is a
// no-op.
func (p *Page) ResolveText(text string) string {
	var b strings.Builder
	for _, seg := range Scan(text) {
		if seg.Kind == SegmentCitation {
			b.WriteString(p.Cite(seg.Keys))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Keys returns the resolved keys cited on this page so far.
func (p *Page) Keys() []string {
	return p.engine.registry.Keys(p.ID)
}

// Missing returns the keys cited on this page that did not resolve.
func (p *Page) Missing() []string {
	return p.engine.registry.Missing(p.ID)
}

// Bibliography renders the page's bibliography from its accumulated record.
// source overrides the page's source; a differing source is honored but
// logged, since inline citations were resolved against the page source.
func (p *Page) Bibliography(source string) string {
	if source == "" {
		source = p.Source
	} else if source != p.Source {
		p.engine.logger.Warn("bibliography source differs from citation source",
			zap.String("page", p.ID),
			zap.String("citations", p.Source),
			zap.String("bibliography", source))
	}
	return p.engine.Bibliography(FromPageRecord(p.engine.registry, p.ID), source)
}
