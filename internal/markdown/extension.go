// Package markdown wires citation resolution into goldmark: an inline parser
// for markers, two ordered AST passes (citations, then bibliographies) and
// an HTML renderer for the resulting nodes.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/ali-ramadhan/citekit/internal/citation"
)

// Priorities. Lower runs first; goldmark's link parser is at 200.
const (
	markerParserPriority     = 199
	citationPassPriority     = 100
	bibliographyPassPriority = 200
	rendererPriority         = 500
)

type citations struct {
	engine *citation.Engine
}

// NewExtension returns a goldmark extension resolving citations through engine.
func NewExtension(engine *citation.Engine) goldmark.Extender {
	return &citations{engine: engine}
}

// Extend implements goldmark.Extender.
func (e *citations) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(NewMarkerParser(), markerParserPriority),
		),
		parser.WithASTTransformers(
			util.Prioritized(&citationTransformer{engine: e.engine}, citationPassPriority),
			util.Prioritized(&bibliographyTransformer{engine: e.engine}, bibliographyPassPriority),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewHTMLRenderer(), rendererPriority),
	))
}

// Converter renders Markdown pages with citations.
type Converter struct {
	md     goldmark.Markdown
	engine *citation.Engine
}

// NewConverter builds a goldmark pipeline with tables, strikethrough,
// footnotes, raw HTML passthrough and citations.
func NewConverter(engine *citation.Engine) *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Footnote,
			NewExtension(engine),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Converter{md: md, engine: engine}
}

// Engine returns the citation engine behind the converter.
func (c *Converter) Engine() *citation.Engine {
	return c.engine
}

// Convert renders src as the page id, resolving citations against source
// (empty for the engine default).
func (c *Converter) Convert(src []byte, id, source string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf, parser.WithContext(NewContext(id, source))); err != nil {
		return nil, fmt.Errorf("converting %s: %w", id, err)
	}
	return buf.Bytes(), nil
}
