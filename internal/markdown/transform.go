package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/ali-ramadhan/citekit/internal/citation"
)

var pageKey = parser.NewContextKey()

// PageInfo identifies the page being converted.
type PageInfo struct {
	ID     string // Output URL of the page
	Source string // Reference source override, empty for the default
}

// WithPage attaches page information to a parser context.
func WithPage(pc parser.Context, id, source string) parser.Context {
	pc.Set(pageKey, PageInfo{ID: id, Source: source})
	return pc
}

// NewContext returns a parser context for the given page.
func NewContext(id, source string) parser.Context {
	return WithPage(parser.NewContext(), id, source)
}

func pageFromContext(e *citation.Engine, pc parser.Context) *citation.Page {
	info, _ := pc.Get(pageKey).(PageInfo)
	return e.Page(info.ID, info.Source)
}

type citationTransformer struct {
	engine *citation.Engine
}

// Transform resolves every citation in document order, recording usage.
func (t *citationTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	page := pageFromContext(t.engine, pc)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c, ok := n.(*Citation); ok {
			c.HTML = page.Cite(c.Keys)
		}
		return ast.WalkContinue, nil
	})
}

type bibliographyTransformer struct {
	engine *citation.Engine
}

// Transform replaces each bibliography marker with a rendered Bibliography
// block, splitting its paragraph so lines before and after the marker stay
// paragraphs of their own. It must run after citations are resolved.
func (t *bibliographyTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	page := pageFromContext(t.engine, pc)
	source := reader.Source()

	var markers []*BibliographyMarker
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if m, ok := n.(*BibliographyMarker); ok {
			markers = append(markers, m)
		}
		return ast.WalkContinue, nil
	})

	// Earlier markers move later ones into new blocks, so parents are
	// looked up as each marker is handled.
	for _, m := range markers {
		block := m.Parent()
		if block == nil {
			continue
		}
		if block.Kind() != ast.KindParagraph && block.Kind() != ast.KindTextBlock {
			continue
		}
		container := block.Parent()
		if container == nil {
			continue
		}

		var before, after []ast.Node
		seen := false
		for c := block.FirstChild(); c != nil; c = c.NextSibling() {
			switch {
			case c == ast.Node(m):
				seen = true
			case seen:
				if len(after) == 0 && isBlankText(c, source) {
					continue
				}
				after = append(after, c)
			default:
				before = append(before, c)
			}
		}

		if b := splitBlock(block, before, source); b != nil {
			if last, ok := b.LastChild().(*ast.Text); ok {
				last.SetSoftLineBreak(false)
				last.SetHardLineBreak(false)
			}
			container.InsertBefore(container, block, b)
		}
		if b := splitBlock(block, after, source); b != nil {
			if first, ok := b.FirstChild().(*ast.Text); ok {
				first.Segment = first.Segment.TrimLeftSpace(source)
			}
			container.InsertAfter(container, block, b)
		}
		container.ReplaceChild(container, block, NewBibliography(m.Source, page.Bibliography(m.Source)))
	}
}

// splitBlock moves nodes into a new block of the same kind as orig. It
// returns nil when the nodes hold nothing but whitespace.
func splitBlock(orig ast.Node, nodes []ast.Node, source []byte) ast.Node {
	blank := true
	for _, n := range nodes {
		if !isBlankText(n, source) {
			blank = false
			break
		}
	}
	if blank {
		return nil
	}

	var b ast.Node
	if orig.Kind() == ast.KindTextBlock {
		b = ast.NewTextBlock()
	} else {
		b = ast.NewParagraph()
	}
	for _, n := range nodes {
		b.AppendChild(b, n)
	}
	return b
}

func isBlankText(n ast.Node, source []byte) bool {
	t, ok := n.(*ast.Text)
	return ok && util.IsBlank(t.Segment.Value(source))
}
