package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

type htmlRenderer struct{}

// NewHTMLRenderer returns a renderer for citation nodes.
func NewHTMLRenderer() renderer.NodeRenderer {
	return &htmlRenderer{}
}

func (r *htmlRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCitation, r.renderCitation)
	reg.Register(KindBibliographyMarker, r.renderBibliographyMarker)
	reg.Register(KindBibliography, r.renderBibliography)
}

func (r *htmlRenderer) renderCitation(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Citation)
	if n.HTML == "" {
		_, _ = w.Write(util.EscapeHTML(n.Raw))
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(n.HTML)
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) renderBibliographyMarker(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.Write(util.EscapeHTML(node.(*BibliographyMarker).Raw))
	}
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) renderBibliography(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Bibliography)
	if n.HTML != "" {
		_, _ = w.WriteString(n.HTML)
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}
