package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

// KindCitation is the NodeKind of Citation nodes.
var KindCitation = ast.NewNodeKind("Citation")

// Citation is an inline citation marker. HTML is filled in by the
// citation transformer.
type Citation struct {
	ast.BaseInline
	Keys []string
	Raw  []byte // Marker text as written
	HTML string
}

// NewCitation returns a new Citation node.
func NewCitation(keys []string, raw []byte) *Citation {
	return &Citation{Keys: keys, Raw: raw}
}

// Kind implements ast.Node.
func (n *Citation) Kind() ast.NodeKind { return KindCitation }

// Dump implements ast.Node.
func (n *Citation) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Keys": strings.Join(n.Keys, ";"),
	}, nil)
}

// KindBibliographyMarker is the NodeKind of BibliographyMarker nodes.
var KindBibliographyMarker = ast.NewNodeKind("BibliographyMarker")

// BibliographyMarker is an unconsumed "[[bibliography]]" marker. Markers
// that open a paragraph are replaced by a Bibliography block; any other
// marker renders as its literal text.
type BibliographyMarker struct {
	ast.BaseInline
	Source string
	Raw    []byte
}

// NewBibliographyMarker returns a new BibliographyMarker node.
func NewBibliographyMarker(source string, raw []byte) *BibliographyMarker {
	return &BibliographyMarker{Source: source, Raw: raw}
}

// Kind implements ast.Node.
func (n *BibliographyMarker) Kind() ast.NodeKind { return KindBibliographyMarker }

// Dump implements ast.Node.
func (n *BibliographyMarker) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Source": n.Source}, nil)
}

// KindBibliography is the NodeKind of Bibliography nodes.
var KindBibliography = ast.NewNodeKind("Bibliography")

// Bibliography is a rendered bibliography block.
type Bibliography struct {
	ast.BaseBlock
	Source string
	HTML   string
}

// NewBibliography returns a new Bibliography node.
func NewBibliography(source, html string) *Bibliography {
	return &Bibliography{Source: source, HTML: html}
}

// Kind implements ast.Node.
func (n *Bibliography) Kind() ast.NodeKind { return KindBibliography }

// Dump implements ast.Node.
func (n *Bibliography) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Source": n.Source}, nil)
}
