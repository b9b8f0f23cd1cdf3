package markdown

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/ali-ramadhan/citekit/internal/citation"
)

type markerParser struct{}

// NewMarkerParser returns an inline parser for citation and bibliography
// markers. It must run before the link parser, which also triggers on '['.
func NewMarkerParser() parser.InlineParser {
	return &markerParser{}
}

func (p *markerParser) Trigger() []byte {
	return []byte{'['}
}

func (p *markerParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()

	if atLineStart(parent, block.Source(), segment.Start) {
		if source, n, ok := citation.ParseBibliographyMarker(line); ok {
			raw := append([]byte(nil), line[:n]...)
			block.Advance(n)
			return NewBibliographyMarker(source, raw)
		}
	}

	keys, n := citation.ParseCitationMarker(line)
	if n == 0 || linkFollows(pc, line[1:n-1], line[n:]) {
		return nil
	}
	raw := append([]byte(nil), line[:n]...)
	block.Advance(n)
	return NewCitation(keys, raw)
}

// atLineStart reports whether pos is preceded only by spaces on its line
// of the block being parsed.
func atLineStart(parent ast.Node, source []byte, pos int) bool {
	lines := parent.Lines()
	for i := 0; i < lines.Len(); i++ {
		l := lines.At(i)
		if pos < l.Start || pos >= l.Stop {
			continue
		}
		return util.IsBlank(source[l.Start:pos])
	}
	return false
}

// linkFollows reports whether goldmark's link parser would turn the
// bracket group with the given label into a link, given the rest of the
// line. Inline links need a well-formed "(dest "title")" tail; reference
// links need a matching definition.
func linkFollows(pc parser.Context, label, rest []byte) bool {
	if len(rest) > 0 && rest[0] == '(' {
		if inlineLinkTail(rest) {
			return true
		}
	}
	if len(rest) > 0 && rest[0] == '[' {
		if end := bytes.IndexByte(rest, ']'); end > 0 {
			if ref := rest[1:end]; len(bytes.TrimSpace(ref)) > 0 {
				return hasReference(pc, ref)
			}
		}
	}
	return hasReference(pc, label)
}

func hasReference(pc parser.Context, label []byte) bool {
	_, ok := pc.Reference(util.ToLinkReference(label))
	return ok
}

// inlineLinkTail reports whether b starts with a complete inline link
// destination and optional title, e.g. "(https://example.org "Title")".
func inlineLinkTail(b []byte) bool {
	i := skipLinkSpace(b, 1)
	if i < len(b) && b[i] == ')' {
		return true
	}

	if i < len(b) && b[i] == '<' {
		end := bytes.IndexAny(b[i+1:], "<>\n")
		if end < 0 || b[i+1+end] != '>' {
			return false
		}
		i += end + 2
	} else {
		start, depth := i, 0
	dest:
		for ; i < len(b); i++ {
			switch c := b[i]; {
			case c == '\\' && i+1 < len(b):
				i++
			case c == '(':
				depth++
			case c == ')':
				if depth == 0 {
					break dest
				}
				depth--
			case c <= ' ':
				break dest
			}
		}
		if i == start || depth != 0 {
			return false
		}
	}

	j := skipLinkSpace(b, i)
	if j > i && j < len(b) && (b[j] == '"' || b[j] == '\'' || b[j] == '(') {
		closer := b[j]
		if closer == '(' {
			closer = ')'
		}
		k := j + 1
		for ; k < len(b) && b[k] != closer; k++ {
			if b[k] == '\\' {
				k++
			}
		}
		if k >= len(b) {
			return false
		}
		j = skipLinkSpace(b, k+1)
	}
	return j < len(b) && b[j] == ')'
}

func skipLinkSpace(b []byte, i int) int {
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return i
}
