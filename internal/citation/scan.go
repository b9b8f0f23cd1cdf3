// Package citation resolves inline citation markers against reference
// sources and renders per-page bibliographies.
package citation

import (
	"bytes"
	"strings"
)

// SegmentKind classifies a run of scanned text.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentCitation
	SegmentBibliography
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentCitation:
		return "citation"
	case SegmentBibliography:
		return "bibliography"
	default:
		return "text"
	}
}

// Segment is one piece of scanned text. Text always holds the raw input
// covered by the segment.
type Segment struct {
	Kind   SegmentKind
	Text   string
	Keys   []string // Citation keys in marker order (SegmentCitation)
	Source string   // Explicit reference source, if any (SegmentBibliography)
}

const bibliographyPrefix = "[[bibliography"

// Scan splits text into plain text, citation markers ("[@a]", "[@a; @b]")
// and bibliography markers ("[[bibliography]]", "[[bibliography:name]]").
// Bibliography markers are only recognized at the start of a line.
func Scan(text string) []Segment {
	var segments []Segment
	src := []byte(text)
	start := 0

	flush := func(end int) {
		if end > start {
			segments = append(segments, Segment{Kind: SegmentText, Text: text[start:end]})
		}
	}

	for i := 0; i < len(src); {
		if src[i] != '[' {
			i++
			continue
		}

		if i == 0 || src[i-1] == '\n' {
			if source, n, ok := ParseBibliographyMarker(src[i:]); ok {
				flush(i)
				segments = append(segments, Segment{Kind: SegmentBibliography, Text: text[i : i+n], Source: source})
				i += n
				start = i
				continue
			}
		}

		if keys, n := ParseCitationMarker(src[i:]); n > 0 {
			flush(i)
			segments = append(segments, Segment{Kind: SegmentCitation, Text: text[i : i+n], Keys: keys})
			i += n
			start = i
			continue
		}
		i++
	}
	flush(len(src))

	return segments
}

// ParseCitationMarker parses a citation marker at the start of b and
// returns its keys and byte length. n is 0 if b does not start with one.
// Text following the closing bracket is never inspected.
func ParseCitationMarker(b []byte) (keys []string, n int) {
	if len(b) < 3 || b[0] != '[' || b[1] != '@' {
		return nil, 0
	}

	end := bytes.IndexByte(b, ']')
	if end < 0 {
		return nil, 0
	}
	inner := b[1:end]
	if bytes.IndexByte(inner, '\n') >= 0 {
		return nil, 0
	}

	for _, part := range strings.Split(string(inner), ";") {
		key := strings.TrimPrefix(strings.TrimSpace(part), "@")
		if key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, 0
	}

	return keys, end + 1
}

// ParseBibliographyMarker parses a bibliography marker at the start of b.
// source is the explicit reference source name, or empty.
func ParseBibliographyMarker(b []byte) (source string, n int, ok bool) {
	if !bytes.HasPrefix(b, []byte(bibliographyPrefix)) {
		return "", 0, false
	}
	rest := b[len(bibliographyPrefix):]

	if bytes.HasPrefix(rest, []byte("]]")) {
		return "", len(bibliographyPrefix) + 2, true
	}
	if len(rest) == 0 || rest[0] != ':' {
		return "", 0, false
	}

	end := bytes.Index(rest, []byte("]]"))
	if end < 2 {
		return "", 0, false
	}
	name := rest[1:end]
	if bytes.ContainsAny(name, "]\n") {
		return "", 0, false
	}
	source = strings.TrimSpace(string(name))
	if source == "" {
		return "", 0, false
	}

	return source, len(bibliographyPrefix) + end + 2, true
}
