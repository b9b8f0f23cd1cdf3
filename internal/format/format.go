// Package format renders references as inline citations and bibliography
// entries. All functions are pure.
package format

import (
	"fmt"
	"strings"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

// Classes are the CSS classes placed on rendered markup.
type Classes struct {
	Citation   string // Inline citation anchor
	Missing    string // Placeholder for an unresolved key
	References string // Bibliography container
}

// DefaultClasses returns the class names used when none are configured.
func DefaultClasses() Classes {
	return Classes{
		Citation:   "citation",
		Missing:    "citation-missing",
		References: "references",
	}
}

// WithDefaults fills empty class names from DefaultClasses.
func (c Classes) WithDefaults() Classes {
	d := DefaultClasses()
	if c.Citation == "" {
		c.Citation = d.Citation
	}
	if c.Missing == "" {
		c.Missing = d.Missing
	}
	if c.References == "" {
		c.References = d.References
	}
	return c
}

// InlineCitation renders the author-year short form, e.g. "Smith, 2020".
// Only the first author is kept: the author list is cut at the first comma
// and then at the first " & ".
func InlineCitation(ref reference.Reference) string {
	if ref == nil {
		return "[Unknown]"
	}

	c := ref.Base()
	authors := orDefault(c.Authors, "Unknown")
	year := orDefault(c.Year, "Unknown")

	first := strings.Split(authors, ",")[0]
	first = strings.Split(first, " & ")[0]

	return fmt.Sprintf("%s, %s", first, year)
}

// BibliographyEntry renders the full entry for key as an HTML block whose
// element id is the key, so inline citations can link to it.
func BibliographyEntry(ref reference.Reference, key string) string {
	if ref == nil {
		return fmt.Sprintf("[Unknown reference: %s]", key)
	}

	c := ref.Base()
	var b strings.Builder

	fmt.Fprintf(&b, "<div id=\"%s\" class=\"reference\">\n", key)
	fmt.Fprintf(&b, "    <span class=\"ref-author-list\">%s (%s).</span>\n",
		orDefault(c.Authors, "Unknown Author"), orDefault(c.Year, "Unknown Year"))
	fmt.Fprintf(&b, "    <i>%s</i>", orDefault(c.Title, "Untitled"))

	switch r := ref.(type) {
	case *reference.Article:
		if r.Journal != "" {
			fmt.Fprintf(&b, ". <i>%s</i>", r.Journal)
			if r.Volume != "" {
				fmt.Fprintf(&b, " <b>%s</b>", r.Volume)
			}
			if r.Issue != "" {
				fmt.Fprintf(&b, "(%s)", r.Issue)
			}
			if r.Pages != "" {
				fmt.Fprintf(&b, ", %s", r.Pages)
			}
		}
	case *reference.Book:
		if r.Publisher != "" {
			fmt.Fprintf(&b, ". %s", r.Publisher)
		}
		if r.Pages != "" {
			fmt.Fprintf(&b, ". %s", r.Pages)
		}
	case *reference.Chapter:
		if r.BookTitle != "" {
			fmt.Fprintf(&b, ". In <i>%s</i>", r.BookTitle)
		}
		if r.Editors != "" {
			fmt.Fprintf(&b, ", ed. %s", r.Editors)
		}
		if r.Pages != "" {
			fmt.Fprintf(&b, ", %s", r.Pages)
		}
		if r.Publisher != "" {
			fmt.Fprintf(&b, ". %s", r.Publisher)
		}
	}

	b.WriteString(".")

	if links := renderLinks(c.Links); links != "" {
		b.WriteString(" ")
		b.WriteString(links)
	}

	b.WriteString("\n</div>")
	return b.String()
}

// renderLinks renders present links in doi, url, pdf, source order.
func renderLinks(l reference.Links) string {
	candidates := []struct{ label, href string }{
		{"doi", l.DOI},
		{"url", l.URL},
		{"pdf", l.PDF},
		{"source", l.Source},
	}

	var links []string
	for _, c := range candidates {
		if c.href != "" {
			links = append(links, fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, c.href, c.label))
		}
	}
	return strings.Join(links, " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
