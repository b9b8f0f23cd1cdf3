// Package export converts references to BibTeX.
package export

import (
	"fmt"
	"strings"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

// Entry pairs a citation key with its reference.
type Entry struct {
	Key string
	Ref reference.Reference
}

// field is one "name = {value}" line; empty values are skipped.
type field struct {
	name, value string
}

// ToBibTeX converts a reference to a BibTeX entry keyed by key.
func ToBibTeX(key string, ref reference.Reference) string {
	// Fields foreign to the reference's kind are already empty here.
	rec := reference.FromReference(ref)
	entryType := determineEntryType(ref)

	fields := []field{
		{"author", formatAuthors(rec.Authors)},
		{"title", escapeLatex(rec.Title)},
	}

	switch ref.Kind() {
	case reference.KindArticle:
		venue := "journal"
		if entryType == "inproceedings" {
			venue = "booktitle"
		}
		fields = append(fields,
			field{venue, escapeLatex(rec.Journal)},
			field{"volume", rec.Volume},
			field{"number", rec.Issue},
			field{"pages", formatPages(rec.Pages)},
		)
	case reference.KindBook:
		fields = append(fields,
			field{"publisher", escapeLatex(rec.Publisher)},
			field{"pages", formatPages(rec.Pages)},
		)
	case reference.KindChapter:
		fields = append(fields,
			field{"booktitle", escapeLatex(rec.BookTitle)},
			field{"editor", formatAuthors(rec.Editors)},
			field{"pages", formatPages(rec.Pages)},
			field{"publisher", escapeLatex(rec.Publisher)},
		)
	}

	url := rec.URL
	if url == "" {
		url = rec.Source
	}
	fields = append(fields,
		field{"year", rec.Year},
		field{"doi", stripDOIPrefix(rec.DOI)},
		field{"url", url},
	)

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", f.name, f.value)
	}
	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple entries to BibTeX, separated by blank lines.
func ToBibTeXList(entries []Entry) string {
	var out []string
	for _, e := range entries {
		out = append(out, ToBibTeX(e.Key, e.Ref))
	}
	return strings.Join(out, "\n")
}

// determineEntryType returns the BibTeX entry type for a reference.
// Articles whose journal names a conference are exported as inproceedings.
func determineEntryType(ref reference.Reference) string {
	switch r := ref.(type) {
	case *reference.Book:
		return "book"
	case *reference.Chapter:
		return "incollection"
	case *reference.Article:
		venue := strings.ToLower(r.Journal)
		for _, marker := range []string{"proceedings", "conference", "workshop", "symposium"} {
			if strings.Contains(venue, marker) {
				return "inproceedings"
			}
		}
		return "article"
	}
	return "misc"
}

// formatAuthors turns a free-text author list such as
// "Smith, J., Doe, A. & Lee, K." into "Smith, J. and Doe, A. and Lee, K.".
// Lists that are not "Last, Initials" pairs are joined on "&" only.
func formatAuthors(authors string) string {
	authors = strings.TrimSpace(authors)
	if authors == "" {
		return ""
	}

	var names []string
	for _, group := range strings.Split(authors, "&") {
		parts := strings.Split(group, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 2 || len(parts)%2 != 0 {
			names = append(names, strings.TrimSpace(group))
			continue
		}
		for i := 0; i < len(parts); i += 2 {
			names = append(names, parts[i]+", "+parts[i+1])
		}
	}
	return escapeLatex(strings.Join(names, " and "))
}

// formatPages writes page ranges with a BibTeX en dash.
func formatPages(pages string) string {
	if strings.Contains(pages, "--") {
		return pages
	}
	return strings.NewReplacer("–", "--", "-", "--").Replace(pages)
}

// stripDOIPrefix removes resolver prefixes while keeping the DOI's case.
func stripDOIPrefix(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi.org/", "doi:", "DOI:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
