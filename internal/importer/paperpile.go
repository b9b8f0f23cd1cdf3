// Package importer converts reference-manager exports into reference records.
package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ali-ramadhan/citekit/internal/reference"
	"github.com/ali-ramadhan/citekit/internal/refstore"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry represents a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string         `json:"_id"`
	Citekey   string         `json:"citekey"`
	PubType   string         `json:"pubtype"`
	DOI       string         `json:"doi"`
	URL       []string       `json:"url"`
	Title     string         `json:"title"`
	Journal   string         `json:"journal"`
	Volume    FlexibleString `json:"volume"`
	Issue     FlexibleString `json:"issue"`
	Pages     FlexibleString `json:"pages"`
	Publisher string         `json:"publisher"`
	BookTitle string         `json:"booktitle"`
	Published struct {
		Year FlexibleString `json:"year"`
	} `json:"published"`
	Author      []Person `json:"author"`
	Editor      []Person `json:"editor"`
	Attachments []struct {
		ArticlePDF int    `json:"article_pdf"` // 1 = main PDF, 0 = supplement
		Filename   string `json:"filename"`
	} `json:"attachments"`
}

// Person is an author or editor in a Paperpile export.
type Person struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// Entry is one imported reference with its citation key.
type Entry = refstore.Entry

// ParsePaperpile parses a Paperpile JSON export. Entries that cannot be
// converted are reported and skipped.
func ParsePaperpile(data []byte) ([]Entry, []error) {
	var raw []PaperpileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, []error{fmt.Errorf("parsing Paperpile JSON: %w", err)}
	}

	var entries []Entry
	var errs []error
	for i, e := range raw {
		entry, err := paperpileEntryToRecord(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, e.Citekey, err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, errs
}

func paperpileEntryToRecord(e PaperpileEntry) (Entry, error) {
	if e.Title == "" {
		return Entry{}, fmt.Errorf("missing required field 'title'")
	}
	if len(e.Author) == 0 {
		return Entry{}, fmt.Errorf("missing required field 'author'")
	}
	year := e.Published.Year.String()
	if year == "" {
		return Entry{}, fmt.Errorf("missing required field 'published.year'")
	}
	if _, err := strconv.Atoi(year); err != nil {
		return Entry{}, fmt.Errorf("invalid year: %s", year)
	}

	key := e.Citekey
	if key == "" {
		key = e.ID
	}
	if key == "" {
		return Entry{}, fmt.Errorf("missing citekey and _id")
	}

	rec := reference.Record{
		Type:    string(kindFor(e.PubType)),
		Authors: FormatPeople(e.Author),
		Year:    year,
		Title:   e.Title,
		Pages:   e.Pages.String(),
		DOI:     e.DOI,
	}
	if len(e.URL) > 0 {
		rec.URL = e.URL[0]
	}
	for _, att := range e.Attachments {
		if att.ArticlePDF == 1 {
			rec.PDF = att.Filename
			break
		}
	}

	switch reference.Kind(rec.Type) {
	case reference.KindArticle:
		rec.Journal = e.Journal
		rec.Volume = e.Volume.String()
		rec.Issue = e.Issue.String()
	case reference.KindBook:
		rec.Publisher = e.Publisher
	case reference.KindChapter:
		rec.BookTitle = e.BookTitle
		rec.Editors = FormatPeople(e.Editor)
		rec.Publisher = e.Publisher
	default:
		rec.Type = ""
		rec.Pages = ""
	}

	return Entry{Key: key, Record: rec}, nil
}

// kindFor maps Paperpile pubtype codes to reference kinds.
func kindFor(pubtype string) reference.Kind {
	switch strings.ToUpper(pubtype) {
	case "JOUR", "ARTICLE":
		return reference.KindArticle
	case "BOOK":
		return reference.KindBook
	case "CHAP", "INBOOK", "INCOLLECTION":
		return reference.KindChapter
	}
	return reference.KindGeneric
}

// FormatPeople renders names as "Last, F., Last, F. & Last, F.".
func FormatPeople(people []Person) string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		name := strings.TrimSpace(p.Last)
		if in := initials(p.First); in != "" {
			name += ", " + in
		}
		if name != "" {
			names = append(names, name)
		}
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
}

// initials abbreviates given names: "John Ronald" is "J. R." and
// "Jean-Luc" is "J.-L.".
func initials(first string) string {
	var parts []string
	for _, word := range strings.Fields(first) {
		var hy []string
		for _, piece := range strings.Split(word, "-") {
			r := []rune(strings.TrimSuffix(piece, "."))
			if len(r) == 0 {
				continue
			}
			hy = append(hy, string(unicode.ToUpper(r[0]))+".")
		}
		if len(hy) > 0 {
			parts = append(parts, strings.Join(hy, "-"))
		}
	}
	return strings.Join(parts, " ")
}
