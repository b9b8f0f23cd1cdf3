package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ali-ramadhan/citekit/internal/reference"
)

func TestToBibTeX_Article(t *testing.T) {
	ref := &reference.Article{
		Common: reference.Common{
			Authors: "Smith, J., Doe, A. & Lee, K.",
			Year:    "2020",
			Title:   "Ocean Mixing",
			Links:   reference.Links{DOI: "https://doi.org/10.1234/Test", URL: "https://example.org"},
		},
		Journal: "JAMES",
		Volume:  "12",
		Issue:   "3",
		Pages:   "1-20",
	}

	got := ToBibTeX("smith2020", ref)

	want := `@article{smith2020,
  author = {Smith, J. and Doe, A. and Lee, K.},
  title = {Ocean Mixing},
  journal = {JAMES},
  volume = {12},
  number = {3},
  pages = {1--20},
  year = {2020},
  doi = {10.1234/Test},
  url = {https://example.org},
}
`
	if got != want {
		t.Errorf("ToBibTeX() mismatch:\n%s", cmp.Diff(want, got))
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	ref := &reference.Article{
		Common:  reference.Common{Authors: "Brown, A.", Year: "2026", Title: "A Conference Paper"},
		Journal: "Proceedings of ICML 2026",
	}

	got := ToBibTeX("brown2026", ref)

	if !strings.HasPrefix(got, "@inproceedings{brown2026,") {
		t.Errorf("conference paper should be @inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Proceedings of ICML 2026}`) {
		t.Errorf("conference paper should use booktitle, got:\n%s", got)
	}
}

func TestToBibTeX_BookChapterMisc(t *testing.T) {
	tests := []struct {
		name     string
		ref      reference.Reference
		prefix   string
		contains []string
		absent   []string
	}{
		{
			name: "book",
			ref: &reference.Book{
				Common:    reference.Common{Authors: "Vallis, G. K.", Year: "2017", Title: "Atmospheric and Oceanic Fluid Dynamics"},
				Publisher: "Cambridge University Press",
			},
			prefix:   "@book{k,",
			contains: []string{"publisher = {Cambridge University Press}", "author = {Vallis, G. K.}"},
			absent:   []string{"journal", "pages"},
		},
		{
			name: "chapter",
			ref: &reference.Chapter{
				Common:    reference.Common{Authors: "Lee, K.", Year: "2015", Title: "Eddies"},
				BookTitle: "Ocean Dynamics",
				Editors:   "Editor, E. & Other, O.",
				Pages:     "10–30",
				Publisher: "Wiley",
			},
			prefix: "@incollection{k,",
			contains: []string{
				"booktitle = {Ocean Dynamics}",
				"editor = {Editor, E. and Other, O.}",
				"pages = {10--30}",
				"publisher = {Wiley}",
			},
		},
		{
			name: "generic with source link",
			ref: &reference.Generic{
				Common: reference.Common{Title: "Oceananigans.jl", Links: reference.Links{Source: "https://github.com/CliMA/Oceananigans.jl"}},
			},
			prefix:   "@misc{k,",
			contains: []string{"url = {https://github.com/CliMA/Oceananigans.jl}"},
			absent:   []string{"author", "year"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBibTeX("k", tt.ref)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("ToBibTeX() should start with %s, got:\n%s", tt.prefix, got)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("ToBibTeX() missing %q, got:\n%s", s, got)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(got, s+" = ") {
					t.Errorf("ToBibTeX() should not contain %q, got:\n%s", s, got)
				}
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"Smith, J.", "Smith, J."},
		{"Smith, J. & Doe, A.", "Smith, J. and Doe, A."},
		{"Smith, J., Doe, A. & Lee, K.", "Smith, J. and Doe, A. and Lee, K."},
		{"CliMA Team", "CliMA Team"},
		{"Research & Development Group", "Research and Development Group"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := formatAuthors(tt.input); got != tt.want {
				t.Errorf("formatAuthors(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"A & B", `A \& B`},
		{"50%", `50\%`},
		{"$x$", `\$x\$`},
		{"a_b", `a\_b`},
		{"{x}", `\{x\}`},
		{"~", `\textasciitilde{}`},
		{`\`, `\textbackslash{}`},
	}

	for _, tt := range tests {
		if got := escapeLatex(tt.input); got != tt.want {
			t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToBibTeXList(t *testing.T) {
	entries := []Entry{
		{Key: "a", Ref: &reference.Generic{Common: reference.Common{Title: "A"}}},
		{Key: "b", Ref: &reference.Generic{Common: reference.Common{Title: "B"}}},
	}

	got := ToBibTeXList(entries)

	if strings.Count(got, "@misc{") != 2 || !strings.Contains(got, "}\n\n@misc{b,") {
		t.Errorf("ToBibTeXList() = %q", got)
	}
	if ToBibTeXList(nil) != "" {
		t.Error("ToBibTeXList(nil) should be empty")
	}
}

func TestParseBibTeXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	content := `@article{smith2020,
  title = {X},
  DOI = "https://doi.org/10.1234/ABC",
}

@book{vallis2017,
  title = {Y},
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}

	tests := []struct {
		key, doi string
		want     bool
	}{
		{"smith2020", "", true},
		{"other", "10.1234/abc", true},
		{"vallis2017", "", true},
		{"new", "10.9/new", false},
	}
	for _, tt := range tests {
		if got := idx.HasEntry(tt.key, tt.doi); got != tt.want {
			t.Errorf("HasEntry(%q, %q) = %v, want %v", tt.key, tt.doi, got, tt.want)
		}
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("Keys = %v, want empty", idx.Keys)
	}
}

func TestAppendNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	existing := "@article{old,\n  doi = {10.1/old},\n}\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{Key: "renamed", Ref: &reference.Article{Common: reference.Common{Title: "Old", Links: reference.Links{DOI: "10.1/OLD"}}}},
		{Key: "fresh", Ref: &reference.Book{Common: reference.Common{Title: "Fresh"}}},
		{Key: "fresh", Ref: &reference.Book{Common: reference.Common{Title: "Fresh again"}}},
	}

	res, err := AppendNew(path, entries)
	if err != nil {
		t.Fatalf("AppendNew() error = %v", err)
	}
	want := &AppendResult{Added: []string{"fresh"}, Skipped: []string{"renamed", "fresh"}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("AppendNew() mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), existing) || strings.Count(string(data), "@book{fresh,") != 1 {
		t.Errorf("file content:\n%s", data)
	}
}
