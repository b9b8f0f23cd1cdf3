package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ali-ramadhan/citekit/internal/citation"
	"github.com/ali-ramadhan/citekit/internal/refstore"
)

const testReferences = `
alpha:
  type: book
  authors: Adams, A.
  year: 2001
  title: Alpha
  publisher: Press
mu:
  type: article
  authors: Moore, M. & Mill, N.
  year: 2010
  title: Mu
  journal: Journal
`

const talkReferences = `
keynote:
  authors: Kay, K.
  year: 2022
  title: Keynote
`

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"references.yaml": testReferences,
		"talks.yaml":      talkReferences,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return NewConverter(citation.NewEngine(refstore.New(dir)))
}

func convert(t *testing.T, c *Converter, src, id, source string) string {
	t.Helper()
	out, err := c.Convert([]byte(src), id, source)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return string(out)
}

func TestConvert_CitationsThenBibliography(t *testing.T) {
	c := newTestConverter(t)
	src := "Intro [@mu; @alpha].\n\n## References\n\n[[bibliography]]\n"

	got := convert(t, c, src, "/post/", "")

	if !strings.Contains(got, `<p>Intro (<a href="#mu" class="citation"`) {
		t.Errorf("citation not rendered inline:\n%s", got)
	}
	if strings.Index(got, "Moore, 2010") > strings.Index(got, "Adams, 2001") {
		t.Errorf("inline citations should keep marker order:\n%s", got)
	}
	if strings.Contains(got, "[[bibliography") || strings.Contains(got, "<p></p>") {
		t.Errorf("bibliography paragraph should be replaced:\n%s", got)
	}
	bib := got[strings.Index(got, `<div class="references">`):]
	if strings.Index(bib, `id="alpha"`) > strings.Index(bib, `id="mu"`) {
		t.Errorf("bibliography should be sorted by key:\n%s", bib)
	}
	if diff := cmp.Diff([]string{"alpha", "mu"}, c.Engine().Registry().Keys("/post/")); diff != "" {
		t.Errorf("recorded keys mismatch (-want +got):\n%s", diff)
	}
}

func TestConvert_BibliographyBeforeCitations(t *testing.T) {
	c := newTestConverter(t)
	src := "[[bibliography]]\n\nLater [@alpha].\n"

	got := convert(t, c, src, "/p/", "")

	if !strings.HasPrefix(got, `<div class="references">`) || !strings.Contains(got, `id="alpha"`) {
		t.Errorf("bibliography should include citations later in the page:\n%s", got)
	}
}

func TestConvert_EmptyBibliography(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "No citations.\n\n[[bibliography]]\n", "/empty/", "")

	if got != "<p>No citations.</p>\n" {
		t.Errorf("Convert() = %q", got)
	}
}

func TestConvert_MultipleBibliographyMarkers(t *testing.T) {
	c := newTestConverter(t)
	src := "[@alpha]\n\n[[bibliography]]\n\n[[bibliography]]\n"

	got := convert(t, c, src, "/p/", "")

	if strings.Count(got, `id="alpha"`) != 2 {
		t.Errorf("each marker should render the same record:\n%s", got)
	}
}

func TestConvert_UnknownKey(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "See [@ghost].\n\n[[bibliography]]\n", "/p/", "")

	if !strings.Contains(got, `(<span class="citation-missing">[ghost]</span>)`) {
		t.Errorf("missing placeholder not rendered:\n%s", got)
	}
	if strings.Contains(got, `class="references"`) {
		t.Errorf("unknown key should not produce a bibliography:\n%s", got)
	}
}

func TestConvert_CodeAndLinksUntouched(t *testing.T) {
	c := newTestConverter(t)
	src := "Use `[@mu]` and [@alpha](https://example.org) or \\[@mu].\n"

	got := convert(t, c, src, "/p/", "")

	if !strings.Contains(got, "<code>[@mu]</code>") {
		t.Errorf("code span should be literal:\n%s", got)
	}
	if !strings.Contains(got, `<a href="https://example.org">@alpha</a>`) {
		t.Errorf("link should stay a link:\n%s", got)
	}
	if len(c.Engine().Registry().Keys("/p/")) != 0 {
		t.Errorf("no key should be recorded, got %v", c.Engine().Registry().Keys("/p/"))
	}
}

func TestConvert_MidLineBibliographyMarkerIsText(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "[@alpha] then [[bibliography]] inline.\n", "/p/", "")

	if !strings.Contains(got, "then [[bibliography]] inline.") {
		t.Errorf("mid-line marker should render literally:\n%s", got)
	}
	if strings.Contains(got, `class="references"`) {
		t.Errorf("mid-line marker should not render a bibliography:\n%s", got)
	}
}

func TestConvert_PageSourceOverride(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "[@keynote]\n\n[[bibliography]]\n", "/talks/", "talks")

	if !strings.Contains(got, "Kay, 2022") || !strings.Contains(got, `id="keynote"`) {
		t.Errorf("page source override not used:\n%s", got)
	}
}

func TestConvert_MarkerSourceOverride(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "[@alpha]\n\n[[bibliography:talks]]\n", "/p/", "")

	// alpha is not in talks, so the container renders with no entries.
	if strings.Contains(got, `id="alpha"`) {
		t.Errorf("marker source should be used for the bibliography:\n%s", got)
	}
}

func TestConvert_DefaultPage(t *testing.T) {
	c := newTestConverter(t)

	convert(t, c, "[@mu]\n", "", "")

	if diff := cmp.Diff([]string{"mu"}, c.Engine().Registry().Keys(citation.DefaultPageID)); diff != "" {
		t.Errorf("citations without a page should be recorded under the default page (-want +got):\n%s", diff)
	}
}

func TestConvert_ListItemBibliography(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "- [@alpha]\n- [[bibliography]]\n", "/p/", "")

	if !strings.Contains(got, "<li>\n<div class=\"references\">") {
		t.Errorf("tight list item should hold the bibliography:\n%s", got)
	}
}

func TestConvert_AdjacentMarkers(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "Claim [@alpha][@mu].\n", "/p/", "")

	if strings.Contains(got, "[@") {
		t.Errorf("both markers should resolve:\n%s", got)
	}
	if diff := cmp.Diff([]string{"alpha", "mu"}, c.Engine().Registry().Keys("/p/")); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvert_MarkerBeforeParentheses(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "Claim [@alpha](see p. 5).\n", "/p/", "")

	if !strings.Contains(got, "Adams, 2001") || !strings.Contains(got, "(see p. 5).") {
		t.Errorf("marker should resolve and keep the parenthetical:\n%s", got)
	}
	if diff := cmp.Diff([]string{"alpha"}, c.Engine().Registry().Keys("/p/")); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvert_ReferenceLinkUntouched(t *testing.T) {
	c := newTestConverter(t)
	src := "See [@alpha][site] and [@mu][].\n\n[site]: https://example.org\n[@mu]: https://example.org/mu\n"

	got := convert(t, c, src, "/p/", "")

	if !strings.Contains(got, `<a href="https://example.org">@alpha</a>`) {
		t.Errorf("full reference link should stay a link:\n%s", got)
	}
	if !strings.Contains(got, `<a href="https://example.org/mu">@mu</a>`) {
		t.Errorf("collapsed reference link should stay a link:\n%s", got)
	}
	if len(c.Engine().Registry().Keys("/p/")) != 0 {
		t.Errorf("no key should be recorded, got %v", c.Engine().Registry().Keys("/p/"))
	}
}

func TestConvert_BibliographyAfterParagraphLine(t *testing.T) {
	c := newTestConverter(t)

	got := convert(t, c, "Intro [@alpha]\n[[bibliography]]\nOutro\n", "/p/", "")

	if strings.Contains(got, "[[bibliography]]") {
		t.Errorf("marker should be consumed:\n%s", got)
	}
	intro := strings.Index(got, "<p>Intro ")
	bib := strings.Index(got, `<div class="references">`)
	outro := strings.Index(got, "<p>Outro</p>")
	if intro < 0 || bib < 0 || outro < 0 || !(intro < bib && bib < outro) {
		t.Errorf("want intro paragraph, bibliography, outro paragraph in order:\n%s", got)
	}
	if !strings.Contains(got, `id="alpha"`) {
		t.Errorf("bibliography should list alpha:\n%s", got)
	}
}
