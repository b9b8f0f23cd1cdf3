package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ali-ramadhan/citekit/internal/citation"
	"github.com/ali-ramadhan/citekit/internal/markdown"
	"github.com/ali-ramadhan/citekit/internal/refstore"
	"github.com/ali-ramadhan/citekit/internal/storage"
)

type testSite struct {
	root, content, data, output string
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", p, err)
	}
}

func newTestSite(t *testing.T) testSite {
	t.Helper()
	root := t.TempDir()
	s := testSite{
		root:    root,
		content: filepath.Join(root, "content"),
		data:    filepath.Join(root, "_data", "references"),
		output:  filepath.Join(root, "_site"),
	}

	writeFile(t, filepath.Join(s.data, "references.yaml"), `
alpha:
  type: book
  authors: Adams, A.
  year: 2001
  title: Alpha
  publisher: Press
mu:
  type: article
  authors: Moore, M.
  year: 2010
  title: Mu
  journal: Journal
`)
	writeFile(t, filepath.Join(s.data, "talks.yaml"), `
keynote:
  authors: Kay, K.
  year: 2022
  title: Keynote
`)
	writeFile(t, filepath.Join(s.content, "index.md"), "Home [@mu].\n\n[[bibliography]]\n")
	writeFile(t, filepath.Join(s.content, "blog", "post.md"), "Post [@alpha; @ghost].\n\n[[bibliography]]\n")
	writeFile(t, filepath.Join(s.content, "talks.md"), "---\ntitle: Talks\nreference_file: talks\n---\nSee [@keynote].\n\n[[bibliography]]\n")
	return s
}

func (s testSite) builder(opts ...BuilderOption) *Builder {
	engine := citation.NewEngine(refstore.New(s.data))
	return NewBuilder(markdown.NewConverter(engine), s.content, s.output, opts...)
}

func TestBuild(t *testing.T) {
	s := newTestSite(t)
	b := s.builder(WithWorkers(2))

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []PageReport{
		{ID: "/blog/post/", File: "blog/post.md", Source: "references", Keys: []string{"alpha"}, Missing: []string{"ghost"}},
		{ID: "/", File: "index.md", Source: "references", Keys: []string{"mu"}, Missing: []string{}},
		{ID: "/talks/", File: "talks.md", Title: "Talks", Source: "talks", Keys: []string{"keynote"}, Missing: []string{}},
	}
	for i := range report.Pages {
		report.Pages[i].Output = ""
	}
	if diff := cmp.Diff(want, report.Pages); diff != "" {
		t.Errorf("Build() pages mismatch (-want +got):\n%s", diff)
	}
	if report.Citations() != 3 || report.MissingCount() != 1 {
		t.Errorf("Citations() = %d, MissingCount() = %d", report.Citations(), report.MissingCount())
	}

	post, err := os.ReadFile(filepath.Join(s.output, "blog", "post", "index.html"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	for _, want := range []string{`<a href="#alpha"`, `[ghost]</span>`, `<div id="alpha" class="reference">`} {
		if !strings.Contains(string(post), want) {
			t.Errorf("post output missing %q:\n%s", want, post)
		}
	}
	if strings.Contains(string(post), `id="mu"`) {
		t.Errorf("post bibliography should not include keys cited on other pages:\n%s", post)
	}

	talks, err := os.ReadFile(filepath.Join(s.output, "talks", "index.html"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(talks), "Kay, 2022") {
		t.Errorf("talks page should resolve against its own source:\n%s", talks)
	}
	if _, err := os.Stat(filepath.Join(s.output, "index.html")); err != nil {
		t.Errorf("index page not written: %v", err)
	}
}

func TestBuild_Repeatable(t *testing.T) {
	s := newTestSite(t)
	b := s.builder()

	first, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first.Pages, second.Pages); diff != "" {
		t.Errorf("second build differs (-first +second):\n%s", diff)
	}
}

func TestBuild_RemovedCitationDropsFromBibliography(t *testing.T) {
	s := newTestSite(t)
	b := s.builder()
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(s.content, "index.md"), "No citations.\n\n[[bibliography]]\n")
	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	i := indexOfPage(report, "/")
	if len(report.Pages[i].Keys) != 0 {
		t.Errorf("index keys = %v, want none", report.Pages[i].Keys)
	}
	out, _ := os.ReadFile(filepath.Join(s.output, "index.html"))
	if strings.Contains(string(out), "references") {
		t.Errorf("stale bibliography rendered:\n%s", out)
	}
}

func TestBuild_DuplicatePage(t *testing.T) {
	s := newTestSite(t)
	writeFile(t, filepath.Join(s.content, "blog", "post", "index.md"), "dup")

	_, err := s.builder().Build(context.Background())
	if !errors.Is(err, ErrDuplicatePage) {
		t.Errorf("Build() error = %v, want ErrDuplicatePage", err)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	s := newTestSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.builder().Build(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestRenderFile(t *testing.T) {
	s := newTestSite(t)
	b := s.builder()

	rep, html, err := b.RenderFile(filepath.Join(s.content, "talks.md"))
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if rep.ID != "/talks/" || rep.Output != "" {
		t.Errorf("RenderFile() report = %+v", rep)
	}
	if !strings.Contains(string(html), `<div id="keynote" class="reference">`) {
		t.Errorf("RenderFile() html:\n%s", html)
	}
	if _, err := os.Stat(s.output); !os.IsNotExist(err) {
		t.Error("RenderFile() should not write output")
	}
}

func TestReportUsage(t *testing.T) {
	r := &Report{Pages: []PageReport{
		{ID: "/a/", File: "a.md", Source: "references", Keys: []string{"k"}, Missing: []string{"x"}},
	}}

	want := []storage.Usage{{Page: "/a/", Source: "references", File: "a.md", Keys: []string{"k"}, Missing: []string{"x"}}}
	if diff := cmp.Diff(want, r.Usage()); diff != "" {
		t.Errorf("Usage() mismatch (-want +got):\n%s", diff)
	}
}

func indexOfPage(r *Report, id string) int {
	for i, p := range r.Pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}
