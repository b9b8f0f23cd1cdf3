package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ali-ramadhan/citekit/internal/config"
	"github.com/ali-ramadhan/citekit/internal/storage"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// testSite lays out a minimal site with two reference sources and two pages.
func testSite(t *testing.T) (string, *config.Config) {
	t.Helper()
	config.ResetUserConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, env := range []string{config.EnvDefaultSource, config.EnvDataDir, config.EnvOutputDir, config.EnvWorkers} {
		t.Setenv(env, "")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, config.ConfigFile), "content_dir: content\n")
	writeFile(t, filepath.Join(root, "_data/references/references.yaml"), `
alpha:
  type: book
  authors: Adams, A.
  year: 2001
  title: Alpha Methods
  publisher: Press
unused:
  authors: Ure, U.
  year: 1999
  title: Never Cited
`)
	writeFile(t, filepath.Join(root, "_data/references/talks.yaml"), `
keynote:
  authors: Kay, K.
  year: 2022
  title: Opening Keynote
`)
	writeFile(t, filepath.Join(root, "content/index.md"), "Home [@alpha; @ghost].\n\n[[bibliography]]\n")
	writeFile(t, filepath.Join(root, "content/talks.md"), "---\nreference_file: talks\n---\nSee [@keynote].\n")

	cfg, err := config.Load(root)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return root, cfg
}

func TestRecordUsage(t *testing.T) {
	root, cfg := testSite(t)

	b := newBuilder(root, cfg)
	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	build, refs, err := recordUsage(root, b.Converter().Engine(), db, report)
	if err != nil {
		t.Fatalf("recordUsage() error = %v", err)
	}
	if build.Pages != 2 {
		t.Errorf("build.Pages = %d, want 2", build.Pages)
	}
	if refs != 3 {
		t.Errorf("indexed references = %d, want 3", refs)
	}

	if _, err := os.Stat(config.UsagePath(root)); err != nil {
		t.Errorf("usage log not written: %v", err)
	}

	unused, err := db.UnusedKeys("references")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"unused"}, unused); diff != "" {
		t.Errorf("UnusedKeys() mismatch (-want +got):\n%s", diff)
	}

	pages, err := db.CitedBy("keynote", "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/talks/"}, pages); diff != "" {
		t.Errorf("CitedBy() mismatch (-want +got):\n%s", diff)
	}

	missing, err := db.MissingKeys()
	if err != nil {
		t.Fatal(err)
	}
	want := []storage.MissingKey{{Page: "/", Source: "references", Key: "ghost"}}
	if diff := cmp.Diff(want, missing); diff != "" {
		t.Errorf("MissingKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexSources_DropsDeletedSources(t *testing.T) {
	root, cfg := testSite(t)
	engine := newEngine(root, cfg)

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := indexSources(engine, db); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(cfg.DataPath(root), "talks.yaml")); err != nil {
		t.Fatal(err)
	}
	engine.Store().Reset()

	n, err := indexSources(engine, db)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("indexSources() = %d, want 2", n)
	}

	matches, err := db.Search("keynote", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("deleted source still indexed: %v", matches)
	}
}
