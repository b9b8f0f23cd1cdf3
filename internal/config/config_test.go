package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ali-ramadhan/citekit/internal/format"
)

// isolate points user config and CITEKIT_* variables away from the host.
func isolate(t *testing.T) {
	t.Helper()
	ResetUserConfigCache()
	t.Cleanup(ResetUserConfigCache)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{EnvDefaultSource, EnvDataDir, EnvOutputDir, EnvWorkers} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(ConfigPath(root), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestPathFunctions(t *testing.T) {
	root := "/test/site"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"ConfigPath", ConfigPath, "/test/site/citekit.yml"},
		{"StatePath", StatePath, "/test/site/.citekit"},
		{"UsagePath", UsagePath, "/test/site/.citekit/usage.jsonl"},
		{"CachePath", CachePath, "/test/site/.citekit/cache"},
		{"DBPath", DBPath, "/test/site/.citekit/cache/usage.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsSite(t *testing.T) {
	tmpDir := t.TempDir()

	if IsSite(tmpDir) {
		t.Error("IsSite() = true for directory without citekit.yml")
	}

	writeConfig(t, tmpDir, "")

	if !IsSite(tmpDir) {
		t.Error("IsSite() = false for site directory")
	}
}

func TestIsSite_DirNotFile(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Mkdir(ConfigPath(tmpDir), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if IsSite(tmpDir) {
		t.Error("IsSite() = true when citekit.yml is a directory")
	}
}

func TestFindSite(t *testing.T) {
	tmpDir := t.TempDir()
	siteDir := filepath.Join(tmpDir, "site")
	nestedDir := filepath.Join(siteDir, "content", "blog")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	writeConfig(t, siteDir, "")

	for _, start := range []string{nestedDir, siteDir} {
		found, err := FindSite(start)
		if err != nil {
			t.Fatalf("FindSite(%q) error = %v", start, err)
		}
		if found != siteDir {
			t.Errorf("FindSite(%q) = %q, want %q", start, found, siteDir)
		}
	}
}

func TestFindSite_NotFound(t *testing.T) {
	_, err := FindSite(t.TempDir())
	if !errors.Is(err, ErrNotSite) {
		t.Errorf("FindSite() error = %v, want ErrNotSite", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, "")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		DataDir:       DefaultDataDir,
		DefaultSource: DefaultSourceName,
		ContentDir:    DefaultContentDir,
		OutputDir:     DefaultOutputDir,
		Workers:       DefaultWorkers,
		LinkRate:      DefaultLinkRate,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(format.DefaultClasses(), cfg.Classes()); diff != "" {
		t.Errorf("Classes() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileValues(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, `
data_dir: refs
default_source: papers
citation_class: cite
workers: 8
link_rate: 0.5
`)

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultSource != "papers" || cfg.Workers != 8 || cfg.LinkRate != 0.5 {
		t.Errorf("Load() = %+v", cfg)
	}
	if got := cfg.DataPath(root); got != filepath.Join(root, "refs") {
		t.Errorf("DataPath() = %q", got)
	}
	if got := cfg.Classes().Citation; got != "cite" {
		t.Errorf("Classes().Citation = %q, want cite", got)
	}
	if got := cfg.Classes().Missing; got != "citation-missing" {
		t.Errorf("Classes().Missing = %q, want default", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, "default_source: papers\noutput_dir: public\n")
	t.Setenv(EnvDefaultSource, "talks")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultSource != "talks" {
		t.Errorf("DefaultSource = %q, want talks", cfg.DefaultSource)
	}
	if cfg.OutputDir != "public" {
		t.Errorf("OutputDir = %q, want public", cfg.OutputDir)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, "")
	if err := os.WriteFile(filepath.Join(root, EnvFile), []byte(EnvDataDir+"=/abs/refs\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	// godotenv does not overwrite variables that are already set.
	os.Unsetenv(EnvDataDir)
	t.Cleanup(func() { os.Unsetenv(EnvDataDir) })

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.DataPath(root); got != "/abs/refs" {
		t.Errorf("DataPath() = %q, want /abs/refs", got)
	}
}

func TestLoad_UserDefaults(t *testing.T) {
	isolate(t)
	userDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), UserConfigDir)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatalf("Failed to create user config dir: %v", err)
	}
	content := "workers: 2\nlink_rate: 9\nuser_agent: citekit-test\n"
	if err := os.WriteFile(filepath.Join(userDir, UserConfigFile), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write user config: %v", err)
	}
	root := t.TempDir()
	writeConfig(t, root, "link_rate: 1\n")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want user default 2", cfg.Workers)
	}
	if cfg.LinkRate != 1 {
		t.Errorf("LinkRate = %v, want site value 1", cfg.LinkRate)
	}
	if got := UserAgent(); got != "citekit-test" {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	isolate(t)
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() should return error when config not found")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, "workers: [unclosed")

	if _, err := Load(root); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	cfg := &Config{DefaultSource: "papers", Workers: 3}
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSource != "papers" || loaded.Workers != 3 {
		t.Errorf("Load() = %+v", loaded)
	}
}

func TestEnsureStateDirs(t *testing.T) {
	root := t.TempDir()
	if err := EnsureStateDirs(root); err != nil {
		t.Fatalf("EnsureStateDirs() error = %v", err)
	}
	if info, err := os.Stat(CachePath(root)); err != nil || !info.IsDir() {
		t.Errorf("cache dir not created: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/refs", filepath.Join(home, "refs")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
