// Package config handles site and user configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ali-ramadhan/citekit/internal/format"
)

// Config represents site configuration stored in citekit.yml.
type Config struct {
	DataDir         string  `yaml:"data_dir,omitempty"`         // Directory of reference YAML files
	DefaultSource   string  `yaml:"default_source,omitempty"`   // Reference Source used when a page names none
	ContentDir      string  `yaml:"content_dir,omitempty"`      // Markdown pages
	OutputDir       string  `yaml:"output_dir,omitempty"`       // Rendered fragments
	CitationClass   string  `yaml:"citation_class,omitempty"`   // Class on resolved citation links
	MissingClass    string  `yaml:"missing_class,omitempty"`    // Class on unknown-key placeholders
	ReferencesClass string  `yaml:"references_class,omitempty"` // Class on the bibliography container
	Workers         int     `yaml:"workers,omitempty"`          // Pages rendered in parallel
	LinkRate        float64 `yaml:"link_rate,omitempty"`        // Link checks per second
}

const (
	ConfigFile = "citekit.yml"
	EnvFile    = ".env"
	StateDir   = ".citekit"
	UsageFile  = "usage.jsonl"
	CacheDir   = "cache"
	DBFile     = "usage.db"

	DefaultDataDir       = "_data/references"
	DefaultSourceName    = "references"
	DefaultContentDir    = "content"
	DefaultOutputDir     = "_site"
	DefaultWorkers       = 4
	DefaultLinkRate      = 2.0
	EnvDefaultSource     = "CITEKIT_DEFAULT_SOURCE"
	EnvDataDir           = "CITEKIT_DATA_DIR"
	EnvOutputDir         = "CITEKIT_OUTPUT_DIR"
	EnvWorkers           = "CITEKIT_WORKERS"
	defaultDirPermission = 0755
)

// ErrNotSite is returned when no citekit.yml is found above a directory.
var ErrNotSite = errors.New("not in a citekit site (no citekit.yml found)")

// ConfigPath returns the path to citekit.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// StatePath returns the path to the .citekit directory from a root path.
func StatePath(root string) string {
	return filepath.Join(root, StateDir)
}

// UsagePath returns the path to usage.jsonl from a root path.
func UsagePath(root string) string {
	return filepath.Join(root, StateDir, UsageFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, StateDir, CacheDir)
}

// DBPath returns the path to usage.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, StateDir, CacheDir, DBFile)
}

// EnsureStateDirs creates .citekit and its cache directory.
func EnsureStateDirs(root string) error {
	if err := os.MkdirAll(CachePath(root), defaultDirPermission); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// IsSite checks if the given path contains a citekit.yml file.
func IsSite(root string) bool {
	info, err := os.Stat(ConfigPath(root))
	return err == nil && info.Mode().IsRegular()
}

// FindSite walks up from the given path to find a citekit site.
// Returns the site root path or ErrNotSite.
func FindSite(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsSite(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotSite
		}
		abs = parent
	}
}

// Load reads configuration from the site at the given root.
// Precedence: CITEKIT_* environment, citekit.yml, user config, defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := LoadEnv(root); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	user, err := LoadUserConfig()
	if err != nil {
		return nil, err
	}
	cfg.applyUser(user)
	cfg.ApplyDefaults()

	return &cfg, nil
}

// Save writes configuration to the site at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// LoadEnv loads the site's .env file into the process environment if present.
// Variables already set in the environment win.
func LoadEnv(root string) error {
	path := filepath.Join(root, EnvFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", EnvFile, err)
	}
	return nil
}

// ApplyEnv overrides file values with CITEKIT_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDefaultSource); v != "" {
		c.DefaultSource = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
}

func (c *Config) applyUser(u *UserConfig) {
	if u == nil {
		return
	}
	if c.Workers == 0 {
		c.Workers = u.Workers
	}
	if c.LinkRate == 0 {
		c.LinkRate = u.LinkRate
	}
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DefaultSource == "" {
		c.DefaultSource = DefaultSourceName
	}
	if c.ContentDir == "" {
		c.ContentDir = DefaultContentDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.LinkRate <= 0 {
		c.LinkRate = DefaultLinkRate
	}
}

// Classes returns the configured HTML classes with defaults for unset ones.
func (c *Config) Classes() format.Classes {
	return format.Classes{
		Citation:   c.CitationClass,
		Missing:    c.MissingClass,
		References: c.ReferencesClass,
	}.WithDefaults()
}

// DataPath resolves the reference data directory against the site root.
func (c *Config) DataPath(root string) string {
	return resolve(root, c.DataDir)
}

// ContentPath resolves the content directory against the site root.
func (c *Config) ContentPath(root string) string {
	return resolve(root, c.ContentDir)
}

// OutputPath resolves the output directory against the site root.
func (c *Config) OutputPath(root string) string {
	return resolve(root, c.OutputDir)
}

func resolve(root, p string) string {
	p = ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
