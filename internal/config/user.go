package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents per-user defaults stored in ~/.config/citekit/config.yml.
// Site configuration takes precedence over every field.
type UserConfig struct {
	Workers   int     `yaml:"workers,omitempty"`
	LinkRate  float64 `yaml:"link_rate,omitempty"`
	UserAgent string  `yaml:"user_agent,omitempty"`
}

const (
	// UserConfigDir is the directory name under XDG_CONFIG_HOME.
	UserConfigDir = "citekit"
	// UserConfigFile is the config file name.
	UserConfigFile = "config.yml"
)

var userConfigCache *UserConfig

// UserConfigPath returns the path to the user config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/citekit/config.yml.
func UserConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, UserConfigDir, UserConfigFile)
}

// LoadUserConfig loads the user configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadUserConfig() (*UserConfig, error) {
	if userConfigCache != nil {
		return userConfigCache, nil
	}

	path := UserConfigPath()
	if path == "" {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UserConfig{}, nil
		}
		return nil, fmt.Errorf("reading user config: %w", err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing user config: %w", err)
	}

	userConfigCache = &cfg
	return &cfg, nil
}

// ResetUserConfigCache clears the cached user config.
func ResetUserConfigCache() {
	userConfigCache = nil
}

// UserAgent returns the User-Agent for link checks, or "" for the default.
func UserAgent() string {
	cfg, err := LoadUserConfig()
	if err != nil {
		return ""
	}
	return cfg.UserAgent
}
