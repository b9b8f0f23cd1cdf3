package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ali-ramadhan/citekit/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show effective configuration",
	Long: `Show the effective site configuration after applying citekit.yml,
.env, CITEKIT_* environment variables and user defaults.

Usage:
  cite config                  # Show all config
  cite config default-source   # Get specific value

Keys:
  data-dir, default-source, content-dir, output-dir,
  citation-class, missing-class, references-class, workers, link-rate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfig,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Root            string  `json:"root"`
	DataDir         string  `json:"data_dir"`
	DefaultSource   string  `json:"default_source"`
	ContentDir      string  `json:"content_dir"`
	OutputDir       string  `json:"output_dir"`
	CitationClass   string  `json:"citation_class"`
	MissingClass    string  `json:"missing_class"`
	ReferencesClass string  `json:"references_class"`
	Workers         int     `json:"workers"`
	LinkRate        float64 `json:"link_rate"`
	UserConfig      string  `json:"user_config,omitempty"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	classes := cfg.Classes()

	resp := ConfigResponse{
		Root:            root,
		DataDir:         cfg.DataPath(root),
		DefaultSource:   cfg.DefaultSource,
		ContentDir:      cfg.ContentPath(root),
		OutputDir:       cfg.OutputPath(root),
		CitationClass:   classes.Citation,
		MissingClass:    classes.Missing,
		ReferencesClass: classes.References,
		Workers:         cfg.Workers,
		LinkRate:        cfg.LinkRate,
		UserConfig:      config.UserConfigPath(),
	}

	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("root:             %s\n", resp.Root)
			fmt.Printf("data-dir:         %s\n", resp.DataDir)
			fmt.Printf("default-source:   %s\n", resp.DefaultSource)
			fmt.Printf("content-dir:      %s\n", resp.ContentDir)
			fmt.Printf("output-dir:       %s\n", resp.OutputDir)
			fmt.Printf("citation-class:   %s\n", resp.CitationClass)
			fmt.Printf("missing-class:    %s\n", resp.MissingClass)
			fmt.Printf("references-class: %s\n", resp.ReferencesClass)
			fmt.Printf("workers:          %d\n", resp.Workers)
			fmt.Printf("link-rate:        %g\n", resp.LinkRate)
		} else {
			outputJSON(resp)
		}
		return nil
	}

	key := normalizeKey(args[0])
	value, ok := configValue(resp, key)
	if !ok {
		exitWithError(ExitError, "unknown config key: %s\n\nValid keys: data-dir, default-source, content-dir, output-dir, citation-class, missing-class, references-class, workers, link-rate", args[0])
	}

	if humanOutput {
		fmt.Println(value)
	} else {
		outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
	}
	return nil
}

// normalizeKey accepts data_dir, dataDir and data-dir spellings.
func normalizeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_':
			b.WriteByte('-')
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func configValue(resp ConfigResponse, key string) (string, bool) {
	switch key {
	case "data-dir":
		return resp.DataDir, true
	case "default-source":
		return resp.DefaultSource, true
	case "content-dir":
		return resp.ContentDir, true
	case "output-dir":
		return resp.OutputDir, true
	case "citation-class":
		return resp.CitationClass, true
	case "missing-class":
		return resp.MissingClass, true
	case "references-class":
		return resp.ReferencesClass, true
	case "workers":
		return strconv.Itoa(resp.Workers), true
	case "link-rate":
		return strconv.FormatFloat(resp.LinkRate, 'g', -1, 64), true
	}
	return "", false
}
