// Package config loads the issue tooling configuration.
//
// The configuration file is optional. When present it is JSON with comments
// and trailing commas allowed (JSONC); every key overrides a built-in
// default, so an empty object yields the defaults unchanged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"
)

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrEmptyValue         = errors.New("value cannot be empty")
)

// Config holds the resolved configuration. It is built once at startup and
// treated as read-only afterwards.
type Config struct {
	// AreaKeywords maps an area name to the substrings that imply it.
	AreaKeywords map[string][]string `json:"area_keywords"`

	DefaultPriority string `json:"default_priority"`
	StatusReady     string `json:"default_status_ready"`
	EpicLabel       string `json:"epic_label"`

	// IssueTypeMapping maps an internal type key (feature, bug, ...) to the
	// tracker's issue type display name.
	IssueTypeMapping map[string]string `json:"issue_type_mapping"`

	// Source is the config file that was loaded, empty when running on defaults.
	Source string `json:"-"`
}

// fileConfig mirrors the on-disk format. Pointer and map fields stay nil
// when the key is absent so absence and explicit values can be told apart.
type fileConfig struct {
	AreaKeywords     map[string][]string `json:"area_keywords"`
	DefaultPriority  *string             `json:"default_priority"`
	StatusReady      *string             `json:"default_status_ready"`
	EpicLabel        *string             `json:"epic_label"`
	IssueTypeMapping map[string]string   `json:"issue_type_mapping"`
}

// DefaultIssueTypeMapping is the built-in internal-type to display-name table.
func DefaultIssueTypeMapping() map[string]string {
	return map[string]string{
		"epic":           "Epic",
		"feature":        "Feature",
		"bug":            "Bug",
		"technical-debt": "Technical Debt",
		"chore":          "Chore",
		"documentation":  "Documentation",
		"research":       "Research",
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AreaKeywords:     map[string][]string{},
		DefaultPriority:  "medium",
		StatusReady:      "status:ready",
		EpicLabel:        "Epic",
		IssueTypeMapping: DefaultIssueTypeMapping(),
	}
}

// FileName is the config file name looked up in the search paths.
const FileName = "issue-creator.config.json"

// SearchPaths lists the default config locations relative to the working
// directory, in lookup order. The first existing file wins.
var SearchPaths = []string{
	FileName,
	filepath.Join(".aide", FileName),
	filepath.Join(".aide", "tools", FileName),
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDir    string // directory the search paths are relative to
	ConfigPath string // -c/--config flag value; must exist when set
}

// Load resolves the configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Explicit config file via ConfigPath, or else the first file found in SearchPaths.
//
// A missing default config is not an error: the returned Config has an
// empty Source and callers are expected to warn about it.
func Load(input LoadInput) (Config, error) {
	path, mustExist := "", false

	if input.ConfigPath != "" {
		path = input.ConfigPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(input.WorkDir, path)
		}

		mustExist = true

		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, input.ConfigPath)
		}
	} else {
		for _, candidate := range SearchPaths {
			full := filepath.Join(input.WorkDir, candidate)
			if _, err := os.Stat(full); err == nil {
				path = full

				break
			}
		}
	}

	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist || !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return cfg, nil
	}

	overlay, err := parseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	cfg, err = merge(cfg, overlay)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	cfg.Source = path

	return cfg, nil
}

// Parse decodes a config document and overlays it on the defaults.
func Parse(data []byte) (Config, error) {
	overlay, err := parseConfig(data)
	if err != nil {
		return Config{}, err
	}

	return merge(Default(), overlay)
}

func parseConfig(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig

	unmarshalErr := json.Unmarshal(standardized, &fc)
	if unmarshalErr != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return fc, nil
}

func merge(base Config, overlay fileConfig) (Config, error) {
	for _, field := range []struct {
		name  string
		value *string
		dst   *string
	}{
		{"default_priority", overlay.DefaultPriority, &base.DefaultPriority},
		{"default_status_ready", overlay.StatusReady, &base.StatusReady},
		{"epic_label", overlay.EpicLabel, &base.EpicLabel},
	} {
		if field.value == nil {
			continue
		}

		value := strings.TrimSpace(*field.value)
		if value == "" {
			return Config{}, fmt.Errorf("%w: %s", ErrEmptyValue, field.name)
		}

		*field.dst = value
	}

	if overlay.AreaKeywords != nil {
		base.AreaKeywords = make(map[string][]string, len(overlay.AreaKeywords))
		for area, keywords := range overlay.AreaKeywords {
			base.AreaKeywords[area] = slices.Clone(keywords)
		}
	}

	if overlay.IssueTypeMapping != nil {
		mapping := maps.Clone(base.IssueTypeMapping)
		for key, name := range overlay.IssueTypeMapping {
			if strings.TrimSpace(name) == "" {
				return Config{}, fmt.Errorf("%w: issue_type_mapping.%s", ErrEmptyValue, key)
			}

			mapping[strings.ToLower(strings.TrimSpace(key))] = name
		}

		base.IssueTypeMapping = mapping
	}

	return base, nil
}

// Format renders the resolved configuration as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(data), nil
}
