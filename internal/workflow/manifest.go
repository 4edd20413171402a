// Package workflow keeps generated blocks in the implementation docs in
// sync with a step manifest.
//
// The manifest lists the implementation steps. Two documents carry a
// generated list of those steps between marker comments: the one-pager and
// the skill file. Step docs are also checked for a navigation line that
// links their neighbors.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DefaultManifestPath is the manifest location relative to the repo root.
const DefaultManifestPath = "manifests/implementation.json"

// Manifest errors.
var (
	ErrManifestRead    = errors.New("cannot read manifest")
	ErrManifestInvalid = errors.New("invalid manifest")
)

// Step is one implementation step.
type Step struct {
	Number  int    `json:"number"  yaml:"number"`
	Title   string `json:"title"   yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
	Doc     string `json:"doc"     yaml:"doc"` // repo relative path
}

// Manifest describes the documents to keep in sync.
type Manifest struct {
	OnePager            string `json:"one_pager"             yaml:"one_pager"`
	Skill               string `json:"skill"                 yaml:"skill"`
	SkillConsumerPrefix string `json:"skill_consumer_prefix" yaml:"skill_consumer_prefix"`
	Steps               []Step `json:"steps"                 yaml:"steps"`
}

// LoadManifest reads the manifest at path. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON with comments allowed.
// Steps come back sorted by number.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrManifestRead, err)
	}

	m, err := ParseManifest(data, filepath.Ext(path))
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// ParseManifest decodes a manifest. ext selects the format (".yaml",
// ".yml" or anything else for JSON).
func ParseManifest(data []byte, ext string) (Manifest, error) {
	var m Manifest

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
		}
	default:
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return Manifest{}, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
		}

		if err := json.Unmarshal(standardized, &m); err != nil {
			return Manifest{}, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
		}
	}

	if err := m.validate(); err != nil {
		return Manifest{}, err
	}

	return m, nil
}

func (m *Manifest) validate() error {
	if m.OnePager == "" {
		return fmt.Errorf("%w: one_pager is required", ErrManifestInvalid)
	}

	if m.Skill == "" {
		return fmt.Errorf("%w: skill is required", ErrManifestInvalid)
	}

	slices.SortStableFunc(m.Steps, func(a, b Step) int { return a.Number - b.Number })

	numbers := make([]int, len(m.Steps))
	contiguous := true

	for i, s := range m.Steps {
		numbers[i] = s.Number
		if s.Number != i {
			contiguous = false
		}
	}

	if !contiguous {
		return fmt.Errorf("%w: steps must be contiguous 0..%d; got %v", ErrManifestInvalid, len(m.Steps)-1, numbers)
	}

	for _, s := range m.Steps {
		if s.Title == "" || s.Doc == "" {
			return fmt.Errorf("%w: step %d needs a title and a doc", ErrManifestInvalid, s.Number)
		}
	}

	return nil
}
