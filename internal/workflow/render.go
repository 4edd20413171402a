package workflow

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Marker comments delimiting the generated blocks.
const (
	OnePagerStart = "<!-- AIDE-GEN:IMPLEMENTATION_STEPS_START -->"
	OnePagerEnd   = "<!-- AIDE-GEN:IMPLEMENTATION_STEPS_END -->"
	SkillStart    = "<!-- AIDE-GEN:IMPLEMENT_WORKFLOW_START -->"
	SkillEnd      = "<!-- AIDE-GEN:IMPLEMENT_WORKFLOW_END -->"
)

// OnePagerPath is the repo relative path the skill block points readers to.
const OnePagerPath = "docs/agents/IMPLEMENTATION_ONE_PAGER.md"

// ErrMarkers is returned when a document lacks a valid marker pair.
var ErrMarkers = errors.New("missing or invalid markers")

// ReplaceBlock replaces the text between start and end with replacement,
// keeping both markers on their own lines.
func ReplaceBlock(text, start, end, replacement string) (string, error) {
	startIdx := strings.Index(text, start)
	endIdx := strings.Index(text, end)

	if startIdx < 0 || endIdx < 0 || endIdx < startIdx {
		return "", fmt.Errorf("%w: %s / %s", ErrMarkers, start, end)
	}

	before := text[:startIdx+len(start)]
	after := text[endIdx:]

	return before + "\n" + replacement + "\n" + after, nil
}

// RenderOnePagerSteps renders the numbered step list for the one-pager.
// Doc links are relative to the one-pager's directory.
func RenderOnePagerSteps(onePager string, steps []Step) string {
	lines := make([]string, 0, len(steps))

	for _, s := range steps {
		lines = append(lines, fmt.Sprintf("%d. **%s** -> %s (`%s`)",
			s.Number, s.Title, s.Summary, relPath(path.Dir(onePager), s.Doc)))
	}

	return strings.Join(lines, "\n")
}

// RenderSkillWorkflow renders the workflow block for the skill file. Paths
// carry the consumer prefix because the skill is read from another repo.
func RenderSkillWorkflow(m Manifest) string {
	lines := make([]string, 0, len(m.Steps)+2)
	lines = append(lines,
		fmt.Sprintf("Canonical workflow (also see: `%s%s`).", m.SkillConsumerPrefix, OnePagerPath),
		"")

	for _, s := range m.Steps {
		lines = append(lines, fmt.Sprintf("%d) **%s** -> %s (`%s%s`)",
			s.Number, s.Title, s.Summary, m.SkillConsumerPrefix, s.Doc))
	}

	return strings.Join(lines, "\n")
}

// relPath returns target relative to dir. Both are slash separated and
// relative to the same root.
func relPath(dir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return target
	}

	return filepath.ToSlash(rel)
}
