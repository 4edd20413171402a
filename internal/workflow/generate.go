package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// File is a generated document before and after regeneration.
type File struct {
	Path    string // repo relative
	Current string
	Updated string
}

// Changed reports whether regeneration alters the file.
func (f File) Changed() bool {
	return f.Current != f.Updated
}

// Result is the outcome of Generate.
type Result struct {
	Files     []File
	NavIssues []string
}

// Changed returns the repo relative paths of files that would change.
func (r Result) Changed() []string {
	var paths []string

	for _, f := range r.Files {
		if f.Changed() {
			paths = append(paths, f.Path)
		}
	}

	return paths
}

// UpToDate reports whether nothing needs regeneration and navigation is
// clean.
func (r Result) UpToDate() bool {
	return len(r.Changed()) == 0 && len(r.NavIssues) == 0
}

// Generate renders both generated blocks for m and checks step navigation.
// Nothing is written.
func Generate(root string, m Manifest) (Result, error) {
	onePager, err := regenerate(root, m.OnePager, OnePagerStart, OnePagerEnd, RenderOnePagerSteps(m.OnePager, m.Steps))
	if err != nil {
		return Result{}, err
	}

	skill, err := regenerate(root, m.Skill, SkillStart, SkillEnd, RenderSkillWorkflow(m))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Files:     []File{onePager, skill},
		NavIssues: CheckNav(root, m.Steps),
	}, nil
}

func regenerate(root, rel, start, end, block string) (File, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", rel, err)
	}

	current := string(data)

	updated, err := ReplaceBlock(current, start, end, block)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", rel, err)
	}

	return File{Path: rel, Current: current, Updated: updated}, nil
}

// Write atomically rewrites every changed file and returns their paths.
func Write(root string, r Result) ([]string, error) {
	var written []string

	for _, f := range r.Files {
		if !f.Changed() {
			continue
		}

		target := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := atomic.WriteFile(target, strings.NewReader(f.Updated)); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Path, err)
		}

		written = append(written, f.Path)
	}

	return written, nil
}

// Diff renders a line diff between the current and updated content, with
// "-" and "+" prefixes for removed and added lines and one line of context
// around each change.
func (f File) Diff() string {
	dmp := diffmatchpatch.New()

	oldChars, newChars, lineArray := dmp.DiffLinesToChars(f.Current, f.Updated)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lineArray)

	type diffLine struct {
		op   diffmatchpatch.Operation
		text string
	}

	var lines []diffLine

	for _, d := range diffs {
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text != "" {
				lines = append(lines, diffLine{op: d.Type, text: strings.TrimSuffix(text, "\n")})
			}
		}
	}

	const contextLines = 1

	nearChange := func(i int) bool {
		for j := max(0, i-contextLines); j <= min(len(lines)-1, i+contextLines); j++ {
			if lines[j].op != diffmatchpatch.DiffEqual {
				return true
			}
		}

		return false
	}

	var out strings.Builder

	fmt.Fprintf(&out, "--- %s\n+++ %s\n", f.Path, f.Path)

	last := -1

	for i, l := range lines {
		if !nearChange(i) {
			continue
		}

		if last >= 0 && i > last+1 {
			out.WriteString("...\n")
		}

		switch l.op {
		case diffmatchpatch.DiffDelete:
			out.WriteString("-" + l.text + "\n")
		case diffmatchpatch.DiffInsert:
			out.WriteString("+" + l.text + "\n")
		case diffmatchpatch.DiffEqual:
			out.WriteString(" " + l.text + "\n")
		}

		last = i
	}

	return out.String()
}
