package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StepDir is where step docs live, relative to the repo root.
const StepDir = "docs/agents/implementation"

const navPrefix = "**Navigation:**"

// CheckNav validates the navigation line of every step doc: line 3 must
// start with "**Navigation:**", name the previous and next step, and the
// neighbor step files must exist. Problems are returned, not fixed.
func CheckNav(root string, steps []Step) []string {
	var issues []string

	total := len(steps)

	for _, s := range steps {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(s.Doc)))
		if err != nil {
			issues = append(issues, "Missing step doc: "+s.Doc)

			continue
		}

		lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
		if len(lines) < 3 {
			issues = append(issues, s.Doc+": too short to contain nav line")

			continue
		}

		nav := strings.TrimSpace(lines[2])
		if !strings.HasPrefix(nav, navPrefix) {
			issues = append(issues, s.Doc+": missing navigation line at line 3")

			continue
		}

		if s.Number > 0 && !strings.Contains(nav, fmt.Sprintf("Step %d", s.Number-1)) {
			issues = append(issues, fmt.Sprintf("%s: nav line missing prev Step %d", s.Doc, s.Number-1))
		}

		if s.Number < total-1 && !strings.Contains(nav, fmt.Sprintf("Step %d", s.Number+1)) {
			issues = append(issues, fmt.Sprintf("%s: nav line missing next Step %d", s.Doc, s.Number+1))
		}

		for _, neighbor := range []int{s.Number - 1, s.Number + 1} {
			if neighbor < 0 || neighbor >= total {
				continue
			}

			pattern := filepath.Join(root, filepath.FromSlash(StepDir), fmt.Sprintf("STEP_%d_*.md", neighbor))

			matches, _ := filepath.Glob(pattern)
			if len(matches) == 0 {
				issues = append(issues, fmt.Sprintf("%s: expected step file for %d under %s", s.Doc, neighbor, StepDir))
			}
		}
	}

	return issues
}
