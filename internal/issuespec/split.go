package issuespec

import (
	"regexp"
	"strings"
)

var boundaryRe = regexp.MustCompile(`^(?:-{3,}|##[ \t]+Issue:)[ \t]*$`)

// Split breaks a document into sections. Boundary lines are dropped and
// whitespace-only sections are discarded; order is preserved.
func Split(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")

	var (
		sections []string
		current  strings.Builder
	)

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			sections = append(sections, current.String())
		}

		current.Reset()
	}

	for _, line := range strings.Split(doc, "\n") {
		if boundaryRe.MatchString(line) {
			flush()

			continue
		}

		current.WriteString(line)
		current.WriteByte('\n')
	}

	flush()

	return sections
}
