package issuespec

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultPriority is used when Options.DefaultPriority is empty.
const DefaultPriority = "medium"

// Options controls field defaults and area inference.
type Options struct {
	DefaultPriority string

	// AreaKeywords maps an area to substrings that imply it. Matching is
	// case-insensitive against the full section text.
	AreaKeywords map[string][]string
}

var (
	headingRe     = regexp.MustCompile(`(?m)^#+[ \t]*(.*?)[ \t]*$`)
	issuePrefixRe = regexp.MustCompile(`(?i)^issue:[ \t]*`)
	markerRe      = regexp.MustCompile(`^\[([^\]]+)\]:?[ \t]*`)
	epicPrefixRe  = regexp.MustCompile(`^Epic:[ \t]*`)

	typeRe        = regexp.MustCompile(`(?im)^[ \t]*type:[ \t]*(.+?)[ \t]*$`)
	priorityRe    = regexp.MustCompile(`(?im)^[ \t]*priority:[ \t]*([\w-]+)`)
	areaRe        = regexp.MustCompile(`(?im)^[ \t]*area:[ \t]*(.+?)[ \t]*$`)
	blocksRe      = regexp.MustCompile(`(?im)^[ \t]*blocks:[ \t]*(.+?)[ \t]*$`)
	blockedByRe   = regexp.MustCompile(`(?im)^[ \t]*blocked[_-]by:[ \t]*(.+?)[ \t]*$`)
	issueNumberRe = regexp.MustCompile(`(?im)^[ \t]*issue_number:[ \t]*#?(\d+)`)
)

// foldState is threaded from one section to the next.
type foldState struct {
	currentEpic string // tracker title of the nearest preceding epic
}

func (s foldState) advance(rec Record) foldState {
	if rec.IsEpic() {
		return foldState{currentEpic: rec.TrackerTitle()}
	}

	return s
}

// Parse compiles a document into records, one per section with a heading.
// Sections without a heading are skipped. The first invalid section aborts
// parsing with a *SectionError.
func Parse(doc string, opts Options) ([]Record, error) {
	var (
		records []Record
		state   foldState
	)

	for idx, section := range Split(doc) {
		rec, ok, err := parseSection(section, state, opts)
		if err != nil {
			return nil, &SectionError{Index: idx + 1, Title: rec.Title, Err: err}
		}

		if !ok {
			continue
		}

		records = append(records, rec)
		state = state.advance(rec)
	}

	return records, nil
}

// parseSection extracts one record. It returns ok=false when the section
// has no usable heading. On error the returned record carries the title
// when one was found.
func parseSection(section string, state foldState, opts Options) (Record, bool, error) {
	rawType, hasType := firstMatch(typeRe, section)
	explicitType := NormalizeType(rawType)
	isEpic := detectEpic(section) || (hasType && explicitType == TypeEpic)

	heading, hasHeading := firstMatch(headingRe, section)
	title, marker := normalizeTitle(heading)

	if hasHeading && marker != "" && !strings.EqualFold(marker, "epic") && !isEpic && !hasType {
		return Record{Title: title}, false, fmt.Errorf(
			"%w: heading uses %q. Non-epic title markers are not allowed. Declare the type with a 'type:' field instead",
			ErrLegacyTitleMarker, "["+marker+"]")
	}

	if !hasHeading || title == "" {
		return Record{}, false, nil
	}

	rec := Record{
		Title:    title,
		Body:     strings.TrimSpace(section),
		Priority: defaultString(opts.DefaultPriority, DefaultPriority),
	}

	if priority, ok := firstMatch(priorityRe, section); ok {
		rec.Priority = priority
	}

	explicitAreas := splitList(section, areaRe)
	rec.Blocks = splitList(section, blocksRe)
	rec.BlockedBy = splitList(section, blockedByRe)

	if raw, ok := firstMatch(issueNumberRe, section); ok {
		number, err := strconv.Atoi(raw)
		if err != nil {
			return rec, false, fmt.Errorf("%w: %q", ErrInvalidIssueNumber, raw)
		}

		rec.IssueNumber = number
	}

	switch {
	case isEpic:
		rec.Type = TypeEpic
	case !hasType:
		return rec, false, fmt.Errorf("%w for %q (allowed: %s)", ErrTypeRequired, title, AllowedTypesString())
	case !explicitType.Valid():
		return rec, false, fmt.Errorf("%w %q for %q (allowed: %s)", ErrInvalidType, rawType, title, AllowedTypesString())
	default:
		rec.Type = explicitType
		rec.ParentTitle = state.currentEpic
	}

	rec.Areas = mergeAreas(explicitAreas, InferAreas(section, opts.AreaKeywords))

	return rec, true, nil
}

// detectEpic reports whether a section carries the [Epic] marker or an
// "Epic:" line.
func detectEpic(section string) bool {
	if strings.Contains(section, "[Epic]") {
		return true
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimLeft(line, "# \t")
		line = issuePrefixRe.ReplaceAllString(line, "")

		if strings.HasPrefix(line, "Epic:") {
			return true
		}
	}

	return false
}

// normalizeTitle strips the "Issue:" prefix, a bracketed marker and an
// "Epic:" prefix from a heading. The marker text is returned without brackets.
func normalizeTitle(heading string) (string, string) {
	title := issuePrefixRe.ReplaceAllString(strings.TrimSpace(heading), "")

	marker := ""
	if m := markerRe.FindStringSubmatch(title); m != nil {
		marker = strings.TrimSpace(m[1])
		title = title[len(m[0]):]
	}

	title = epicPrefixRe.ReplaceAllString(title, "")

	return strings.TrimSpace(title), marker
}

// InferAreas returns the areas whose keywords occur in text, sorted.
func InferAreas(text string, keywords map[string][]string) []string {
	if len(keywords) == 0 {
		return nil
	}

	lower := strings.ToLower(text)

	var areas []string

	for area, words := range keywords {
		for _, word := range words {
			word = strings.ToLower(strings.TrimSpace(word))
			if word != "" && strings.Contains(lower, word) {
				areas = append(areas, area)

				break
			}
		}
	}

	slices.Sort(areas)

	return areas
}

func mergeAreas(explicit, inferred []string) []string {
	if len(explicit)+len(inferred) == 0 {
		return nil
	}

	areas := make([]string, 0, len(explicit)+len(inferred))
	areas = append(areas, explicit...)
	areas = append(areas, inferred...)

	slices.Sort(areas)

	return slices.Compact(areas)
}

func firstMatch(re *regexp.Regexp, section string) (string, bool) {
	m := re.FindStringSubmatch(section)
	if m == nil {
		return "", false
	}

	return strings.TrimSpace(m[1]), true
}

func splitList(section string, re *regexp.Regexp) []string {
	raw, ok := firstMatch(re, section)
	if !ok {
		return nil
	}

	var items []string

	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
