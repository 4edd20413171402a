// Package labels maps issue records onto tracker labels and issue types.
//
// Labels with the priority:, area: and status: prefixes, plus the epic
// label itself, are managed: their presence is fully computed from the
// record. Every other label on an issue is custom and left alone.
package labels

import (
	"slices"
	"strings"

	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
)

// Label prefixes owned by the tool.
const (
	PriorityPrefix = "priority:"
	AreaPrefix     = "area:"
	StatusPrefix   = "status:"
)

// Settings are the configuration values the mapper depends on.
type Settings struct {
	EpicLabel   string
	StatusReady string
}

// For returns the managed labels for rec: the epic label for epics, the
// priority, one label per area in sorted order, and the ready status.
func For(rec issuespec.Record, s Settings) []string {
	areas := slices.Clone(rec.Areas)
	slices.Sort(areas)
	areas = slices.Compact(areas)

	out := make([]string, 0, len(areas)+3)

	if rec.IsEpic() {
		out = append(out, s.EpicLabel)
	}

	out = append(out, PriorityPrefix+rec.Priority)

	for _, area := range areas {
		out = append(out, AreaPrefix+area)
	}

	return append(out, s.StatusReady)
}

// Body returns the issue body for rec, with a "Blocked By" list appended
// when the record has blockers.
func Body(rec issuespec.Record) string {
	if len(rec.BlockedBy) == 0 {
		return rec.Body
	}

	var b strings.Builder

	b.WriteString(rec.Body)
	b.WriteString("\n\n## Blocked By\n")

	for i, dep := range rec.BlockedBy {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString("- ")
		b.WriteString(dep)
	}

	return b.String()
}

// IssueTypeName returns the tracker display name for t. ok is false when
// the mapping has no entry, in which case callers skip setting the type.
func IssueTypeName(t issuespec.Type, mapping map[string]string) (string, bool) {
	name, ok := mapping[string(t)]
	if !ok || name == "" {
		return "", false
	}

	return name, true
}

// IsManaged reports whether label is owned by the tool.
func IsManaged(label, epicLabel string) bool {
	return strings.HasPrefix(label, PriorityPrefix) ||
		strings.HasPrefix(label, AreaPrefix) ||
		strings.HasPrefix(label, StatusPrefix) ||
		label == epicLabel
}

// Diff computes the label changes that turn current into custom(current)
// plus desired. Managed labels that are not desired are removed; desired
// labels not yet present are added. Both results are sorted.
func Diff(current, desired []string, epicLabel string) ([]string, []string) {
	var add, remove []string

	for _, label := range current {
		if IsManaged(label, epicLabel) && !slices.Contains(desired, label) {
			remove = append(remove, label)
		}
	}

	for _, label := range desired {
		if !slices.Contains(current, label) && !slices.Contains(add, label) {
			add = append(add, label)
		}
	}

	slices.Sort(add)
	slices.Sort(remove)

	return add, slices.Compact(remove)
}

// Spec describes a label to create on the tracker.
type Spec struct {
	Name        string
	Color       string
	Description string
}

// SpecFor returns the color and description used when a missing label is
// created, derived from its prefix.
func SpecFor(name, epicLabel string) Spec {
	switch {
	case strings.HasPrefix(name, PriorityPrefix):
		return Spec{Name: name, Color: "d93f0b", Description: "Priority level"}
	case strings.HasPrefix(name, StatusPrefix):
		return Spec{Name: name, Color: "0e8a16", Description: "Workflow status"}
	case name == epicLabel:
		return Spec{Name: name, Color: "3e4b9e", Description: "Parent issue grouping related work"}
	default:
		return Spec{Name: name, Color: "ededed", Description: "Managed by issue-creator"}
	}
}

// Required returns the sorted union of labels needed by records.
func Required(records []issuespec.Record, s Settings) []string {
	var out []string

	for _, rec := range records {
		out = append(out, For(rec, s)...)
	}

	slices.Sort(out)

	return slices.Compact(out)
}
