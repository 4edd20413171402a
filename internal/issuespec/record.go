// Package issuespec compiles a loosely structured markdown document into
// issue records.
//
// A document is a sequence of sections separated by a line of three or more
// dashes or by a bare "## Issue:" heading. Each section has a markdown
// heading that becomes the issue title and optional line-anchored fields:
//
//	# [Epic]: Payment Revamp
//	priority: high
//	---
//	## Invoice export
//	type: feature
//	area: billing, api
//	blocked_by: Setup DB, Configure CI
//	issue_number: 42
//
// Non-epic sections must declare a type. Every non-epic record is parented
// to the nearest preceding epic in document order.
package issuespec

import (
	"strings"
)

// Type is the issue type of a record.
type Type string

// Type values. Only TypeEpic is structurally special.
const (
	TypeEpic          Type = "epic"
	TypeFeature       Type = "feature"
	TypeBug           Type = "bug"
	TypeTechnicalDebt Type = "technical-debt"
	TypeChore         Type = "chore"
	TypeDocumentation Type = "documentation"
	TypeResearch      Type = "research"
)

var allowedTypes = []Type{
	TypeFeature,
	TypeBug,
	TypeTechnicalDebt,
	TypeChore,
	TypeDocumentation,
	TypeResearch,
	TypeEpic,
}

// typeAliases maps common spellings onto the canonical type keys.
var typeAliases = map[string]Type{
	"enhancement": TypeFeature,
	"tech-debt":   TypeTechnicalDebt,
	"techdebt":    TypeTechnicalDebt,
	"debt":        TypeTechnicalDebt,
	"docs":        TypeDocumentation,
	"doc":         TypeDocumentation,
	"task":        TypeChore,
}

// AllowedTypes returns the accepted issue types in display order.
func AllowedTypes() []Type {
	out := make([]Type, len(allowedTypes))
	copy(out, allowedTypes)

	return out
}

// AllowedTypesString returns the accepted types as a comma separated list.
func AllowedTypesString() string {
	names := make([]string, 0, len(allowedTypes))
	for _, t := range allowedTypes {
		names = append(names, string(t))
	}

	return strings.Join(names, ", ")
}

// Valid reports whether t is one of the accepted types.
func (t Type) Valid() bool {
	for _, allowed := range allowedTypes {
		if t == allowed {
			return true
		}
	}

	return false
}

// NormalizeType maps a raw "type:" value onto a Type. Unknown values are
// returned lowercased but otherwise unchanged so callers can report them.
func NormalizeType(raw string) Type {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.NewReplacer(" ", "-", "_", "-").Replace(value)

	if alias, ok := typeAliases[value]; ok {
		return alias
	}

	return Type(value)
}

// EpicTitlePrefix is prepended to epic titles on the tracker.
const EpicTitlePrefix = "[Epic]: "

// Record is one planned issue.
type Record struct {
	Title       string
	Body        string
	Priority    string
	Areas       []string
	Type        Type
	ParentTitle string
	Blocks      []string
	BlockedBy   []string
	IssueNumber int
}

// IsEpic reports whether the record is an epic.
func (r Record) IsEpic() bool {
	return r.Type == TypeEpic
}

// HasIssueNumber reports whether the record declares an existing issue.
func (r Record) HasIssueNumber() bool {
	return r.IssueNumber > 0
}

// TrackerTitle returns the title used on the tracker.
func (r Record) TrackerTitle() string {
	if r.IsEpic() {
		return EpicTitlePrefix + r.Title
	}

	return r.Title
}
