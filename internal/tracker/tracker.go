// Package tracker defines the remote issue tracker contract consumed by the
// reconciliation engine and the migration pass.
package tracker

import (
	"context"
	"errors"
)

// Error variables shared by tracker implementations.
var (
	ErrIssueNotFound        = errors.New("issue not found")
	ErrIssueTypeUnavailable = errors.New("issue type not available")
	ErrIssueTypesDisabled   = errors.New("issue types are not enabled for this owner")
)

// Issue is the remote state of one issue, read on demand.
type Issue struct {
	Number    int
	NodeID    string
	Title     string
	State     string   // OPEN or CLOSED
	Labels    []string // label names
	IssueType string   // display name, empty when unset
}

// Label is a repository label to create.
type Label struct {
	Name        string
	Color       string
	Description string
}

// NewIssue holds the fields for issue creation.
type NewIssue struct {
	Title  string
	Body   string
	Labels []string
}

// IssueEdit holds the changes applied by EditIssue. Empty Title or Body
// leave the field unchanged.
type IssueEdit struct {
	Title        string
	Body         string
	AddLabels    []string
	RemoveLabels []string
}

// State selects issues by state when listing.
type State string

// State values.
const (
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateAll    State = "all"
)

// Valid reports whether s is a known state filter.
func (s State) Valid() bool {
	return s == StateOpen || s == StateClosed || s == StateAll
}

// Tracker is the set of remote operations used by the tools. Every call is
// a synchronous request; nothing is cached between calls.
type Tracker interface {
	ListLabels(ctx context.Context) ([]string, error)
	CreateLabel(ctx context.Context, label Label) error

	CreateIssue(ctx context.Context, issue NewIssue) (int, error)
	EditIssue(ctx context.Context, number int, edit IssueEdit) error
	GetIssue(ctx context.Context, number int) (Issue, error)

	// FindIssueByTitle returns the issue whose title equals title exactly,
	// searching open and closed issues. ok is false when none matches.
	FindIssueByTitle(ctx context.Context, title string) (Issue, bool, error)

	// IssueTypes returns the owner's issue types as display name to ID.
	IssueTypes(ctx context.Context) (map[string]string, error)

	// SetIssueType sets the issue type by display name.
	SetIssueType(ctx context.Context, number int, typeName string) error

	AddSubIssue(ctx context.Context, parent, child int) error
	SubIssues(ctx context.Context, parent int) ([]int, error)
	AddBlockedBy(ctx context.Context, issue, blocker int) error

	// ListIssues calls fn for every issue in the given state, oldest first.
	// Returning false from fn stops the iteration.
	ListIssues(ctx context.Context, state State, fn func(Issue) bool) error
	RemoveLabels(ctx context.Context, number int, labels []string) error
}
