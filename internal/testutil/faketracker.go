// Package testutil provides test doubles shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

// FakeIssue is the stored state of one issue in a FakeTracker.
type FakeIssue struct {
	Number    int
	Title     string
	Body      string
	State     string
	Labels    []string
	IssueType string
	SubIssues []int
	BlockedBy []int
}

// FakeTracker is an in-memory tracker.Tracker. Relations are sets: adding
// an existing sub-issue or blocker is a no-op, mirroring the remote API's
// idempotent behavior as seen by callers. Every mutating call is appended
// to Calls so tests can assert on request order.
type FakeTracker struct {
	mu sync.Mutex

	Labels []string
	Issues map[int]*FakeIssue
	Types  map[string]string // display name to ID; nil means disabled
	Calls  []string

	// Fail maps a call prefix (e.g. "AddBlockedBy 10") to the error that
	// call returns instead of succeeding.
	Fail map[string]error

	next int
}

var _ tracker.Tracker = (*FakeTracker)(nil)

// NewFakeTracker returns an empty tracker with the default issue types.
func NewFakeTracker() *FakeTracker {
	return &FakeTracker{
		Issues: map[int]*FakeIssue{},
		Types: map[string]string{
			"Epic": "IT_epic", "Feature": "IT_feature", "Bug": "IT_bug",
			"Technical Debt": "IT_debt", "Chore": "IT_chore",
			"Documentation": "IT_docs", "Research": "IT_research",
		},
		Fail: map[string]error{},
		next: 1,
	}
}

// Seed stores issue under its number and returns it. A zero number takes
// the next free one.
func (f *FakeTracker) Seed(issue FakeIssue) *FakeIssue {
	f.mu.Lock()
	defer f.mu.Unlock()

	if issue.Number == 0 {
		issue.Number = f.next
	}

	if issue.State == "" {
		issue.State = "OPEN"
	}

	if issue.Number >= f.next {
		f.next = issue.Number + 1
	}

	stored := issue
	f.Issues[issue.Number] = &stored

	return &stored
}

// Issue returns the stored issue or nil.
func (f *FakeTracker) Issue(number int) *FakeIssue {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Issues[number]
}

// CallsWithPrefix returns recorded calls starting with prefix.
func (f *FakeTracker) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string

	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}

	return out
}

func (f *FakeTracker) record(call string) error {
	f.Calls = append(f.Calls, call)

	for prefix, err := range f.Fail {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}

	return nil
}

func (f *FakeTracker) lookup(number int) (*FakeIssue, error) {
	issue, ok := f.Issues[number]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", tracker.ErrIssueNotFound, number)
	}

	return issue, nil
}

// ListLabels implements tracker.Tracker.
func (f *FakeTracker) ListLabels(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("ListLabels"); err != nil {
		return nil, err
	}

	return slices.Clone(f.Labels), nil
}

// CreateLabel implements tracker.Tracker.
func (f *FakeTracker) CreateLabel(_ context.Context, label tracker.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreateLabel " + label.Name); err != nil {
		return err
	}

	if !slices.Contains(f.Labels, label.Name) {
		f.Labels = append(f.Labels, label.Name)
	}

	return nil
}

// CreateIssue implements tracker.Tracker.
func (f *FakeTracker) CreateIssue(_ context.Context, issue tracker.NewIssue) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreateIssue " + issue.Title); err != nil {
		return 0, err
	}

	number := f.next
	f.next++

	f.Issues[number] = &FakeIssue{
		Number: number,
		Title:  issue.Title,
		Body:   issue.Body,
		State:  "OPEN",
		Labels: slices.Clone(issue.Labels),
	}

	return number, nil
}

// EditIssue implements tracker.Tracker.
func (f *FakeTracker) EditIssue(_ context.Context, number int, edit tracker.IssueEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("EditIssue " + strconv.Itoa(number)); err != nil {
		return err
	}

	issue, err := f.lookup(number)
	if err != nil {
		return err
	}

	if edit.Title != "" {
		issue.Title = edit.Title
	}

	if edit.Body != "" {
		issue.Body = edit.Body
	}

	issue.Labels = slices.DeleteFunc(issue.Labels, func(l string) bool {
		return slices.Contains(edit.RemoveLabels, l)
	})

	for _, l := range edit.AddLabels {
		if !slices.Contains(issue.Labels, l) {
			issue.Labels = append(issue.Labels, l)
		}
	}

	return nil
}

// RemoveLabels implements tracker.Tracker.
func (f *FakeTracker) RemoveLabels(ctx context.Context, number int, labels []string) error {
	return f.EditIssue(ctx, number, tracker.IssueEdit{RemoveLabels: labels})
}

func (f *FakeTracker) snapshot(issue *FakeIssue) tracker.Issue {
	return tracker.Issue{
		Number:    issue.Number,
		NodeID:    "I_" + strconv.Itoa(issue.Number),
		Title:     issue.Title,
		State:     issue.State,
		Labels:    slices.Clone(issue.Labels),
		IssueType: issue.IssueType,
	}
}

// GetIssue implements tracker.Tracker.
func (f *FakeTracker) GetIssue(_ context.Context, number int) (tracker.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	issue, err := f.lookup(number)
	if err != nil {
		return tracker.Issue{}, err
	}

	return f.snapshot(issue), nil
}

// FindIssueByTitle implements tracker.Tracker. The lowest numbered exact
// match wins.
func (f *FakeTracker) FindIssueByTitle(_ context.Context, title string) (tracker.Issue, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("FindIssueByTitle " + title); err != nil {
		return tracker.Issue{}, false, err
	}

	for _, number := range f.sortedNumbers() {
		if f.Issues[number].Title == title {
			return f.snapshot(f.Issues[number]), true, nil
		}
	}

	return tracker.Issue{}, false, nil
}

// IssueTypes implements tracker.Tracker.
func (f *FakeTracker) IssueTypes(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Types == nil {
		return nil, tracker.ErrIssueTypesDisabled
	}

	out := make(map[string]string, len(f.Types))
	for k, v := range f.Types {
		out[k] = v
	}

	return out, nil
}

// SetIssueType implements tracker.Tracker.
func (f *FakeTracker) SetIssueType(_ context.Context, number int, typeName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("SetIssueType " + strconv.Itoa(number) + " " + typeName); err != nil {
		return err
	}

	if f.Types == nil {
		return tracker.ErrIssueTypesDisabled
	}

	if _, ok := f.Types[typeName]; !ok {
		return fmt.Errorf("%w: %q", tracker.ErrIssueTypeUnavailable, typeName)
	}

	issue, err := f.lookup(number)
	if err != nil {
		return err
	}

	issue.IssueType = typeName

	return nil
}

// AddSubIssue implements tracker.Tracker.
func (f *FakeTracker) AddSubIssue(_ context.Context, parent, child int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(fmt.Sprintf("AddSubIssue %d %d", parent, child)); err != nil {
		return err
	}

	p, err := f.lookup(parent)
	if err != nil {
		return err
	}

	if _, err := f.lookup(child); err != nil {
		return err
	}

	if !slices.Contains(p.SubIssues, child) {
		p.SubIssues = append(p.SubIssues, child)
	}

	return nil
}

// SubIssues implements tracker.Tracker.
func (f *FakeTracker) SubIssues(_ context.Context, parent int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := f.lookup(parent)
	if err != nil {
		return nil, err
	}

	return slices.Clone(p.SubIssues), nil
}

// AddBlockedBy implements tracker.Tracker.
func (f *FakeTracker) AddBlockedBy(_ context.Context, issue, blocker int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(fmt.Sprintf("AddBlockedBy %d %d", issue, blocker)); err != nil {
		return err
	}

	target, err := f.lookup(issue)
	if err != nil {
		return err
	}

	if _, err := f.lookup(blocker); err != nil {
		return err
	}

	if !slices.Contains(target.BlockedBy, blocker) {
		target.BlockedBy = append(target.BlockedBy, blocker)
	}

	return nil
}

// ListIssues implements tracker.Tracker.
func (f *FakeTracker) ListIssues(_ context.Context, state tracker.State, fn func(tracker.Issue) bool) error {
	f.mu.Lock()

	var matched []tracker.Issue

	for _, number := range f.sortedNumbers() {
		issue := f.Issues[number]

		switch state {
		case tracker.StateOpen:
			if issue.State != "OPEN" {
				continue
			}
		case tracker.StateClosed:
			if issue.State != "CLOSED" {
				continue
			}
		case tracker.StateAll:
		default:
			f.mu.Unlock()

			return fmt.Errorf("unknown issue state %q", state)
		}

		matched = append(matched, f.snapshot(issue))
	}

	f.mu.Unlock()

	for _, issue := range matched {
		if !fn(issue) {
			return nil
		}
	}

	return nil
}

func (f *FakeTracker) sortedNumbers() []int {
	numbers := make([]int, 0, len(f.Issues))
	for n := range f.Issues {
		numbers = append(numbers, n)
	}

	slices.Sort(numbers)

	return numbers
}
