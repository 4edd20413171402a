package reconcile

import (
	"fmt"
	"strconv"
	"strings"
)

// Command selects what a run does. The set of implementations is closed:
// Create, UpdateAuto, UpdateSingle, UpdateEpic, UpdateBlockers, AddChild,
// SyncTypes, LinkBlockers and LinkChildren.
type Command interface {
	// NeedsRecords reports whether the command consumes parsed records.
	NeedsRecords() bool
	command()
}

// Create resolves every record (update by number, update by title, or
// create) and then links parents and blockers. It is the default.
type Create struct{}

// UpdateAuto runs the Create pipeline but requires at least one record to
// declare issue_number.
type UpdateAuto struct{}

// UpdateSingle updates issue Number from the first record.
type UpdateSingle struct{ Number int }

// UpdateEpic updates epic Number from the first epic record and its
// sub-issues, by position, from the non-epic records.
type UpdateEpic struct{ Number int }

// UpdateBlockers resolves records to existing issues without changing them
// and links their blockers.
type UpdateBlockers struct{}

// AddChild resolves the first record and links it under Epic.
type AddChild struct{ Epic int }

// SyncTypes sets the issue type of Numbers[i] from record i.
type SyncTypes struct{ Numbers []int }

// LinkBlockers marks each Pair.A as blocked by Pair.B.
type LinkBlockers struct{ Pairs []Pair }

// LinkChildren adds each Pair.B as a sub-issue of Pair.A.
type LinkChildren struct{ Pairs []Pair }

func (Create) NeedsRecords() bool         { return true }
func (UpdateAuto) NeedsRecords() bool     { return true }
func (UpdateSingle) NeedsRecords() bool   { return true }
func (UpdateEpic) NeedsRecords() bool     { return true }
func (UpdateBlockers) NeedsRecords() bool { return true }
func (AddChild) NeedsRecords() bool       { return true }
func (SyncTypes) NeedsRecords() bool      { return true }
func (LinkBlockers) NeedsRecords() bool   { return false }
func (LinkChildren) NeedsRecords() bool   { return false }

func (Create) command()         {}
func (UpdateAuto) command()     {}
func (UpdateSingle) command()   {}
func (UpdateEpic) command()     {}
func (UpdateBlockers) command() {}
func (AddChild) command()       {}
func (SyncTypes) command()      {}
func (LinkBlockers) command()   {}
func (LinkChildren) command()   {}

// Pair is an A:B issue number pair.
type Pair struct {
	A int
	B int
}

func (p Pair) String() string {
	return fmt.Sprintf("%d:%d", p.A, p.B)
}

// ParsePair parses "A:B" where both sides are positive issue numbers.
func ParsePair(s string) (Pair, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q (expected A:B)", ErrMalformedPair, s)
	}

	a, errA := parseNumber(left)
	b, errB := parseNumber(right)

	if errA != nil || errB != nil {
		return Pair{}, fmt.Errorf("%w: %q (expected A:B)", ErrMalformedPair, s)
	}

	if a == b {
		return Pair{}, fmt.Errorf("%w: %q links an issue to itself", ErrMalformedPair, s)
	}

	return Pair{A: a, B: b}, nil
}

// ParsePairs parses every value with ParsePair.
func ParsePairs(values []string) ([]Pair, error) {
	pairs := make([]Pair, 0, len(values))

	for _, v := range values {
		p, err := ParsePair(v)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, p)
	}

	return pairs, nil
}

// ParseNumbers parses a comma separated list of issue numbers.
func ParseNumbers(s string) ([]int, error) {
	var numbers []int

	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}

		n, err := parseNumber(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedNumbers, s)
		}

		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedNumbers, s)
	}

	return numbers, nil
}

func parseNumber(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n <= 0 {
		return 0, strconv.ErrRange
	}

	return n, nil
}
