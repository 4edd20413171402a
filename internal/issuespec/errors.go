package issuespec

import (
	"errors"
	"fmt"
)

// Error variables for document parsing.
var (
	ErrTypeRequired       = errors.New("missing required 'type:' field")
	ErrInvalidType        = errors.New("invalid issue type")
	ErrLegacyTitleMarker  = errors.New("legacy title marker")
	ErrInvalidIssueNumber = errors.New("invalid issue_number")
)

// SectionError reports a parse failure in one section of a document.
type SectionError struct {
	Index int    // 1-based position among non-empty sections
	Title string // extracted title, empty when none was found
	Err   error
}

func (e *SectionError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("section %d: %v", e.Index, e.Err)
	}

	return fmt.Sprintf("section %d (%q): %v", e.Index, e.Title, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}
