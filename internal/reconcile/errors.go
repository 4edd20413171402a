package reconcile

import "errors"

// Error variables returned by the engine and the argument parsers.
var (
	ErrNoRecords        = errors.New("no issues found in spec")
	ErrNoIssueNumbers   = errors.New("no record declares issue_number")
	ErrNoEpic           = errors.New("no epic found in spec")
	ErrEpicAsChild      = errors.New("spec is an epic, expected a regular issue")
	ErrMalformedPair    = errors.New("malformed link argument")
	ErrMalformedNumbers = errors.New("malformed issue number list")
	ErrUnknownCommand   = errors.New("unknown command")
)
