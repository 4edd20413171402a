// Package migrate moves issues off legacy type labels (bug, enhancement,
// ...) onto native issue types and removes the legacy labels.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
	"github.com/LightForgeLabsStudio/AIDE/internal/labels"
	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

// ErrInvalidLimit is returned for a negative Options.Limit.
var ErrInvalidLimit = errors.New("limit must be >= 0")

// LegacyLabels maps each recognized legacy type label to its issue type.
var LegacyLabels = map[string]issuespec.Type{
	"bug":            issuespec.TypeBug,
	"enhancement":    issuespec.TypeFeature,
	"technical-debt": issuespec.TypeTechnicalDebt,
	"documentation":  issuespec.TypeDocumentation,
	"testing":        issuespec.TypeChore,
	"chore":          issuespec.TypeChore,
}

// Options configures a migration run.
type Options struct {
	State   tracker.State
	Limit   int  // issues to scan, 0 for all
	Apply   bool // mutate; plan only when false
	Mapping map[string]string
}

// Reporter receives per-issue output.
type Reporter interface {
	OK(format string, a ...any)
	Warn(format string, a ...any)
	Skip(format string, a ...any)
	DryRun(format string, a ...any)
}

// Report counts what a run planned or did.
type Report struct {
	Scanned       int
	SetTypes      int
	RemovedLabels int
	Ambiguous     int
}

// String renders the closing line for a dry run or an applied run.
func (r Report) String(applied bool) string {
	counts := fmt.Sprintf("set issue types=%d, remove legacy labels=%d, skipped_multi_label=%d",
		r.SetTypes, r.RemovedLabels, r.Ambiguous)

	if applied {
		return "Updated issues: " + counts
	}

	return "Planned: " + counts
}

// plan is the change computed for one issue.
type plan struct {
	issue    tracker.Issue
	legacy   []string
	typeName string // empty when the type is left alone
}

// Run scans issues in opts.State and migrates those carrying legacy labels.
// The owner's issue type catalogue is read once up front.
func Run(ctx context.Context, tr tracker.Tracker, opts Options, out Reporter) (Report, error) {
	if opts.Limit < 0 {
		return Report{}, fmt.Errorf("%w: %d", ErrInvalidLimit, opts.Limit)
	}

	available, err := tr.IssueTypes(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reading issue types: %w", err)
	}

	if missing := missingTypes(opts.Mapping, available); len(missing) > 0 {
		out.Warn("Missing configured Issue Types in org: %s", strings.Join(missing, ", "))
	}

	var (
		report Report
		plans  []plan
	)

	err = tr.ListIssues(ctx, opts.State, func(issue tracker.Issue) bool {
		if opts.Limit > 0 && report.Scanned >= opts.Limit {
			return false
		}

		report.Scanned++

		p, ok := planFor(issue, opts.Mapping, available, out)
		if !ok {
			return true
		}

		if p.typeName == "" && issue.IssueType == "" && len(p.legacy) > 1 {
			report.Ambiguous++
		}

		plans = append(plans, p)

		return true
	})
	if err != nil {
		return report, fmt.Errorf("listing issues: %w", err)
	}

	for _, p := range plans {
		if p.typeName != "" {
			report.SetTypes++
		}

		report.RemovedLabels++

		if !opts.Apply {
			parts := make([]string, 0, 2)
			if p.typeName != "" {
				parts = append(parts, "set Issue Type -> "+p.typeName)
			}

			parts = append(parts, "remove labels -> "+strings.Join(p.legacy, ", "))
			out.DryRun("#%d: %s", p.issue.Number, strings.Join(parts, "; "))

			continue
		}

		if err := apply(ctx, tr, p, out); err != nil {
			return report, err
		}
	}

	return report, nil
}

// planFor computes the change for issue. ok is false when the issue carries
// no legacy label.
func planFor(issue tracker.Issue, mapping, available map[string]string, out Reporter) (plan, bool) {
	var legacy []string

	for _, name := range issue.Labels {
		if _, ok := LegacyLabels[name]; ok {
			legacy = append(legacy, name)
		}
	}

	if len(legacy) == 0 {
		return plan{}, false
	}

	p := plan{issue: issue, legacy: legacy}

	if issue.IssueType != "" {
		return p, true
	}

	if len(legacy) > 1 {
		out.Skip("#%d: multiple legacy type labels present: %s", issue.Number, strings.Join(legacy, ", "))

		return p, true
	}

	name, ok := labels.IssueTypeName(LegacyLabels[legacy[0]], mapping)
	if ok {
		if _, exists := available[name]; exists {
			p.typeName = name
		}
	}

	return p, true
}

func apply(ctx context.Context, tr tracker.Tracker, p plan, out Reporter) error {
	if p.typeName != "" {
		if err := tr.SetIssueType(ctx, p.issue.Number, p.typeName); err != nil {
			return fmt.Errorf("setting issue type of #%d: %w", p.issue.Number, err)
		}

		out.OK("#%d: set Issue Type -> %s", p.issue.Number, p.typeName)
	}

	if err := tr.RemoveLabels(ctx, p.issue.Number, p.legacy); err != nil {
		return fmt.Errorf("removing labels from #%d: %w", p.issue.Number, err)
	}

	out.OK("#%d: removed labels -> %s", p.issue.Number, strings.Join(p.legacy, ", "))

	return nil
}

// missingTypes returns the configured display names the owner lacks, in
// the order of the issue type enum.
func missingTypes(mapping, available map[string]string) []string {
	var missing []string

	for _, t := range issuespec.AllowedTypes() {
		name, ok := labels.IssueTypeName(t, mapping)
		if !ok {
			continue
		}

		if _, exists := available[name]; !exists && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}

	return missing
}
