package migrate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LightForgeLabsStudio/AIDE/internal/config"
	"github.com/LightForgeLabsStudio/AIDE/internal/migrate"
	"github.com/LightForgeLabsStudio/AIDE/internal/testutil"
	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

type lines struct {
	ok, warn, skip, dry []string
}

func (l *lines) OK(format string, a ...any)     { l.ok = append(l.ok, fmt.Sprintf(format, a...)) }
func (l *lines) Warn(format string, a ...any)   { l.warn = append(l.warn, fmt.Sprintf(format, a...)) }
func (l *lines) Skip(format string, a ...any)   { l.skip = append(l.skip, fmt.Sprintf(format, a...)) }
func (l *lines) DryRun(format string, a ...any) { l.dry = append(l.dry, fmt.Sprintf(format, a...)) }

func seeded() *testutil.FakeTracker {
	ft := testutil.NewFakeTracker()
	ft.Seed(testutil.FakeIssue{Number: 1, Labels: []string{"enhancement", "priority:high"}})
	ft.Seed(testutil.FakeIssue{Number: 2, Labels: []string{"bug", "testing"}})
	ft.Seed(testutil.FakeIssue{Number: 3, Labels: []string{"documentation"}, IssueType: "Bug"})
	ft.Seed(testutil.FakeIssue{Number: 4, Labels: []string{"area:api"}})
	ft.Seed(testutil.FakeIssue{Number: 5, Labels: []string{"chore"}, State: "CLOSED"})

	return ft
}

func opts(apply bool) migrate.Options {
	return migrate.Options{State: tracker.StateAll, Apply: apply, Mapping: config.DefaultIssueTypeMapping()}
}

func TestRun_MigrateDryRunPlansWithoutMutating(t *testing.T) {
	t.Parallel()

	ft := seeded()
	out := &lines{}

	report, err := migrate.Run(context.Background(), ft, opts(false), out)
	require.NoError(t, err)

	want := []string{
		"#1: set Issue Type -> Feature; remove labels -> enhancement",
		"#2: remove labels -> bug, testing",
		"#3: remove labels -> documentation",
		"#5: set Issue Type -> Chore; remove labels -> chore",
	}
	if diff := cmp.Diff(want, out.dry); diff != "" {
		t.Errorf("dry-run lines mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"#2: multiple legacy type labels present: bug, testing"}, out.skip)
	assert.Equal(t, migrate.Report{Scanned: 5, SetTypes: 2, RemovedLabels: 4, Ambiguous: 1}, report)
	assert.Equal(t, "Planned: set issue types=2, remove legacy labels=4, skipped_multi_label=1", report.String(false))

	assert.Empty(t, ft.CallsWithPrefix("SetIssueType"))
	assert.Empty(t, ft.CallsWithPrefix("EditIssue"))
}

func TestRun_MigrateApply(t *testing.T) {
	t.Parallel()

	ft := seeded()
	out := &lines{}

	report, err := migrate.Run(context.Background(), ft, opts(true), out)
	require.NoError(t, err)

	assert.Equal(t, "Feature", ft.Issue(1).IssueType)
	assert.Equal(t, []string{"priority:high"}, ft.Issue(1).Labels)
	assert.Empty(t, ft.Issue(2).IssueType, "ambiguous issue keeps no type")
	assert.Empty(t, ft.Issue(2).Labels, "legacy labels are removed even when ambiguous")
	assert.Equal(t, "Bug", ft.Issue(3).IssueType, "existing type is kept")
	assert.Equal(t, []string{"area:api"}, ft.Issue(4).Labels)
	assert.Equal(t, "Chore", ft.Issue(5).IssueType)

	assert.Contains(t, out.ok, "#1: set Issue Type -> Feature")
	assert.Contains(t, out.ok, "#2: removed labels -> bug, testing")
	assert.Empty(t, out.dry)
	assert.Equal(t, "Updated issues: set issue types=2, remove legacy labels=4, skipped_multi_label=1", report.String(true))

	// A second pass finds nothing left to do.
	again := &lines{}

	report, err = migrate.Run(context.Background(), ft, opts(true), again)
	require.NoError(t, err)
	assert.Equal(t, migrate.Report{Scanned: 5}, report)
	assert.Empty(t, again.ok)
}

func TestRun_MigrateRespectsStateAndLimit(t *testing.T) {
	t.Parallel()

	ft := seeded()
	out := &lines{}

	o := opts(false)
	o.State = tracker.StateOpen
	o.Limit = 2

	report, err := migrate.Run(context.Background(), ft, o, out)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Len(t, out.dry, 2)

	o.State = tracker.StateClosed
	o.Limit = 0
	out = &lines{}

	_, err = migrate.Run(context.Background(), ft, o, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"#5: set Issue Type -> Chore; remove labels -> chore"}, out.dry)
}

func TestRun_MigrateWarnsAboutMissingTypes(t *testing.T) {
	t.Parallel()

	ft := seeded()
	delete(ft.Types, "Feature")
	delete(ft.Types, "Research")

	out := &lines{}

	_, err := migrate.Run(context.Background(), ft, opts(false), out)
	require.NoError(t, err)

	assert.Equal(t, []string{"Missing configured Issue Types in org: Feature, Research"}, out.warn)
	assert.Equal(t, "#1: remove labels -> enhancement", out.dry[0], "type not offered, only labels go")
}

func TestRun_MigrateFailsWithoutIssueTypes(t *testing.T) {
	t.Parallel()

	ft := seeded()
	ft.Types = nil

	_, err := migrate.Run(context.Background(), ft, opts(false), &lines{})
	require.ErrorIs(t, err, tracker.ErrIssueTypesDisabled)
}

func TestRun_MigrateRejectsNegativeLimit(t *testing.T) {
	t.Parallel()

	o := opts(false)
	o.Limit = -1

	_, err := migrate.Run(context.Background(), seeded(), o, &lines{})
	require.ErrorIs(t, err, migrate.ErrInvalidLimit)
}
