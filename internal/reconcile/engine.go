// Package reconcile turns parsed issue records into tracker state.
//
// A run resolves every record to an issue number first (update by
// issue_number, update by exact title, or create) and only then links
// parents and blockers, so relations can point at issues created earlier in
// the same batch. Resolution failures abort the run; link failures are
// reported as warnings and the run continues.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LightForgeLabsStudio/AIDE/internal/config"
	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
	"github.com/LightForgeLabsStudio/AIDE/internal/labels"
	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

// Reporter receives the user facing progress lines.
type Reporter interface {
	OK(format string, a ...any)
	Warn(format string, a ...any)
	Skip(format string, a ...any)
}

// Summary counts what a run did.
type Summary struct {
	Created int
	Updated int
	Skipped int
	Linked  int
}

// Add returns the field-wise sum of s and other.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Created: s.Created + other.Created,
		Updated: s.Updated + other.Updated,
		Skipped: s.Skipped + other.Skipped,
		Linked:  s.Linked + other.Linked,
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("Summary: created %d, updated %d, skipped %d", s.Created, s.Updated, s.Skipped)
}

// Engine applies commands against a tracker.
type Engine struct {
	tr  tracker.Tracker
	cfg config.Config
	out Reporter
	log logrus.FieldLogger
}

// New returns an engine. A nil log discards debug output.
func New(tr tracker.Tracker, cfg config.Config, out Reporter, log logrus.FieldLogger) *Engine {
	if log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		log = discard
	}

	return &Engine{tr: tr, cfg: cfg, out: out, log: log}
}

func (e *Engine) labelSettings() labels.Settings {
	return labels.Settings{EpicLabel: e.cfg.EpicLabel, StatusReady: e.cfg.StatusReady}
}

// run holds the state of one Engine.Run call.
type run struct {
	*Engine

	sum Summary

	// byTitle maps tracker and display titles resolved in this batch to
	// their issue numbers.
	byTitle map[string]int
}

// Run executes cmd over records.
func (e *Engine) Run(ctx context.Context, cmd Command, records []issuespec.Record) (Summary, error) {
	if cmd.NeedsRecords() && len(records) == 0 {
		return Summary{}, ErrNoRecords
	}

	r := &run{Engine: e, byTitle: map[string]int{}}

	var err error

	switch c := cmd.(type) {
	case Create:
		err = r.createAll(ctx, records)
	case UpdateAuto:
		err = r.updateAuto(ctx, records)
	case UpdateSingle:
		err = r.updateSingle(ctx, c.Number, records[0])
	case UpdateEpic:
		err = r.updateEpic(ctx, c.Number, records)
	case UpdateBlockers:
		err = r.updateBlockers(ctx, records)
	case AddChild:
		err = r.addChild(ctx, c.Epic, records[0])
	case SyncTypes:
		err = r.syncTypes(ctx, c.Numbers, records)
	case LinkBlockers:
		r.linkBlockerPairs(ctx, c.Pairs)
	case LinkChildren:
		r.linkChildPairs(ctx, c.Pairs)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	return r.sum, err
}

func (r *run) createAll(ctx context.Context, records []issuespec.Record) error {
	if err := r.preflight(ctx, records); err != nil {
		return err
	}

	numbers := make([]int, len(records))

	for i, rec := range records {
		n, err := r.resolve(ctx, rec)
		if err != nil {
			return err
		}

		numbers[i] = n
	}

	r.linkParents(ctx, records, numbers)
	r.linkBlockers(ctx, records, numbers)

	return nil
}

func (r *run) updateAuto(ctx context.Context, records []issuespec.Record) error {
	for _, rec := range records {
		if rec.HasIssueNumber() {
			return r.createAll(ctx, records)
		}
	}

	return ErrNoIssueNumbers
}

func (r *run) updateSingle(ctx context.Context, number int, rec issuespec.Record) error {
	if err := r.preflight(ctx, []issuespec.Record{rec}); err != nil {
		return err
	}

	if err := r.update(ctx, number, rec); err != nil {
		return err
	}

	r.sum.Updated++
	r.out.OK("Updated #%d: %s", number, rec.Title)

	return nil
}

func (r *run) updateEpic(ctx context.Context, number int, records []issuespec.Record) error {
	epicIdx := -1

	var children []issuespec.Record

	for i, rec := range records {
		switch {
		case rec.IsEpic() && epicIdx < 0:
			epicIdx = i
		case !rec.IsEpic():
			children = append(children, rec)
		}
	}

	if epicIdx < 0 {
		return ErrNoEpic
	}

	epic := records[epicIdx]

	if err := r.preflight(ctx, append([]issuespec.Record{epic}, children...)); err != nil {
		return err
	}

	if err := r.update(ctx, number, epic); err != nil {
		return err
	}

	r.sum.Updated++
	r.out.OK("Updated Epic #%d: %s", number, epic.Title)

	subIssues, err := r.tr.SubIssues(ctx, number)
	if err != nil {
		return fmt.Errorf("reading children of epic #%d: %w", number, err)
	}

	if len(children) != len(subIssues) {
		r.out.Warn("Spec has %d children, Epic #%d has %d children; updating the first %d by position",
			len(children), number, len(subIssues), min(len(children), len(subIssues)))
	}

	for i, child := range subIssues {
		if i >= len(children) {
			r.sum.Skipped++
			r.out.Skip("#%d: no matching record in spec", child)

			continue
		}

		if err := r.update(ctx, child, children[i]); err != nil {
			return err
		}

		r.sum.Updated++
		r.out.OK("Updated #%d: %s", child, children[i].Title)
	}

	for _, rec := range children[min(len(children), len(subIssues)):] {
		r.sum.Skipped++
		r.out.Skip("%q: no matching child of Epic #%d", rec.Title, number)
	}

	return nil
}

func (r *run) updateBlockers(ctx context.Context, records []issuespec.Record) error {
	numbers := make([]int, len(records))

	for i, rec := range records {
		n, ok, err := r.lookup(ctx, rec)
		if err != nil {
			return err
		}

		if !ok {
			r.sum.Skipped++
			r.out.Skip("%q: no existing issue found", rec.Title)

			continue
		}

		numbers[i] = n
		r.remember(rec, n)
	}

	r.linkBlockers(ctx, records, numbers)

	return nil
}

func (r *run) addChild(ctx context.Context, epic int, rec issuespec.Record) error {
	if rec.IsEpic() {
		return fmt.Errorf("%w: %q", ErrEpicAsChild, rec.Title)
	}

	if err := r.preflight(ctx, []issuespec.Record{rec}); err != nil {
		return err
	}

	n, err := r.resolve(ctx, rec)
	if err != nil {
		return err
	}

	if err := r.tr.AddSubIssue(ctx, epic, n); err != nil {
		return fmt.Errorf("linking #%d to Epic #%d: %w", n, epic, err)
	}

	r.sum.Linked++
	r.out.OK("Linked #%d to Epic #%d", n, epic)

	return nil
}

func (r *run) syncTypes(ctx context.Context, numbers []int, records []issuespec.Record) error {
	if len(numbers) != len(records) {
		r.out.Warn("Got %d issue numbers for %d records; pairing by position", len(numbers), len(records))
	}

	for i, number := range numbers {
		if i >= len(records) {
			r.sum.Skipped++
			r.out.Skip("#%d: no matching record in spec", number)

			continue
		}

		issue, err := r.tr.GetIssue(ctx, number)
		if err != nil {
			return fmt.Errorf("reading #%d: %w", number, err)
		}

		changed, err := r.setType(ctx, number, records[i], issue.IssueType)
		if err != nil {
			return err
		}

		if !changed {
			r.sum.Skipped++

			continue
		}

		r.sum.Updated++
		r.out.OK("Synced issue type of #%d: %s", number, records[i].Type)
	}

	for _, rec := range records[min(len(numbers), len(records)):] {
		r.sum.Skipped++
		r.out.Skip("%q: no issue number given", rec.Title)
	}

	return nil
}

// preflight creates every label the records need that the repository does
// not have yet.
func (r *run) preflight(ctx context.Context, records []issuespec.Record) error {
	required := labels.Required(records, r.labelSettings())

	existing, err := r.tr.ListLabels(ctx)
	if err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}

	for _, name := range required {
		if containsFold(existing, name) {
			continue
		}

		spec := labels.SpecFor(name, r.cfg.EpicLabel)

		err := r.tr.CreateLabel(ctx, tracker.Label{Name: spec.Name, Color: spec.Color, Description: spec.Description})
		if err != nil {
			return err
		}

		r.out.OK("Created label %s", name)
	}

	return nil
}

// resolve updates or creates the issue for rec and returns its number.
func (r *run) resolve(ctx context.Context, rec issuespec.Record) (int, error) {
	log := r.log.WithField("title", rec.TrackerTitle())

	if rec.HasIssueNumber() {
		log.WithField("number", rec.IssueNumber).Debug("updating by issue number")

		if err := r.update(ctx, rec.IssueNumber, rec); err != nil {
			return 0, err
		}

		r.sum.Updated++
		r.out.OK("Updated #%d: %s", rec.IssueNumber, rec.Title)
		r.remember(rec, rec.IssueNumber)

		return rec.IssueNumber, nil
	}

	existing, found, err := r.tr.FindIssueByTitle(ctx, rec.TrackerTitle())
	if err != nil {
		return 0, fmt.Errorf("looking up %q: %w", rec.TrackerTitle(), err)
	}

	if found {
		log.WithField("number", existing.Number).Debug("updating by title")
		r.out.Warn("Duplicate by title: #%d is already titled %q; updating it instead of creating", existing.Number, rec.TrackerTitle())

		if err := r.updateIssue(ctx, existing, rec); err != nil {
			return 0, err
		}

		r.sum.Updated++
		r.out.OK("Updated #%d: %s", existing.Number, rec.Title)
		r.remember(rec, existing.Number)

		return existing.Number, nil
	}

	n, err := r.tr.CreateIssue(ctx, tracker.NewIssue{
		Title:  rec.TrackerTitle(),
		Body:   labels.Body(rec),
		Labels: labels.For(rec, r.labelSettings()),
	})
	if err != nil {
		return 0, err
	}

	r.sum.Created++
	r.remember(rec, n)

	if rec.IsEpic() {
		r.out.OK("Created Epic #%d: %s", n, rec.Title)
	} else {
		areas := "none"
		if len(rec.Areas) > 0 {
			areas = strings.Join(rec.Areas, ", ")
		}

		r.out.OK("Created #%d: %s (priority: %s, areas: %s)", n, rec.Title, rec.Priority, areas)
	}

	if _, err := r.setType(ctx, n, rec, ""); err != nil {
		return 0, err
	}

	return n, nil
}

// lookup finds the existing issue for rec without changing it.
func (r *run) lookup(ctx context.Context, rec issuespec.Record) (int, bool, error) {
	if rec.HasIssueNumber() {
		return rec.IssueNumber, true, nil
	}

	issue, found, err := r.tr.FindIssueByTitle(ctx, rec.TrackerTitle())
	if err != nil {
		return 0, false, fmt.Errorf("looking up %q: %w", rec.TrackerTitle(), err)
	}

	return issue.Number, found, nil
}

func (r *run) update(ctx context.Context, number int, rec issuespec.Record) error {
	issue, err := r.tr.GetIssue(ctx, number)
	if err != nil {
		return fmt.Errorf("reading #%d: %w", number, err)
	}

	return r.updateIssue(ctx, issue, rec)
}

// updateIssue rewrites title and body, replaces the managed labels and
// sets the issue type. Custom labels are kept.
func (r *run) updateIssue(ctx context.Context, issue tracker.Issue, rec issuespec.Record) error {
	desired := labels.For(rec, r.labelSettings())
	add, remove := labels.Diff(issue.Labels, desired, r.cfg.EpicLabel)

	r.log.WithFields(logrus.Fields{
		"number": issue.Number,
		"add":    add,
		"remove": remove,
	}).Debug("label diff")

	err := r.tr.EditIssue(ctx, issue.Number, tracker.IssueEdit{
		Title:        rec.TrackerTitle(),
		Body:         labels.Body(rec),
		AddLabels:    add,
		RemoveLabels: remove,
	})
	if err != nil {
		return fmt.Errorf("updating #%d: %w", issue.Number, err)
	}

	_, err = r.setType(ctx, issue.Number, rec, issue.IssueType)

	return err
}

// setType sets the mapped issue type of number unless it already has it.
// Unmapped types and types the owner does not offer are warnings.
func (r *run) setType(ctx context.Context, number int, rec issuespec.Record, current string) (bool, error) {
	name, ok := labels.IssueTypeName(rec.Type, r.cfg.IssueTypeMapping)
	if !ok {
		r.out.Warn("No issue type mapping for %q; #%d keeps its issue type", rec.Type, number)

		return false, nil
	}

	if name == current {
		return false, nil
	}

	err := r.tr.SetIssueType(ctx, number, name)
	if errors.Is(err, tracker.ErrIssueTypeUnavailable) || errors.Is(err, tracker.ErrIssueTypesDisabled) {
		r.out.Warn("Could not set issue type of #%d: %v", number, err)

		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("setting issue type of #%d: %w", number, err)
	}

	r.log.WithFields(logrus.Fields{"number": number, "type": name}).Debug("set issue type")

	return true, nil
}

func (r *run) remember(rec issuespec.Record, number int) {
	r.byTitle[rec.TrackerTitle()] = number
	r.byTitle[rec.Title] = number
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}

	return false
}
