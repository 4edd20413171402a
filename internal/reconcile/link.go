package reconcile

import (
	"context"

	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
)

// linkParents adds every record with a parent resolved in this batch as a
// sub-issue of that parent. numbers[i] is the issue of records[i], 0 when
// the record was not resolved.
func (r *run) linkParents(ctx context.Context, records []issuespec.Record, numbers []int) {
	for i, rec := range records {
		if rec.ParentTitle == "" || numbers[i] == 0 {
			continue
		}

		parent, ok := r.byTitle[rec.ParentTitle]
		if !ok {
			r.out.Warn("Parent %q of #%d is not part of this batch; not linked", rec.ParentTitle, numbers[i])

			continue
		}

		if err := r.tr.AddSubIssue(ctx, parent, numbers[i]); err != nil {
			r.out.Warn("Could not link #%d as child of #%d: %v", numbers[i], parent, err)

			continue
		}

		r.sum.Linked++
		r.out.OK("Linked #%d as child of #%d", numbers[i], parent)
	}
}

// linkBlockers records a blocked-by relation for each BlockedBy title, in
// listed order. Titles resolve against the batch first, then by exact
// title on the tracker.
func (r *run) linkBlockers(ctx context.Context, records []issuespec.Record, numbers []int) {
	for i, rec := range records {
		if numbers[i] == 0 {
			continue
		}

		for _, title := range rec.BlockedBy {
			blocker, ok := r.blockerNumber(ctx, title)
			if !ok {
				r.out.Warn("Blocker %q of #%d not found; skipped", title, numbers[i])

				continue
			}

			if blocker == numbers[i] {
				r.out.Warn("#%d lists itself as a blocker; skipped", blocker)

				continue
			}

			if err := r.tr.AddBlockedBy(ctx, numbers[i], blocker); err != nil {
				r.out.Warn("Could not mark #%d blocked by #%d: %v", numbers[i], blocker, err)

				continue
			}

			r.sum.Linked++
			r.out.OK("#%d blocked by #%d", numbers[i], blocker)
		}
	}
}

func (r *run) blockerNumber(ctx context.Context, title string) (int, bool) {
	if n, ok := r.byTitle[title]; ok {
		return n, true
	}

	if n, ok := r.byTitle[issuespec.EpicTitlePrefix+title]; ok {
		return n, true
	}

	issue, found, err := r.tr.FindIssueByTitle(ctx, title)
	if err != nil {
		r.log.WithError(err).WithField("title", title).Debug("blocker lookup failed")

		return 0, false
	}

	if !found {
		return 0, false
	}

	r.byTitle[title] = issue.Number

	return issue.Number, true
}

func (r *run) linkBlockerPairs(ctx context.Context, pairs []Pair) {
	for _, p := range pairs {
		if err := r.tr.AddBlockedBy(ctx, p.A, p.B); err != nil {
			r.out.Warn("Could not mark #%d blocked by #%d: %v", p.A, p.B, err)

			continue
		}

		r.sum.Linked++
		r.out.OK("#%d blocked by #%d", p.A, p.B)
	}
}

func (r *run) linkChildPairs(ctx context.Context, pairs []Pair) {
	for _, p := range pairs {
		if err := r.tr.AddSubIssue(ctx, p.A, p.B); err != nil {
			r.out.Warn("Could not link #%d as child of #%d: %v", p.B, p.A, err)

			continue
		}

		r.sum.Linked++
		r.out.OK("Linked #%d as child of #%d", p.B, p.A)
	}
}
