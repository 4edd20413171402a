package issuespec_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
)

func TestSplit_Sections(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "dash boundaries",
			doc:  "# A\nbody\n---\n# B\n-----\n# C\n",
			want: []string{"# A\nbody\n", "# B\n", "# C\n\n"},
		},
		{
			name: "issue heading boundary",
			doc:  "# A\n## Issue:\n# B",
			want: []string{"# A\n", "# B\n"},
		},
		{
			name: "issue heading with title is not a boundary",
			doc:  "## Issue: Setup DB\ntype: chore",
			want: []string{"## Issue: Setup DB\ntype: chore\n"},
		},
		{
			name: "whitespace sections dropped",
			doc:  "---\n   \n---\n\n---\n# Only\n---\n",
			want: []string{"# Only\n"},
		},
		{
			name: "two dashes are content",
			doc:  "# A\n--\n",
			want: []string{"# A\n--\n\n"},
		},
		{
			name: "crlf normalized",
			doc:  "# A\r\n---\r\n# B\r\n",
			want: []string{"# A\n", "# B\n\n"},
		},
		{
			name: "empty document",
			doc:  "",
			want: nil,
		},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, issuespec.Split(tt.doc)); diff != "" {
				t.Errorf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_EpicWithChild(t *testing.T) {
	t.Parallel()

	doc := "# Epic: Payment Revamp\npriority: high\n---\n## Feature\ntype: feature\narea: billing\n"

	got, err := issuespec.Parse(doc, issuespec.Options{DefaultPriority: "medium"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []issuespec.Record{
		{
			Title:    "Payment Revamp",
			Body:     "# Epic: Payment Revamp\npriority: high",
			Priority: "high",
			Type:     issuespec.TypeEpic,
		},
		{
			Title:       "Feature",
			Body:        "## Feature\ntype: feature\narea: billing",
			Priority:    "medium",
			Areas:       []string{"billing"},
			Type:        issuespec.TypeFeature,
			ParentTitle: "[Epic]: Payment Revamp",
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}

	if got, want := got[0].TrackerTitle(), "[Epic]: Payment Revamp"; got != want {
		t.Errorf("TrackerTitle=%q, want=%q", got, want)
	}
}

func TestParse_Fields(t *testing.T) {
	t.Parallel()

	doc := strings.Join([]string{
		"## Issue: Export invoices",
		"Type: Tech Debt",
		"PRIORITY: low",
		"area: api, billing,  , api",
		"blocks: Reporting",
		"blocked_by: Setup DB, Configure CI",
		"issue_number: #42",
		"",
		"Export invoices as CSV.",
	}, "\n")

	got, err := issuespec.Parse(doc, issuespec.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("len(records)=%d, want=1", len(got))
	}

	rec := got[0]

	want := issuespec.Record{
		Title:       "Export invoices",
		Body:        doc,
		Priority:    "low",
		Areas:       []string{"api", "billing"},
		Type:        issuespec.TypeTechnicalDebt,
		Blocks:      []string{"Reporting"},
		BlockedBy:   []string{"Setup DB", "Configure CI"},
		IssueNumber: 42,
	}

	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	if !rec.HasIssueNumber() {
		t.Error("HasIssueNumber=false, want true")
	}
}

func TestParse_ParentTracksNearestEpic(t *testing.T) {
	t.Parallel()

	doc := `# Loose chore
type: chore
---
# [Epic]: First
---
# A
type: bug
---
# [Epic] Second
---
# B
type: research
`

	got, err := issuespec.Parse(doc, issuespec.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var parents []string
	for _, rec := range got {
		parents = append(parents, rec.Title+"<"+rec.ParentTitle)
	}

	want := []string{
		"Loose chore<",
		"First<",
		"A<[Epic]: First",
		"Second<",
		"B<[Epic]: Second",
	}

	if diff := cmp.Diff(want, parents); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name      string
		doc       string
		wantErr   error
		wantTitle string
		wantMsg   string
	}{
		{
			name:      "missing type",
			doc:       "# Login page\npriority: high\narea: web\nblocked_by: X",
			wantErr:   issuespec.ErrTypeRequired,
			wantTitle: "Login page",
			wantMsg:   `"Login page"`,
		},
		{
			name:      "invalid type",
			doc:       "# Login page\ntype: story",
			wantErr:   issuespec.ErrInvalidType,
			wantTitle: "Login page",
			wantMsg:   "feature, bug, technical-debt, chore, documentation, research, epic",
		},
		{
			name:      "legacy bug marker",
			doc:       "## [Bug] Crash on save\npriority: high",
			wantErr:   issuespec.ErrLegacyTitleMarker,
			wantTitle: "Crash on save",
			wantMsg:   "Non-epic title markers are not allowed.",
		},
		{
			name:      "later section fails after valid ones",
			doc:       "# Epic: E\n---\n# Ok\ntype: bug\n---\n# Bad",
			wantErr:   issuespec.ErrTypeRequired,
			wantTitle: "Bad",
			wantMsg:   "section 3",
		},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			records, err := issuespec.Parse(tt.doc, issuespec.Options{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v, want %v", err, tt.wantErr)
			}

			if records != nil {
				t.Errorf("records=%v, want nil on error", records)
			}

			var sectionErr *issuespec.SectionError
			if !errors.As(err, &sectionErr) {
				t.Fatalf("err=%T, want *SectionError", err)
			}

			if got, want := sectionErr.Title, tt.wantTitle; got != want {
				t.Errorf("Title=%q, want=%q", got, want)
			}

			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err=%q, want to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_LegacyMarkerAllowedWithTypeField(t *testing.T) {
	t.Parallel()

	got, err := issuespec.Parse("## [Bug]: Crash on save\ntype: bug", issuespec.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got, want := got[0].Title, "Crash on save"; got != want {
		t.Errorf("Title=%q, want=%q", got, want)
	}
}

func TestParse_DropsSectionsWithoutHeading(t *testing.T) {
	t.Parallel()

	doc := "just some notes\nno type here\n---\n# Real\ntype: chore\n---\n#\n"

	got, err := issuespec.Parse(doc, issuespec.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(got) != 1 || got[0].Title != "Real" {
		t.Errorf("records=%+v, want only %q", got, "Real")
	}
}

func TestParse_NeverReturnsMoreRecordsThanSections(t *testing.T) {
	t.Parallel()

	docs := []string{
		"",
		"# A\ntype: bug",
		"# A\ntype: bug\n---\n---\n# B\ntype: chore\n## Issue:\nno heading\n",
		"# [Epic] E\n---\n# [Epic] F\n---\nplain\n---\n# G\ntype: research",
	}

	for _, doc := range docs {
		records, err := issuespec.Parse(doc, issuespec.Options{})
		if err != nil {
			t.Fatalf("Parse(%q): %v", doc, err)
		}

		if got, limit := len(records), len(issuespec.Split(doc)); got > limit {
			t.Errorf("Parse(%q) returned %d records for %d sections", doc, got, limit)
		}
	}
}

func TestParse_InfersAreasCaseInsensitively(t *testing.T) {
	t.Parallel()

	doc := "# Sync\ntype: feature\narea: web\nTouches the PAYMENT gateway and the Database."
	keywords := map[string][]string{
		"billing": {"payment"},
		"storage": {"DATABASE", "sql"},
		"mobile":  {"ios"},
	}

	got, err := issuespec.Parse(doc, issuespec.Options{AreaKeywords: keywords})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff([]string{"billing", "storage", "web"}, got[0].Areas); diff != "" {
		t.Errorf("Areas mismatch (-want +got):\n%s", diff)
	}
}

func TestInferAreas_IsMonotonic(t *testing.T) {
	t.Parallel()

	text := "Refactor the payment api and the mobile client"
	small := map[string][]string{"billing": {"payment"}}
	large := map[string][]string{
		"billing": {"payment", "invoice"},
		"mobile":  {"MOBILE"},
		"infra":   {"kubernetes"},
	}

	before := issuespec.InferAreas(text, small)
	after := issuespec.InferAreas(text, large)

	for _, area := range before {
		found := false

		for _, other := range after {
			if other == area {
				found = true
			}
		}

		if !found {
			t.Errorf("area %q lost after adding keywords: before=%v after=%v", area, before, after)
		}
	}

	if diff := cmp.Diff([]string{"billing", "mobile"}, after); diff != "" {
		t.Errorf("InferAreas mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeType_Aliases(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]issuespec.Type{
		"Feature":        issuespec.TypeFeature,
		" enhancement ":  issuespec.TypeFeature,
		"Technical Debt": issuespec.TypeTechnicalDebt,
		"tech_debt":      issuespec.TypeTechnicalDebt,
		"docs":           issuespec.TypeDocumentation,
		"EPIC":           issuespec.TypeEpic,
		"story":          issuespec.Type("story"),
	} {
		if got := issuespec.NormalizeType(raw); got != want {
			t.Errorf("NormalizeType(%q)=%q, want=%q", raw, got, want)
		}
	}

	if issuespec.Type("story").Valid() {
		t.Error("story should not be a valid type")
	}
}
