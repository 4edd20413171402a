package cli_test

import (
	"testing"

	"github.com/LightForgeLabsStudio/AIDE/internal/cli"
	"github.com/LightForgeLabsStudio/AIDE/internal/testutil"
)

func TestSetIssueType_SetsAndVerifies(t *testing.T) {
	t.Parallel()

	ft := testutil.NewFakeTracker()
	ft.Seed(testutil.FakeIssue{Number: 12})

	c := cli.NewCLI(t, cli.SetIssueType, ft)

	stdout := c.MustRun("--issue", "12", "--type", "Technical Debt")

	cli.AssertContains(t, stdout, "[OK] Set issue type of #12: Technical Debt")

	if got := ft.Issue(12).IssueType; got != "Technical Debt" {
		t.Errorf("issue type=%q, want %q", got, "Technical Debt")
	}
}

func TestSetIssueType_UsesConfigMapping(t *testing.T) {
	t.Parallel()

	ft := testutil.NewFakeTracker()
	ft.Types["Defect"] = "IT_defect"
	ft.Seed(testutil.FakeIssue{Number: 3})

	c := cli.NewCLI(t, cli.SetIssueType, ft)
	c.WriteFile("cfg.json", `{"issue_type_mapping": {"bug": "Defect"}}`)

	c.MustRun("--issue", "3", "--type", "bug", "-c", "cfg.json")

	if got := ft.Issue(3).IssueType; got != "Defect" {
		t.Errorf("issue type=%q, want Defect", got)
	}
}

func TestSetIssueType_FailsWhenInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(ft *testutil.FakeTracker)
		args    []string
		wantErr string
	}{
		{name: "missing issue", args: []string{"--type", "bug"}, wantErr: "--issue is required"},
		{name: "missing type", args: []string{"--issue", "1"}, wantErr: "--type is required"},
		{name: "unknown type", args: []string{"--issue", "1", "--type", "story"}, wantErr: `unknown type "story"; allowed: feature, bug, technical-debt`},
		{name: "missing issue remote", args: []string{"--issue", "99", "--type", "bug"}, wantErr: "issue not found"},
		{
			name:    "type not in org",
			setup:   func(ft *testutil.FakeTracker) { delete(ft.Types, "Bug") },
			args:    []string{"--issue", "1", "--type", "bug"},
			wantErr: "issue type not available",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ft := testutil.NewFakeTracker()
			ft.Seed(testutil.FakeIssue{Number: 1})

			if tt.setup != nil {
				tt.setup(ft)
			}

			c := cli.NewCLI(t, cli.SetIssueType, ft)
			stderr := c.MustFail(tt.args...)

			cli.AssertContains(t, stderr, tt.wantErr)
		})
	}
}
