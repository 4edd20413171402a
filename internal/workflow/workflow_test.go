package workflow_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LightForgeLabsStudio/AIDE/internal/workflow"
)

const manifestJSON = `{
  // generated blocks live in these two files
  "one_pager": "docs/agents/IMPLEMENTATION_ONE_PAGER.md",
  "skill": "skills/implement/SKILL.md",
  "skill_consumer_prefix": ".aide/",
  "steps": [
    {"number": 1, "title": "Build", "summary": "write the code", "doc": "docs/agents/implementation/STEP_1_BUILD.md"},
    {"number": 0, "title": "Plan", "summary": "read the issue", "doc": "docs/agents/implementation/STEP_0_PLAN.md"},
  ],
}`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)

	return string(data)
}

func setupRepo(t *testing.T) (string, workflow.Manifest) {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "manifests/implementation.json", manifestJSON)
	writeFile(t, root, "docs/agents/IMPLEMENTATION_ONE_PAGER.md",
		"# One pager\n\n"+workflow.OnePagerStart+"\nstale\n"+workflow.OnePagerEnd+"\n\nfooter\n")
	writeFile(t, root, "skills/implement/SKILL.md",
		"# Skill\n"+workflow.SkillStart+"\n"+workflow.SkillEnd+"\n")
	writeFile(t, root, "docs/agents/implementation/STEP_0_PLAN.md",
		"# Step 0\n\n**Navigation:** [Step 1](STEP_1_BUILD.md)\n")
	writeFile(t, root, "docs/agents/implementation/STEP_1_BUILD.md",
		"# Step 1\n\n**Navigation:** [Step 0](STEP_0_PLAN.md)\n")

	m, err := workflow.LoadManifest(filepath.Join(root, workflow.DefaultManifestPath))
	require.NoError(t, err)

	return root, m
}

func TestLoadManifest_SortsSteps(t *testing.T) {
	t.Parallel()

	_, m := setupRepo(t)

	assert.Equal(t, ".aide/", m.SkillConsumerPrefix)
	assert.Equal(t, "Plan", m.Steps[0].Title)
	assert.Equal(t, "Build", m.Steps[1].Title)
}

func TestParseManifest_YAML(t *testing.T) {
	t.Parallel()

	data := []byte(`one_pager: docs/agents/IMPLEMENTATION_ONE_PAGER.md
skill: skills/implement/SKILL.md
steps:
  - number: 0
    title: Plan
    summary: read the issue
    doc: docs/agents/implementation/STEP_0_PLAN.md
`)

	m, err := workflow.ParseManifest(data, ".yml")
	require.NoError(t, err)
	assert.Equal(t, []workflow.Step{{
		Number: 0, Title: "Plan", Summary: "read the issue", Doc: "docs/agents/implementation/STEP_0_PLAN.md",
	}}, m.Steps)
}

func TestParseManifest_Errors(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		data string
		want string
	}{
		{name: "syntax", data: `{"one_pager": `, want: "invalid manifest"},
		{name: "missing one_pager", data: `{"skill": "s"}`, want: "one_pager is required"},
		{name: "missing skill", data: `{"one_pager": "o"}`, want: "skill is required"},
		{
			name: "gap",
			data: `{"one_pager": "o", "skill": "s", "steps": [{"number": 0, "title": "a", "doc": "a"}, {"number": 2, "title": "b", "doc": "b"}]}`,
			want: "steps must be contiguous 0..1; got [0 2]",
		},
		{
			name: "no doc",
			data: `{"one_pager": "o", "skill": "s", "steps": [{"number": 0, "title": "a"}]}`,
			want: "step 0 needs a title and a doc",
		},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := workflow.ParseManifest([]byte(tt.data), ".json")
			if !errors.Is(err, workflow.ErrManifestInvalid) {
				t.Fatalf("err=%v, want ErrManifestInvalid", err)
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err=%q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestRender_Blocks(t *testing.T) {
	t.Parallel()

	_, m := setupRepo(t)

	wantOnePager := "0. **Plan** -> read the issue (`implementation/STEP_0_PLAN.md`)\n" +
		"1. **Build** -> write the code (`implementation/STEP_1_BUILD.md`)"
	if diff := cmp.Diff(wantOnePager, workflow.RenderOnePagerSteps(m.OnePager, m.Steps)); diff != "" {
		t.Errorf("one-pager block mismatch (-want +got):\n%s", diff)
	}

	wantSkill := "Canonical workflow (also see: `.aide/docs/agents/IMPLEMENTATION_ONE_PAGER.md`).\n\n" +
		"0) **Plan** -> read the issue (`.aide/docs/agents/implementation/STEP_0_PLAN.md`)\n" +
		"1) **Build** -> write the code (`.aide/docs/agents/implementation/STEP_1_BUILD.md`)"
	if diff := cmp.Diff(wantSkill, workflow.RenderSkillWorkflow(m)); diff != "" {
		t.Errorf("skill block mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceBlock_KeepsMarkers(t *testing.T) {
	t.Parallel()

	got, err := workflow.ReplaceBlock("a\n<S>\nold\n<E>\nb", "<S>", "<E>", "new")
	require.NoError(t, err)
	assert.Equal(t, "a\n<S>\nnew\n<E>\nb", got)

	for _, text := range []string{"no markers", "<E> then <S>", "<S> only"} {
		_, err := workflow.ReplaceBlock(text, "<S>", "<E>", "x")
		assert.ErrorIs(t, err, workflow.ErrMarkers, text)
	}
}

func TestGenerate_ThenWriteConverges(t *testing.T) {
	t.Parallel()

	root, m := setupRepo(t)

	res, err := workflow.Generate(root, m)
	require.NoError(t, err)
	assert.Empty(t, res.NavIssues)
	assert.Equal(t, []string{m.OnePager, m.Skill}, res.Changed())
	assert.False(t, res.UpToDate())

	written, err := workflow.Write(root, res)
	require.NoError(t, err)
	assert.Equal(t, []string{m.OnePager, m.Skill}, written)

	onePager := readFile(t, root, m.OnePager)
	assert.Contains(t, onePager, workflow.OnePagerStart+"\n0. **Plan**")
	assert.True(t, strings.HasSuffix(onePager, "1. **Build** -> write the code (`implementation/STEP_1_BUILD.md`)\n"+
		workflow.OnePagerEnd+"\n\nfooter\n"))

	again, err := workflow.Generate(root, m)
	require.NoError(t, err)
	assert.True(t, again.UpToDate())

	written, err = workflow.Write(root, again)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestDiff_ShowsChangedLines(t *testing.T) {
	t.Parallel()

	f := workflow.File{
		Path:    "doc.md",
		Current: "one\ntwo\nthree\nfour\nfive\n",
		Updated: "one\ntwo\nTHREE\nfour\nfive\n",
	}

	want := "--- doc.md\n+++ doc.md\n two\n-three\n+THREE\n four\n"
	if diff := cmp.Diff(want, f.Diff()); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckNav_Issues(t *testing.T) {
	t.Parallel()

	root, m := setupRepo(t)
	writeFile(t, root, "docs/agents/implementation/STEP_1_BUILD.md", "# Step 1\n\nNavigation: Step 0\n")

	assert.Equal(t, []string{"docs/agents/implementation/STEP_1_BUILD.md: missing navigation line at line 3"},
		workflow.CheckNav(root, m.Steps))

	writeFile(t, root, "docs/agents/implementation/STEP_1_BUILD.md", "# Step 1\n\n**Navigation:** back\n")
	assert.Equal(t, []string{"docs/agents/implementation/STEP_1_BUILD.md: nav line missing prev Step 0"},
		workflow.CheckNav(root, m.Steps))

	require.NoError(t, os.Remove(filepath.Join(root, "docs/agents/implementation/STEP_1_BUILD.md")))

	want := []string{
		"docs/agents/implementation/STEP_0_PLAN.md: expected step file for 1 under docs/agents/implementation",
		"Missing step doc: docs/agents/implementation/STEP_1_BUILD.md",
	}
	if diff := cmp.Diff(want, workflow.CheckNav(root, m.Steps)); diff != "" {
		t.Errorf("nav issues mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_FailsOnMissingMarkers(t *testing.T) {
	t.Parallel()

	root, m := setupRepo(t)
	writeFile(t, root, m.Skill, "# Skill without markers\n")

	_, err := workflow.Generate(root, m)
	require.ErrorIs(t, err, workflow.ErrMarkers)
	assert.Contains(t, err.Error(), m.Skill)
}
