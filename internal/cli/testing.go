package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

// CLI provides a clean interface for running one tool in tests.
// It manages a temp directory, environment variables, and the tracker the
// tool talks to.
type CLI struct {
	t       *testing.T
	tool    Tool
	Dir     string
	Env     map[string]string
	Tracker tracker.Tracker

	// Repos records the --repo value of every tracker the tool opened.
	Repos []string
}

// NewCLI creates a new test CLI for tool with a temp directory. Color is
// disabled so output can be matched literally.
func NewCLI(t *testing.T, tool Tool, tr tracker.Tracker) *CLI {
	t.Helper()

	return &CLI{
		t:       t,
		tool:    tool,
		Dir:     t.TempDir(),
		Env:     map[string]string{"NO_COLOR": "1"},
		Tracker: tr,
	}
}

func (r *CLI) factory(_ context.Context, _ *Env, repo string) (tracker.Tracker, error) {
	r.Repos = append(r.Repos, repo)

	return r.Tracker, nil
}

// Run executes the tool with the given args and returns stdout, stderr, and exit code.
// Args should not include the program name or "--cwd" - those are added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput("", args...)
}

// RunWithInput executes the tool with stdin and returns stdout, stderr, and exit code.
// stdin must be a string or io.Reader; panics otherwise.
func (r *CLI) RunWithInput(stdin any, args ...string) (string, string, int) {
	var inReader io.Reader
	switch v := stdin.(type) {
	case string:
		inReader = strings.NewReader(v)
	case io.Reader:
		inReader = v
	default:
		panic(fmt.Sprintf("stdin must be string or io.Reader, got %T", stdin))
	}

	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"aide", "--cwd", r.Dir}, args...)
	code := run(r.tool, inReader, &outBuf, &errBuf, fullArgs, r.Env, nil, r.factory)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the tool and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the tool and fails the test if the command succeeds.
// Also fails if stdout is not empty. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	if stdout != "" {
		r.t.Fatalf("command %v failed but stdout should be empty\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// WriteFile writes content to a file relative to Dir, creating parents.
func (r *CLI) WriteFile(rel, content string) string {
	r.t.Helper()

	path := filepath.Join(r.Dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		r.t.Fatalf("failed to create dir for %s: %v", rel, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.t.Fatalf("failed to write %s: %v", rel, err)
	}

	return path
}

// ReadFile returns the content of a file relative to Dir.
func (r *CLI) ReadFile(rel string) string {
	r.t.Helper()

	content, err := os.ReadFile(filepath.Join(r.Dir, filepath.FromSlash(rel)))
	if err != nil {
		r.t.Fatalf("failed to read %s: %v", rel, err)
	}

	return string(content)
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
