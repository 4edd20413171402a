// Package ghcli implements tracker.Tracker on top of the GitHub CLI.
//
// Every operation shells out to one `gh` invocation: plain subcommands for
// labels and issue create/edit/list, and `gh api graphql` for issue types,
// sub-issues and blocking relations. Authentication, host selection and
// transport are left to gh.
package ghcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes gh with the given arguments and returns its stdout.
// A non-zero exit returns the captured stdout together with a *CommandError.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// CommandError is returned when gh exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	name := "gh"
	if len(e.Args) > 0 {
		name = "gh " + e.Args[0]
	}

	if len(e.Args) > 1 && !strings.HasPrefix(e.Args[1], "-") {
		name += " " + e.Args[1]
	}

	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s failed (exit %d)", name, e.ExitCode)
	}

	return fmt.Sprintf("%s failed (exit %d): %s", name, e.ExitCode, msg)
}

// ExecRunner runs the real gh binary.
type ExecRunner struct {
	Binary string // defaults to "gh"
	Dir    string // working directory, empty for the current one
	Log    logrus.FieldLogger
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "gh"
	}

	if r.Log != nil {
		r.Log.WithField("args", debugArgs(args)).Debug("running gh")
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = r.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		exitCode := -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if stderr.Len() == 0 {
			stderr.WriteString(err.Error())
		}

		return out, &CommandError{Args: args, ExitCode: exitCode, Stderr: stderr.String()}
	}

	return out, nil
}

// debugArgs shortens multi-line GraphQL documents for log output.
func debugArgs(args []string) string {
	parts := make([]string, 0, len(args))

	for _, arg := range args {
		if strings.HasPrefix(arg, "query=") {
			arg = "query=" + strings.Join(strings.Fields(strings.TrimPrefix(arg, "query=")), " ")
			if len(arg) > 120 {
				arg = arg[:120] + "..."
			}
		}

		parts = append(parts, arg)
	}

	return strings.Join(parts, " ")
}
