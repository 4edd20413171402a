package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/LightForgeLabsStudio/AIDE/internal/workflow"
)

var errWriteAndCheck = errors.New("Use only one of --write or --check")

const workflowGenLong = `Regenerate the implementation workflow blocks from the manifest.

Rewrites the marked steps block of the one-pager and the workflow block of
the skill file. Files are updated in place unless --check is given, which
exits 1 and prints a diff when any file is out of date.`

// WorkflowGen is the workflow-gen tool.
func WorkflowGen(e *Env) *Command {
	fs := flag.NewFlagSet("workflow-gen", flag.ContinueOnError)
	common := e.bindCommon(fs)

	var (
		manifest string
		write    bool
		check    bool
	)

	fs.StringVar(&manifest, "manifest", workflow.DefaultManifestPath, "Manifest `file` (JSON or YAML)")
	fs.BoolVar(&write, "write", false, "Write the updated files (default)")
	fs.BoolVar(&check, "check", false, "Fail if any file is out of date")

	return &Command{
		Flags: fs,
		Usage: "workflow-gen [--write | --check] [flags]",
		Short: "Regenerate workflow docs from the manifest",
		Long:  workflowGenLong,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if err := e.apply(common); err != nil {
				return err
			}

			if write && check {
				return &exitError{code: 2, err: errWriteAndCheck}
			}

			if len(args) > 0 {
				return &exitError{code: 2, err: ErrTooManyArgs}
			}

			root := e.WorkDir()

			m, err := workflow.LoadManifest(e.abs(manifest))
			if err != nil {
				return err
			}

			result, err := workflow.Generate(root, m)
			if err != nil {
				return err
			}

			if check {
				return workflowCheck(o, result)
			}

			return workflowWrite(o, root, result)
		},
	}
}

func workflowCheck(o *IO, result workflow.Result) error {
	if result.UpToDate() {
		o.Println("workflow-gen: up to date")

		return nil
	}

	o.ErrPrintln("workflow-gen check failed. Updates required:")

	for _, path := range result.Changed() {
		o.ErrPrintln("- " + path)
	}

	for _, issue := range result.NavIssues {
		o.ErrPrintln("- " + issue)
	}

	for _, f := range result.Files {
		if f.Changed() {
			o.ErrPrintln(f.Diff())
		}
	}

	return &exitError{code: 1}
}

func workflowWrite(o *IO, root string, result workflow.Result) error {
	written, err := workflow.Write(root, result)
	if err != nil {
		return err
	}

	for _, path := range written {
		o.OK("Updated %s", path)
	}

	for _, issue := range result.NavIssues {
		o.Warn("%s", issue)
	}

	if len(written) == 0 {
		o.Println("workflow-gen: up to date")
	}

	return nil
}
