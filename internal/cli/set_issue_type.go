package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
	"github.com/LightForgeLabsStudio/AIDE/internal/labels"
)

// Errors returned by set-issue-type.
var (
	ErrIssueRequired  = errors.New("--issue is required")
	ErrTypeRequired   = errors.New("--type is required")
	ErrUnknownType    = errors.New("unknown type")
	ErrUnmappedType   = errors.New("no issue type mapping")
	ErrTypeNotApplied = errors.New("issue type not applied")
)

// SetIssueType is the set-issue-type tool.
func SetIssueType(e *Env) *Command {
	fs := flag.NewFlagSet("set-issue-type", flag.ContinueOnError)
	common := e.bindCommon(fs)

	var (
		number     int
		typeName   string
		repo       string
		configPath string
	)

	fs.IntVar(&number, "issue", 0, "Issue `N` to update")
	fs.StringVar(&typeName, "type", "", "Spec type (e.g. bug, feature, technical-debt)")
	fs.StringVarP(&repo, "repo", "R", "", "Target repository `OWNER/NAME` (default: current repo)")
	fs.StringVarP(&configPath, "config", "c", "", "Use specified config `file`")

	return &Command{
		Flags: fs,
		Usage: "set-issue-type --issue N --type T [flags]",
		Short: "Set the native issue type of one issue",
		Long: "Set the native issue type of one issue from a spec type.\n\n" +
			"Allowed types: " + issuespec.AllowedTypesString(),
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if err := e.apply(common); err != nil {
				return err
			}

			if number <= 0 {
				return ErrIssueRequired
			}

			if typeName == "" {
				return ErrTypeRequired
			}

			t := issuespec.NormalizeType(typeName)
			if !t.Valid() {
				return fmt.Errorf("%w %q; allowed: %s", ErrUnknownType, typeName, issuespec.AllowedTypesString())
			}

			cfg, err := e.loadConfig(o, configPath, false)
			if err != nil {
				return err
			}

			name, ok := labels.IssueTypeName(t, cfg.IssueTypeMapping)
			if !ok {
				return fmt.Errorf("%w for %q", ErrUnmappedType, t)
			}

			tr, err := e.tracker(ctx, repo)
			if err != nil {
				return err
			}

			if err := tr.SetIssueType(ctx, number, name); err != nil {
				return err
			}

			issue, err := tr.GetIssue(ctx, number)
			if err != nil {
				return err
			}

			if issue.IssueType != name {
				return fmt.Errorf("%w: #%d has %q, want %q", ErrTypeNotApplied, number, issue.IssueType, name)
			}

			o.OK("Set issue type of #%d: %s", number, name)

			return nil
		},
	}
}
