package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/LightForgeLabsStudio/AIDE/internal/migrate"
	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

// ErrInvalidState is returned for a --state outside open, closed, all.
var ErrInvalidState = errors.New("invalid state")

const migrateLong = `Migrate legacy type labels (bug, enhancement, technical-debt, documentation,
testing, chore) to native issue types.

Dry run by default: prints the planned changes. With --apply each issue gets
its issue type set and the legacy labels removed. Issues carrying more than
one legacy type label are skipped.`

// MigrateTypeLabels is the migrate-type-labels tool.
func MigrateTypeLabels(e *Env) *Command {
	fs := flag.NewFlagSet("migrate-type-labels", flag.ContinueOnError)
	common := e.bindCommon(fs)

	var (
		repo       string
		configPath string
		state      string
		limit      int
		apply      bool
		yes        bool
	)

	fs.StringVarP(&repo, "repo", "R", "", "Target repository `OWNER/NAME` (default: current repo)")
	fs.StringVarP(&configPath, "config", "c", "", "Use specified config `file`")
	fs.StringVar(&state, "state", string(tracker.StateAll), "Issues to scan: open, closed or all")
	fs.IntVar(&limit, "limit", 0, "Scan at most `N` issues (0 for all)")
	fs.BoolVar(&apply, "apply", false, "Apply changes (default is dry run)")
	fs.BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return &Command{
		Flags: fs,
		Usage: "migrate-type-labels [flags]",
		Short: "Migrate legacy type labels to issue types",
		Long:  migrateLong,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := e.apply(common); err != nil {
				return err
			}

			if len(args) > 0 {
				return fmt.Errorf("%w: %v", ErrTooManyArgs, args)
			}

			st := tracker.State(state)
			if !st.Valid() {
				return fmt.Errorf("%w: %q (want open, closed or all)", ErrInvalidState, state)
			}

			if limit < 0 {
				return fmt.Errorf("%w: %d", migrate.ErrInvalidLimit, limit)
			}

			cfg, err := e.loadConfig(o, configPath, false)
			if err != nil {
				return err
			}

			if apply && !yes && e.stdinIsTerminal() {
				ok, err := e.confirm("Apply issue type migration? [y/N]: ")
				if err != nil {
					return err
				}

				if !ok {
					o.Println("Cancelled.")

					return nil
				}
			}

			tr, err := e.tracker(ctx, repo)
			if err != nil {
				return err
			}

			report, err := migrate.Run(ctx, tr, migrate.Options{
				State:   st,
				Limit:   limit,
				Apply:   apply,
				Mapping: cfg.IssueTypeMapping,
			}, o)
			if err != nil {
				return err
			}

			if !apply {
				o.DryRun("%s", report.String(false))
				o.Println("Re-run with --apply to execute.")

				return nil
			}

			o.Println("[DONE] " + report.String(true))

			return nil
		},
	}
}
