package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/LightForgeLabsStudio/AIDE/internal/issuespec"
	"github.com/LightForgeLabsStudio/AIDE/internal/reconcile"
)

// Errors returned while resolving issue-creator arguments.
var (
	ErrConflictingModes = errors.New("conflicting modes")
	ErrInvalidNumber    = errors.New("issue number must be positive")
	ErrTooManyArgs      = errors.New("too many arguments")
	ErrUnexpectedSpec   = errors.New("link modes do not read a spec")
)

const issueCreatorLong = `Batch create or update GitHub issues with Epic/child relationships.

Reads a spec file (or stdin) of sections separated by "---" lines or
"## Issue:" headings. Each section becomes one issue; non-epic sections need
a "type:" line. Issues are matched by issue_number, then by exact title, and
created otherwise. Parent and blocked-by links are set once every issue in
the batch exists.

Examples:
  issue-creator specs.md
  issue-creator specs.md --update 171
  issue-creator specs.md --update-epic 170
  issue-creator specs.md --update-auto
  issue-creator new_child.md --add-child 170
  issue-creator specs.md --sync-types 12,13,14
  issue-creator --link-blocker 10:5 --link-child 3:10
  cat specs.md | issue-creator`

type issueCreatorFlags struct {
	config      string
	repo        string
	printConfig bool

	update         int
	updateEpic     int
	updateAuto     bool
	updateBlockers bool
	addChild       int
	syncTypes      string
	linkBlockers   []string
	linkChildren   []string
}

// IssueCreator is the issue-creator tool.
func IssueCreator(e *Env) *Command {
	fs := flag.NewFlagSet("issue-creator", flag.ContinueOnError)
	common := e.bindCommon(fs)

	var f issueCreatorFlags

	fs.StringVarP(&f.config, "config", "c", "", "Use specified config `file`")
	fs.StringVarP(&f.repo, "repo", "R", "", "Target repository `OWNER/NAME` (default: current repo)")
	fs.BoolVar(&f.printConfig, "print-config", false, "Show resolved configuration and exit")
	fs.IntVar(&f.update, "update", 0, "Update issue `N` from the first spec")
	fs.IntVar(&f.updateEpic, "update-epic", 0, "Update Epic `N` and its children (matched by order)")
	fs.BoolVar(&f.updateAuto, "update-auto", false, "Update issues with issue_number, create the rest")
	fs.BoolVar(&f.updateBlockers, "update-blockers", false, "Only link blocked_by relations of existing issues")
	fs.IntVar(&f.addChild, "add-child", 0, "Create the first spec and link it to Epic `N`")
	fs.StringVar(&f.syncTypes, "sync-types", "", "Set issue types of `N,N,...` from specs by position")
	fs.StringArrayVar(&f.linkBlockers, "link-blocker", nil, "Mark A blocked by B (`A:B`, repeatable)")
	fs.StringArrayVar(&f.linkChildren, "link-child", nil, "Add B as sub-issue of A (`A:B`, repeatable)")

	cmd := &Command{
		Flags: fs,
		Usage: "issue-creator [flags] [spec-file]",
		Short: "Batch create or update GitHub issues",
		Long:  issueCreatorLong,
	}

	cmd.Exec = func(ctx context.Context, o *IO, args []string) error {
		if err := e.apply(common); err != nil {
			return err
		}

		if f.printConfig {
			return execPrintConfig(e, o, f.config)
		}

		commands, err := resolveCommands(fs, f)
		if err != nil {
			return err
		}

		return execIssueCreator(ctx, e, o, cmd, f, commands, args)
	}

	return cmd
}

// resolveCommands turns the mode flags into engine commands. Only the two
// link modes may be combined; children are linked before blockers.
func resolveCommands(fs *flag.FlagSet, f issueCreatorFlags) ([]reconcile.Command, error) {
	var (
		modes    []string
		commands []reconcile.Command
	)

	number := func(name string, n int) error {
		if n <= 0 {
			return fmt.Errorf("%w: --%s %d", ErrInvalidNumber, name, n)
		}

		return nil
	}

	if fs.Changed("update") {
		if err := number("update", f.update); err != nil {
			return nil, err
		}

		modes = append(modes, "--update")
		commands = append(commands, reconcile.UpdateSingle{Number: f.update})
	}

	if fs.Changed("update-epic") {
		if err := number("update-epic", f.updateEpic); err != nil {
			return nil, err
		}

		modes = append(modes, "--update-epic")
		commands = append(commands, reconcile.UpdateEpic{Number: f.updateEpic})
	}

	if f.updateAuto {
		modes = append(modes, "--update-auto")
		commands = append(commands, reconcile.UpdateAuto{})
	}

	if f.updateBlockers {
		modes = append(modes, "--update-blockers")
		commands = append(commands, reconcile.UpdateBlockers{})
	}

	if fs.Changed("add-child") {
		if err := number("add-child", f.addChild); err != nil {
			return nil, err
		}

		modes = append(modes, "--add-child")
		commands = append(commands, reconcile.AddChild{Epic: f.addChild})
	}

	if fs.Changed("sync-types") {
		numbers, err := reconcile.ParseNumbers(f.syncTypes)
		if err != nil {
			return nil, err
		}

		modes = append(modes, "--sync-types")
		commands = append(commands, reconcile.SyncTypes{Numbers: numbers})
	}

	if len(f.linkBlockers) > 0 || len(f.linkChildren) > 0 {
		children, err := reconcile.ParsePairs(f.linkChildren)
		if err != nil {
			return nil, err
		}

		blockers, err := reconcile.ParsePairs(f.linkBlockers)
		if err != nil {
			return nil, err
		}

		modes = append(modes, "--link-blocker/--link-child")

		if len(children) > 0 {
			commands = append(commands, reconcile.LinkChildren{Pairs: children})
		}

		if len(blockers) > 0 {
			commands = append(commands, reconcile.LinkBlockers{Pairs: blockers})
		}
	}

	if len(modes) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrConflictingModes, strings.Join(modes, ", "))
	}

	if len(commands) == 0 {
		commands = []reconcile.Command{reconcile.Create{}}
	}

	return commands, nil
}

func execIssueCreator(ctx context.Context, e *Env, o *IO, cmd *Command, f issueCreatorFlags,
	commands []reconcile.Command, args []string,
) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: %s", ErrTooManyArgs, strings.Join(args[1:], " "))
	}

	needsRecords := commands[0].NeedsRecords()

	if !needsRecords && len(args) > 0 {
		return fmt.Errorf("%w: %s", ErrUnexpectedSpec, args[0])
	}

	var doc string

	if needsRecords {
		text, ok, err := readSpec(e, args)
		if err != nil {
			return err
		}

		if !ok {
			cmd.PrintHelp(o)

			return nil
		}

		doc = text
	}

	cfg, err := e.loadConfig(o, f.config, needsRecords)
	if err != nil {
		return err
	}

	var records []issuespec.Record

	if needsRecords {
		records, err = issuespec.Parse(doc, issuespec.Options{
			DefaultPriority: cfg.DefaultPriority,
			AreaKeywords:    cfg.AreaKeywords,
		})
		if err != nil {
			return err
		}

		if len(records) == 0 {
			return reconcile.ErrNoRecords
		}
	}

	tr, err := e.tracker(ctx, f.repo)
	if err != nil {
		return err
	}

	engine := reconcile.New(tr, cfg, o, e.Log)

	var total reconcile.Summary

	for _, c := range commands {
		sum, err := engine.Run(ctx, c, records)
		total = total.Add(sum)

		if err != nil {
			o.ErrPrintln(total.String())

			return err
		}
	}

	o.Println(total.String())

	return nil
}

// readSpec returns the spec document from the file argument or stdin. ok
// is false when there is no file and stdin is an interactive terminal.
func readSpec(e *Env, args []string) (string, bool, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(e.abs(args[0]))
		if err != nil {
			return "", false, fmt.Errorf("reading spec: %w", err)
		}

		return string(data), true, nil
	}

	if e.In == nil || e.stdinIsTerminal() {
		return "", false, nil
	}

	data, err := io.ReadAll(e.In)
	if err != nil {
		return "", false, fmt.Errorf("reading stdin: %w", err)
	}

	return string(data), true, nil
}
