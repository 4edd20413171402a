package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/LightForgeLabsStudio/AIDE/internal/config"
	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
	"github.com/LightForgeLabsStudio/AIDE/internal/tracker/ghcli"
)

// Tool builds the command of one binary.
type Tool func(e *Env) *Command

// TrackerFactory opens the tracker for repo ("" for the repository of the
// working directory).
type TrackerFactory func(ctx context.Context, e *Env, repo string) (tracker.Tracker, error)

// Env is the process state a command runs against.
type Env struct {
	In   io.Reader
	Vars map[string]string
	Log  *logrus.Logger

	cwd        string
	newTracker TrackerFactory
	confirm    func(prompt string) (bool, error)
}

// Run is the main entry point shared by all binaries. Returns exit code.
// A signal on sigCh cancels the running command.
func Run(tool Tool, in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	return run(tool, in, out, errOut, args, env, sigCh, nil)
}

func run(tool Tool, in io.Reader, out, errOut io.Writer, args []string, env map[string]string,
	sigCh <-chan os.Signal, newTracker TrackerFactory,
) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if newTracker == nil {
		newTracker = ghTracker
	}

	e := &Env{
		In:         in,
		Vars:       env,
		Log:        newLogger(errOut),
		newTracker: newTracker,
		confirm:    linerConfirm,
	}

	o := NewIO(out, errOut)
	if _, ok := env["NO_COLOR"]; ok {
		o.SetColor(false, false)
	}

	if len(args) == 0 {
		args = []string{"aide"}
	}

	return tool(e).Run(ctx, o, args[1:])
}

// newLogger returns the diagnostic logger. It stays quiet until --verbose
// raises the level.
func newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.Out = w
	log.Level = logrus.WarnLevel
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true}

	return log
}

// commonFlags are registered on every command.
type commonFlags struct {
	cwd     string
	verbose bool
}

func (e *Env) bindCommon(fs *flag.FlagSet) *commonFlags {
	var c commonFlags

	fs.StringVarP(&c.cwd, "cwd", "C", "", "Run as if started in `dir`")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "Log every gh invocation")

	return &c
}

// apply resolves the working directory and log level after parsing.
func (e *Env) apply(c *commonFlags) error {
	if c.verbose {
		e.Log.SetLevel(logrus.DebugLevel)
	}

	if c.cwd != "" {
		e.cwd = c.cwd

		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot get working directory: %w", err)
	}

	e.cwd = wd

	return nil
}

// WorkDir returns the directory relative paths resolve against.
func (e *Env) WorkDir() string {
	return e.cwd
}

// abs resolves path against the working directory.
func (e *Env) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(e.cwd, path)
}

// loadConfig loads the tool configuration and warns when none is found.
func (e *Env) loadConfig(o *IO, path string, warnMissing bool) (config.Config, error) {
	cfg, err := config.Load(config.LoadInput{WorkDir: e.cwd, ConfigPath: path})
	if err != nil {
		return config.Config{}, err
	}

	if cfg.Source == "" {
		if warnMissing {
			o.Warn("No config found, using defaults (no area inference)")
		}
	} else {
		e.Log.WithField("path", cfg.Source).Debug("loaded config")
	}

	return cfg, nil
}

func (e *Env) tracker(ctx context.Context, repo string) (tracker.Tracker, error) {
	return e.newTracker(ctx, e, repo)
}

// stdinIsTerminal reports whether standard input is interactive.
func (e *Env) stdinIsTerminal() bool {
	return isTerminal(e.In)
}

func ghTracker(ctx context.Context, e *Env, repoFlag string) (tracker.Tracker, error) {
	runner := ghcli.ExecRunner{Dir: e.cwd, Log: e.Log}

	var (
		repo ghcli.Repo
		err  error
	)

	if repoFlag != "" {
		repo, err = ghcli.ParseRepo(repoFlag)
	} else {
		repo, err = ghcli.DetectRepo(ctx, runner)
	}

	if err != nil {
		return nil, err
	}

	e.Log.WithField("repo", repo.String()).Debug("using repository")

	return ghcli.New(runner, repo, e.Log), nil
}

// linerConfirm asks a yes/no question on the terminal.
func linerConfirm(prompt string) (bool, error) {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)

	answer, err := state.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return false, nil
		}

		return false, err
	}

	answer = strings.TrimSpace(strings.ToLower(answer))

	return answer == "yes" || answer == "y", nil
}
