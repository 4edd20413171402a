package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Output markers.
const (
	markOK     = "[OK]"
	markWarn   = "[WARN]"
	markError  = "[ERROR]"
	markSkip   = "[SKIP]"
	markDryRun = "[DRY-RUN]"
)

// IO handles command output. Progress markers ([OK], [DRY-RUN]) go to
// stdout; problems ([WARN], [ERROR], [SKIP]) go to stderr. Markers are
// colored only when the stream is a terminal. Warnings never change the
// exit code.
type IO struct {
	out    io.Writer
	errOut io.Writer

	ok, warn, fail, skip, dry *color.Color
}

// NewIO creates a new IO instance with colors enabled for terminal
// streams.
func NewIO(out, errOut io.Writer) *IO {
	o := &IO{
		out:    out,
		errOut: errOut,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
		skip:   color.New(color.FgCyan),
		dry:    color.New(color.FgMagenta),
	}

	o.SetColor(isTerminal(out), isTerminal(errOut))

	return o
}

// SetColor forces colors on or off per stream.
func (o *IO) SetColor(out, errOut bool) {
	for _, c := range []*color.Color{o.ok, o.dry} {
		toggle(c, out)
	}

	for _, c := range []*color.Color{o.warn, o.fail, o.skip} {
		toggle(c, errOut)
	}
}

func toggle(c *color.Color, on bool) {
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// stderr returns a copy of o whose stdout is o's stderr.
func (o *IO) stderr() *IO {
	c := *o
	c.out = o.errOut

	return &c
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// OK reports a completed change.
func (o *IO) OK(format string, a ...any) {
	o.mark(o.out, o.ok, markOK, format, a...)
}

// DryRun reports a change that would be made.
func (o *IO) DryRun(format string, a ...any) {
	o.mark(o.out, o.dry, markDryRun, format, a...)
}

// Warn reports a problem the run recovered from.
func (o *IO) Warn(format string, a ...any) {
	o.mark(o.errOut, o.warn, markWarn, format, a...)
}

// Skip reports an item that was left alone.
func (o *IO) Skip(format string, a ...any) {
	o.mark(o.errOut, o.skip, markSkip, format, a...)
}

// Error reports a fatal error.
func (o *IO) Error(format string, a ...any) {
	o.mark(o.errOut, o.fail, markError, format, a...)
}

func (o *IO) mark(w io.Writer, c *color.Color, marker, format string, a ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", c.Sprint(marker), fmt.Sprintf(format, a...))
}
