// Package ui provides the colored status output the command layer and the
// sync engine print progress and diagnostics through. Every printer targets
// an explicit io.Writer rather than os.Stdout directly, the same
// testability shape as the teacher's printCyan/printGreen/printFaint
// helpers, generalized into a reusable type instead of a handful of
// package-level functions bound to os.Stdout.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes colored progress, warning, and error lines to Out and Err.
// The zero value is not usable; construct with New.
type Printer struct {
	Out, Err io.Writer

	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	faint  *color.Color
}

// New returns a Printer writing status to out and warnings/errors to errw.
func New(out, errw io.Writer) *Printer {
	return &Printer{
		Out:    out,
		Err:    errw,
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		faint:  color.New(color.Faint),
	}
}

// Header prints a project or section banner, e.g. the "-p" banner forall
// emits before each command invocation.
func (p *Printer) Header(format string, a ...interface{}) {
	p.cyan.Fprintf(p.Out, format, a...)
}

// Infof prints a progress line.
func (p *Printer) Infof(format string, a ...interface{}) {
	fmt.Fprintf(p.Out, format, a...)
}

// Successf prints a completion line.
func (p *Printer) Successf(format string, a ...interface{}) {
	p.green.Fprintf(p.Out, format, a...)
}

// Faintf prints a low-priority detail line.
func (p *Printer) Faintf(format string, a ...interface{}) {
	p.faint.Fprintf(p.Out, format, a...)
}

// Warnf prints a recoverable-problem line to Err.
func (p *Printer) Warnf(format string, a ...interface{}) {
	p.yellow.Fprintf(p.Err, format, a...)
}

// Errorf prints a failure line to Err.
func (p *Printer) Errorf(format string, a ...interface{}) {
	p.red.Fprintf(p.Err, format, a...)
}
