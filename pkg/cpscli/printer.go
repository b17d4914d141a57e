// Package cpscli implements the output formatting cmd/funcps's
// subcommands share: ANSI-coloured diagnostics when stdout is a real
// terminal, plain text otherwise, grounded on
// _examples/funvibe-funxy/internal/evaluator/builtins_term.go's
// go-isatty gating of terminal-only rendering, and human-readable
// checkpoint ages via github.com/dustin/go-humanize.
package cpscli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/funvibe/funcps/internal/checkpoint"
)

// ANSI colour codes, used only when Printer.color decides output is a
// real terminal.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorDim   = "\033[2m"
)

// Printer formats diagnostics and checkpoint listings for cmd/funcps.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter builds a Printer writing to out. mode mirrors
// config.Config.Color: "always" and "never" force colour on/off,
// anything else ("auto", "") defers to IsTerminal(out).
func NewPrinter(out io.Writer, mode string) *Printer {
	switch mode {
	case "always":
		return &Printer{out: out, color: true}
	case "never":
		return &Printer{out: out, color: false}
	default:
		return &Printer{out: out, color: IsTerminal(out)}
	}
}

// IsTerminal reports whether w is a real terminal, the same
// isatty.IsTerminal/IsCygwinTerminal pairing builtins_term.go uses so
// Windows' Cygwin ttys are recognised too.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) colorize(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + colorReset
}

// Error prints a compile diagnostic in red, prefixed with the function it
// came from.
func (p *Printer) Error(funcName string, err error) {
	fmt.Fprintf(p.out, "%s: %s\n", funcName, p.colorize(colorRed, err.Error()))
}

// Success prints a green confirmation line (e.g. "compiled add_and_checkpoint").
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.colorize(colorGreen, msg))
}

// Listing prints one checkpoint row in `funcps checkpoint list`'s table:
// ID, owning function, and a humanised age ("3m ago") instead of a raw
// timestamp.
func (p *Printer) Listing(l checkpoint.Listing, now time.Time) {
	age := p.colorize(colorDim, humanize.RelTime(l.CreatedAt, now, "ago", "from now"))
	fmt.Fprintf(p.out, "%s  %-24s  %s\n", l.ID, l.FuncName, age)
}
