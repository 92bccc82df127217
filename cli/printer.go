package cli

import (
	"fmt"
	"golang.org/x/term"
	"io"
	"os"
)

// Printer writes user-visible output, which goes to STDERR by default.
type Printer struct {
	out io.Writer
}

func NewPrinter() *Printer {
	return &Printer{out: os.Stderr}
}

func (p *Printer) Redirect(writer io.Writer) {
	p.out = writer
}

// Write allows a [Printer] to be used as an [io.Writer].
func (p *Printer) Write(data []byte) (int, error) {
	return p.out.Write(data)
}

// IsTerminal reports whether output is going to a terminal, so that richer formatting may be used.
func (p *Printer) IsTerminal() bool {
	f, ok := p.out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (p *Printer) Print(msg ...any) {
	_, _ = fmt.Fprint(p.out, msg...)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(msg ...any) {
	_, _ = fmt.Fprintln(p.out, msg...)
}
