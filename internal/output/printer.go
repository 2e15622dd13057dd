// Package output provides CLI output formatting utilities
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer handles formatted output to the terminal
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// NewPrinter creates a new printer with the specified color setting
func NewPrinter(useColors bool) *Printer {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		useColors = false
	}
	return &Printer{
		out:       os.Stdout,
		err:       os.Stderr,
		useColors: useColors,
	}
}

// NewPrinterWithWriters creates a printer with custom writers (for tests)
func NewPrinterWithWriters(out, err io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: err, useColors: useColors}
}

// Header prints a section header
func (p *Printer) Header(text string) {
	if p.useColors {
		color.New(color.FgCyan, color.Bold).Fprintln(p.out, text)
	} else {
		fmt.Fprintln(p.out, text)
	}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ %s\n", msg)
	} else {
		fmt.Fprintf(p.out, "✓ %s\n", msg)
	}
}

// Warning prints a warning message to stderr
func (p *Printer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ %s\n", msg)
	} else {
		fmt.Fprintf(p.err, "⚠ %s\n", msg)
	}
}

// Error prints an error message to stderr
func (p *Printer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ %s\n", msg)
	} else {
		fmt.Fprintf(p.err, "✗ %s\n", msg)
	}
}

// Info prints a plain line
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Bold returns text formatted in bold
func (p *Printer) Bold(text string) string {
	if p.useColors {
		return color.New(color.Bold).Sprint(text)
	}
	return text
}

// Dim returns text formatted dim
func (p *Printer) Dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}
