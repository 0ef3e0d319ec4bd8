package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

// spanError is implemented by errors that know where they occurred.
type spanError interface {
	ErrorSpan() ast.Span
}

// diagnostic styles. Each printer carries its own color switch so callers
// never touch color.NoColor.
type diagnostic struct {
	label  *color.Color
	gutter *color.Color
	caret  *color.Color
}

func newDiagnostic(colorize bool) diagnostic {
	diag := diagnostic{
		label:  color.New(color.FgRed, color.Bold),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgRed, color.Bold),
	}

	for _, style := range []*color.Color{diag.label, diag.gutter, diag.caret} {
		if colorize {
			style.EnableColor()
		} else {
			style.DisableColor()
		}
	}

	return diag
}

// errorSpan returns the source location an error carries, if any.
func errorSpan(err error) ast.Span {
	var stageErr *transpile.Error
	if errors.As(err, &stageErr) && !stageErr.Span.IsZero() {
		return stageErr.Span
	}

	var located spanError
	if errors.As(err, &located) {
		return located.ErrorSpan()
	}

	return ast.Span{}
}

// render writes err followed by a caret snippet of the offending source
// line when the error is located and src covers it.
func (diag diagnostic) render(out io.Writer, name string, src []byte, err error) {
	span := errorSpan(err)

	diag.label.Fprint(out, "error")
	fmt.Fprintf(out, ": %v\n", err)

	line, ok := sourceLine(src, span.StartLine)
	if span.IsZero() || !ok {
		return
	}

	number := strconv.Itoa(span.StartLine)
	pad := strings.Repeat(" ", len(number))

	diag.gutter.Fprintf(out, "%s--> ", pad)
	fmt.Fprintf(out, "%s:%d:%d\n", name, span.StartLine, span.StartCol)
	diag.gutter.Fprintf(out, "%s |\n", pad)
	diag.gutter.Fprintf(out, "%s | ", number)
	fmt.Fprintln(out, line)
	diag.gutter.Fprintf(out, "%s | ", pad)
	fmt.Fprint(out, strings.Repeat(" ", max(span.StartCol-1, 0)))
	diag.caret.Fprintln(out, strings.Repeat("^", caretWidth(span, len(line))))
}

// caretWidth underlines the span on its first line, at least one column.
func caretWidth(span ast.Span, lineLen int) int {
	width := lineLen - span.StartCol + 1
	if span.EndLine == span.StartLine {
		width = min(width, span.EndCol-span.StartCol)
	}

	return max(width, 1)
}

// sourceLine returns the 1-based line of src without its terminator.
func sourceLine(src []byte, number int) (string, bool) {
	if number < 1 {
		return "", false
	}

	for idx, line := range bytes.Split(src, []byte("\n")) {
		if idx == number-1 {
			return strings.TrimRight(string(line), "\r"), true
		}
	}

	return "", false
}

// colorFlags selects colored diagnostics.
type colorFlags struct {
	force   bool
	disable bool
}

func (flags *colorFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flags.force, "color", false, "force colored output")
	cmd.Flags().BoolVar(&flags.disable, "no-color", false, "disable colored output")
}

// enabled resolves the flags against terminal detection.
func (flags *colorFlags) enabled() bool {
	switch {
	case flags.disable:
		return false
	case flags.force:
		return true
	default:
		return !color.NoColor
	}
}
