// Package serialize renders fragment trees to text.
package serialize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
)

// Sentinel errors wrapped by SerializationError.
var (
	ErrNegativeIndent   = errors.New("indentation below zero")
	ErrUnbalancedIndent = errors.New("indentation not closed")
	ErrUnknownFragment  = errors.New("unknown fragment type")
)

// SerializationError reports a fragment tree that violates layout
// invariants. Well-formed generator output never produces one.
type SerializationError struct {
	Err  error
	Line int
}

func (serErr *SerializationError) Error() string {
	return fmt.Sprintf("serialize: line %d: %v", serErr.Line, serErr.Err)
}

func (serErr *SerializationError) Unwrap() error {
	return serErr.Err
}

// Options control layout.
type Options struct {
	IndentWidth   int
	MaxBlankLines int
	UseTabs       bool
	Semicolons    bool
	FinalNewline  bool
}

// DefaultOptions returns two-space indentation with semicolons and at most
// one blank line in a row.
func DefaultOptions() Options {
	return Options{IndentWidth: 2, MaxBlankLines: 1, Semicolons: true, FinalNewline: true}
}

type writer struct {
	out          strings.Builder
	indentUnit   string
	opts         Options
	level        int
	line         int
	pendingBlank int
	atLineStart  bool
}

// Render walks frag and returns the text.
func Render(frag fragment.Fragment, opts Options) (string, error) {
	out := &writer{opts: opts, atLineStart: true, line: 1}

	if opts.UseTabs {
		out.indentUnit = "\t"
	} else {
		out.indentUnit = strings.Repeat(" ", max(opts.IndentWidth, 0))
	}

	if err := out.write(frag); err != nil {
		return "", err
	}

	if out.level != 0 {
		return "", &SerializationError{Err: fmt.Errorf("%w: %d levels open", ErrUnbalancedIndent, out.level), Line: out.line}
	}

	if !opts.FinalNewline {
		return strings.TrimSuffix(out.out.String(), "\n"), nil
	}

	if !out.atLineStart {
		out.out.WriteByte('\n')
	}

	return out.out.String(), nil
}

func (out *writer) write(frag fragment.Fragment) error {
	switch typed := frag.(type) {
	case nil:
		return nil
	case fragment.Text:
		out.text(string(typed))
	case fragment.Newline:
		out.newline()
	case fragment.Blank:
		out.blank()
	case fragment.Boundary:
		if out.opts.Semicolons && !out.atLineStart {
			out.out.WriteByte(';')
		}
	case fragment.Indent:
		out.level++
	case fragment.Outdent:
		out.level--
		if out.level < 0 {
			return &SerializationError{Err: ErrNegativeIndent, Line: out.line}
		}
	case fragment.Group:
		for _, part := range typed {
			if err := out.write(part); err != nil {
				return err
			}
		}
	default:
		return &SerializationError{Err: fmt.Errorf("%w: %T", ErrUnknownFragment, frag), Line: out.line}
	}

	return nil
}

func (out *writer) text(text string) {
	if text == "" {
		return
	}

	if out.atLineStart {
		out.flushBlanks()
		out.out.WriteString(strings.Repeat(out.indentUnit, out.level))
		out.atLineStart = false
	}

	out.out.WriteString(text)
	out.line += strings.Count(text, "\n")
}

func (out *writer) newline() {
	if out.atLineStart {
		return
	}

	out.out.WriteByte('\n')
	out.atLineStart = true
	out.line++
}

// blank records a request for an empty line. Requests are honoured lazily,
// so blank lines at the start or end of output are dropped.
func (out *writer) blank() {
	out.newline()

	if out.pendingBlank < out.opts.MaxBlankLines {
		out.pendingBlank++
	}
}

func (out *writer) flushBlanks() {
	if out.out.Len() > 0 {
		for range out.pendingBlank {
			out.out.WriteByte('\n')
			out.line++
		}
	}

	out.pendingBlank = 0
}
