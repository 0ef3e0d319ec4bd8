// Package fragment defines the layout tree produced by code generation.
// Fragments carry no meaning about the source program; they only describe
// text, line structure and indentation.
package fragment

import (
	"fmt"
	"strings"
)

// Fragment is one of Text, Newline, Indent, Outdent, Boundary, Blank or Group.
type Fragment interface {
	isFragment()
}

// Text is literal output.
type Text string

// Newline ends the current line. Consecutive newlines collapse into one;
// use Blank for empty lines.
type Newline struct{}

// Indent raises the indentation of the lines that follow.
type Indent struct{}

// Outdent lowers the indentation of the lines that follow.
type Outdent struct{}

// Boundary marks the end of a statement, where a terminator may go.
type Boundary struct{}

// Blank requests an empty line before the next text.
type Blank struct{}

// Group is an ordered sequence of fragments.
type Group []Fragment

func (Text) isFragment()     {}
func (Newline) isFragment()  {}
func (Indent) isFragment()   {}
func (Outdent) isFragment()  {}
func (Boundary) isFragment() {}
func (Blank) isFragment()    {}
func (Group) isFragment()    {}

// Textf formats a Text fragment.
func Textf(format string, args ...any) Text {
	return Text(fmt.Sprintf(format, args...))
}

// Seq groups parts, dropping nils.
func Seq(parts ...Fragment) Group {
	out := make(Group, 0, len(parts))

	for _, part := range parts {
		if part != nil {
			out = append(out, part)
		}
	}

	return out
}

// Join places sep between items.
func Join(sep Fragment, items []Fragment) Group {
	out := make(Group, 0, len(items)*2)

	for idx, item := range items {
		if idx > 0 {
			out = append(out, sep)
		}

		out = append(out, item)
	}

	return out
}

// Statement is a statement followed by a terminator point and a line end.
func Statement(parts ...Fragment) Group {
	return append(Seq(parts...), Boundary{}, Newline{})
}

// Line is parts followed by a line end, without a terminator.
func Line(parts ...Fragment) Group {
	return append(Seq(parts...), Newline{})
}

// Body indents lines between a Newline after the opening text and an Outdent.
func Body(lines ...Fragment) Group {
	out := Group{Newline{}, Indent{}}
	out = append(out, Seq(lines...)...)

	return append(out, Outdent{})
}

// Flatten renders the text of a fragment on one line, ignoring layout.
// It is meant for fragments known to be single-line expressions and for
// debugging.
func Flatten(frag Fragment) string {
	var builder strings.Builder

	flattenInto(&builder, frag)

	return builder.String()
}

func flattenInto(builder *strings.Builder, frag Fragment) {
	switch typed := frag.(type) {
	case Text:
		builder.WriteString(string(typed))
	case Group:
		for _, part := range typed {
			flattenInto(builder, part)
		}
	case Newline, Blank:
		builder.WriteByte(' ')
	}
}

// Multiline reports whether a fragment contains a line break.
func Multiline(frag Fragment) bool {
	switch typed := frag.(type) {
	case Newline, Blank:
		return true
	case Text:
		return strings.Contains(string(typed), "\n")
	case Group:
		for _, part := range typed {
			if Multiline(part) {
				return true
			}
		}
	}

	return false
}

// Empty reports whether a fragment renders nothing.
func Empty(frag Fragment) bool {
	switch typed := frag.(type) {
	case nil:
		return true
	case Text:
		return typed == ""
	case Group:
		for _, part := range typed {
			if !Empty(part) {
				return false
			}
		}

		return true
	default:
		return false
	}
}
