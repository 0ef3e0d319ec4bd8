package ast

import "fmt"

// Span is the source range a node was parsed from. Lines and columns are
// 1-based, offsets are 0-based byte offsets. The zero Span means "unknown".
type Span struct {
	StartLine   int `json:"start_line"   yaml:"start_line"`
	StartCol    int `json:"start_col"    yaml:"start_col"`
	StartOffset int `json:"start_offset" yaml:"start_offset"`
	EndLine     int `json:"end_line"     yaml:"end_line"`
	EndCol      int `json:"end_col"      yaml:"end_col"`
	EndOffset   int `json:"end_offset"   yaml:"end_offset"`
}

// IsZero reports whether the span carries no location.
func (span Span) IsZero() bool {
	return span == Span{}
}

// String renders "line:col", or "unknown" for a zero span.
func (span Span) String() string {
	if span.IsZero() {
		return "unknown"
	}

	return fmt.Sprintf("%d:%d", span.StartLine, span.StartCol)
}

// Cover returns the smallest span enclosing both spans. Zero spans are ignored.
func (span Span) Cover(other Span) Span {
	if span.IsZero() {
		return other
	}

	if other.IsZero() {
		return span
	}

	merged := span

	if other.StartOffset < merged.StartOffset {
		merged.StartLine, merged.StartCol, merged.StartOffset = other.StartLine, other.StartCol, other.StartOffset
	}

	if other.EndOffset > merged.EndOffset {
		merged.EndLine, merged.EndCol, merged.EndOffset = other.EndLine, other.EndCol, other.EndOffset
	}

	return merged
}
