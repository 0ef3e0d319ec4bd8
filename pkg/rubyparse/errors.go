package rubyparse

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Sentinel errors.
var (
	ErrSyntax      = errors.New("syntax error")
	ErrUnsupported = errors.New("unsupported syntax")
	ErrNoRoot      = errors.New("parser produced no root node")
	ErrBadNumber   = errors.New("malformed number literal")
)

// SyntaxError locates a parse failure or a construct the front end does
// not translate into a tree.
type SyntaxError struct {
	Err     error
	File    string
	Snippet string
	Span    ast.Span
}

func (syntaxErr *SyntaxError) Error() string {
	location := syntaxErr.Span.String()
	if syntaxErr.File != "" {
		location = syntaxErr.File + ":" + location
	}

	if syntaxErr.Snippet == "" {
		return fmt.Sprintf("%s: %v", location, syntaxErr.Err)
	}

	return fmt.Sprintf("%s: %v near %q", location, syntaxErr.Err, syntaxErr.Snippet)
}

func (syntaxErr *SyntaxError) Unwrap() error {
	return syntaxErr.Err
}

// ErrorSpan returns where the error occurred.
func (syntaxErr *SyntaxError) ErrorSpan() ast.Span {
	return syntaxErr.Span
}
