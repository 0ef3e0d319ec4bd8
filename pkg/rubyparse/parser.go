// Package rubyparse is a Ruby front end built on tree-sitter. It produces
// ast trees in the s-expression shape the filters and the converter expect.
package rubyparse

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexaandru/go-sitter-forest/ruby"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Parser parses Ruby source. It is safe for concurrent use: every call
// borrows its own tree-sitter parser from a pool.
type Parser struct {
	pool sync.Pool
}

// New creates a parser for the Ruby grammar.
func New() *Parser {
	lang := sitter.NewLanguage(ruby.GetLanguage())

	return &Parser{pool: sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}}
}

// Parse turns src into a tree rooted at a begin node holding the top-level
// statements. name is used in error messages only.
func (parser *Parser) Parse(ctx context.Context, name string, src []byte) (*ast.Node, error) {
	tsParser, ok := parser.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, ErrNoRoot
	}

	defer parser.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, ErrNoRoot
	}

	if bad, found := firstError(root); found {
		return nil, &SyntaxError{Err: ErrSyntax, File: name, Span: spanOf(bad), Snippet: snippet(bad, src)}
	}

	bld := newBuilder(name, src)
	program := bld.program(root)

	if bld.err != nil {
		return nil, bld.err
	}

	return program, nil
}

// firstError finds the first ERROR or MISSING node in pre-order.
func firstError(node sitter.Node) (sitter.Node, bool) {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node, true
	}

	for idx := range node.ChildCount() {
		if bad, found := firstError(node.Child(idx)); found {
			return bad, true
		}
	}

	return sitter.Node{}, false
}

const maxSnippet = 40

func snippet(node sitter.Node, src []byte) string {
	text := node.Content(src)
	if len(text) > maxSnippet {
		text = text[:maxSnippet]
	}

	return text
}
