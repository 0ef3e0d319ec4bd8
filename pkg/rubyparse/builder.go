package rubyparse

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/safeconv"
)

// locals is one lexical scope. Method, class and module bodies are hard
// boundaries; blocks see the locals of the scopes around them.
type locals struct {
	names map[string]bool
	hard  bool
}

// builder converts one tree-sitter tree. The first error sticks: later
// conversions return nil and Parse reports err.
type builder struct {
	err    error
	file   string
	src    []byte
	scopes []locals
}

func newBuilder(file string, src []byte) *builder {
	return &builder{file: file, src: src, scopes: []locals{{names: make(map[string]bool), hard: true}}}
}

func (bld *builder) fail(node sitter.Node, err error) *ast.Node {
	if bld.err == nil {
		bld.err = &SyntaxError{Err: err, File: bld.file, Span: spanOf(node), Snippet: snippet(node, bld.src)}
	}

	return nil
}

func (bld *builder) unsupported(node sitter.Node) *ast.Node {
	return bld.fail(node, ErrUnsupported)
}

func (bld *builder) pushScope(hard bool) {
	bld.scopes = append(bld.scopes, locals{names: make(map[string]bool), hard: hard})
}

func (bld *builder) popScope() {
	bld.scopes = bld.scopes[:len(bld.scopes)-1]
}

func (bld *builder) declare(name string) {
	bld.scopes[len(bld.scopes)-1].names[name] = true
}

func (bld *builder) isLocal(name string) bool {
	for idx := len(bld.scopes) - 1; idx >= 0; idx-- {
		if bld.scopes[idx].names[name] {
			return true
		}

		if bld.scopes[idx].hard {
			return false
		}
	}

	return false
}

func (bld *builder) text(node sitter.Node) string {
	return node.Content(bld.src)
}

func spanOf(node sitter.Node) ast.Span {
	start, end := node.StartPoint(), node.EndPoint()

	return ast.Span{
		StartLine:   safeconv.MustUintToInt(start.Row) + 1,
		StartCol:    safeconv.MustUintToInt(start.Column) + 1,
		StartOffset: safeconv.MustUintToInt(node.StartByte()),
		EndLine:     safeconv.MustUintToInt(end.Row) + 1,
		EndCol:      safeconv.MustUintToInt(end.Column) + 1,
		EndOffset:   safeconv.MustUintToInt(node.EndByte()),
	}
}

// field returns the child stored under a grammar field name.
func field(node sitter.Node, name string) (sitter.Node, bool) {
	child := node.ChildByFieldName(name)

	return child, !child.IsNull()
}

func skipped(node sitter.Node) bool {
	switch node.Type() {
	case "comment", "heredoc_body", "empty_statement":
		return true
	default:
		return false
	}
}

// named returns the named children without comments.
func named(node sitter.Node) []sitter.Node {
	children := make([]sitter.Node, 0, node.NamedChildCount())

	for idx := range node.NamedChildCount() {
		child := node.NamedChild(idx)
		if !skipped(child) {
			children = append(children, child)
		}
	}

	return children
}

// hasToken reports whether node has an anonymous child spelled token.
func hasToken(node sitter.Node, token string) bool {
	for idx := range node.ChildCount() {
		child := node.Child(idx)
		if !child.IsNamed() && child.Type() == token {
			return true
		}
	}

	return false
}

func sameNode(left, right sitter.Node) bool {
	return left.StartByte() == right.StartByte() && left.EndByte() == right.EndByte() && left.Type() == right.Type()
}

func (bld *builder) node(kind ast.Kind, origin sitter.Node, children ...ast.Value) *ast.Node {
	return ast.New(kind, spanOf(origin), children...)
}

// sequence folds statements the way the parser gem does: nothing is nil,
// one statement stands alone, several become a begin.
func (bld *builder) sequence(origin sitter.Node, statements []ast.Value) *ast.Node {
	switch len(statements) {
	case 0:
		return nil
	case 1:
		single, _ := statements[0].(*ast.Node)

		return single
	default:
		return bld.node(ast.KindBegin, origin, statements...)
	}
}

func (bld *builder) statementList(nodes []sitter.Node) []ast.Value {
	statements := make([]ast.Value, 0, len(nodes))

	for _, child := range nodes {
		statement := bld.expr(child)
		if bld.err != nil {
			return nil
		}

		statements = append(statements, statement)
	}

	return statements
}

// statements converts the named children of a statement container.
func (bld *builder) statements(container sitter.Node) *ast.Node {
	if container.IsNull() {
		return nil
	}

	return bld.sequence(container, bld.statementList(named(container)))
}

// program converts the root. The result is always a begin so callers can
// rely on one shape.
func (bld *builder) program(root sitter.Node) *ast.Node {
	statements := bld.statementList(named(root))
	if bld.err != nil {
		return nil
	}

	return bld.node(ast.KindBegin, root, statements...)
}
