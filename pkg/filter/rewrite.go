package filter

import "github.com/Sumatoshi-tech/rb2js/pkg/ast"

// Builders used by filters to assemble replacement trees. Every builder
// takes the span of the node being replaced so errors raised later still
// point at the original source.

// Global references a JavaScript global such as Math or console.
func Global(span ast.Span, name string) *ast.Node {
	return ast.New(ast.KindConst, span, nil, ast.Name(name))
}

// MethodCall builds recv.name(args...).
func MethodCall(span ast.Span, recv *ast.Node, name string, args ...ast.Value) *ast.Node {
	children := make([]ast.Value, 0, len(args)+2)
	children = append(children, recv, ast.Name(name))
	children = append(children, args...)

	return ast.New(ast.KindSend, span, children...)
}

// Property builds recv.name without a call.
func Property(span ast.Span, recv *ast.Node, name string) *ast.Node {
	return ast.New(ast.KindAttr, span, recv, ast.Name(name))
}

// Invoke builds callee(args...) for an arbitrary callee expression.
func Invoke(span ast.Span, callee *ast.Node, args ...ast.Value) *ast.Node {
	children := make([]ast.Value, 0, len(args)+1)
	children = append(children, callee)
	children = append(children, args...)

	return ast.New(ast.KindCall, span, children...)
}

// IntLit builds an integer literal.
func IntLit(span ast.Span, value int64) *ast.Node {
	return ast.New(ast.KindInt, span, ast.Int(value))
}

// StrLit builds a string literal.
func StrLit(span ast.Span, value string) *ast.Node {
	return ast.New(ast.KindStr, span, ast.Str(value))
}

// Args returns the argument values of a send node.
func Args(send *ast.Node) []ast.Value {
	if send.Len() <= 2 {
		return nil
	}

	return send.Children()[2:]
}

// IsCallTo reports whether node is a send of method with the given argument
// count. A negative argc accepts any count.
func IsCallTo(node *ast.Node, method string, argc int) bool {
	if !node.Is(ast.KindSend) || node.NameAt(1) != ast.Name(method) {
		return false
	}

	return argc < 0 || node.Len()-2 == argc
}

// IsConst reports whether node is a top-level constant reference named name.
func IsConst(node *ast.Node, name string) bool {
	if !node.Is(ast.KindConst) || node.NameAt(1) != ast.Name(name) {
		return false
	}

	scope := node.NodeAt(0)

	return scope == nil || scope.Is(ast.KindCbase)
}
