// Package filter implements the tree rewriting pipeline that runs between
// parsing and code generation.
//
// A Filter is a named bundle of handlers keyed by node kind. A Table is
// built once from a Catalog and an activation list, then applied to any
// number of trees in a single depth-first traversal each.
package filter

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Handler rewrites one node. It must always return a node; returning the
// input unchanged is a no-op.
type Handler func(node *ast.Node, ctx *Context) (Result, error)

// Result is what a handler hands back to the pipeline.
type Result struct {
	Node *ast.Node
	// SkipDescent stops the pipeline from rewriting the children of Node.
	SkipDescent bool
}

// Keep returns node unchanged.
func Keep(node *ast.Node) (Result, error) {
	return Result{Node: node}, nil
}

// Replace returns a replacement whose children are still rewritten.
func Replace(node *ast.Node) (Result, error) {
	return Result{Node: node}, nil
}

// ReplaceNoDescend returns a replacement that is not rewritten further.
func ReplaceNoDescend(node *ast.Node) (Result, error) {
	return Result{Node: node, SkipDescent: true}, nil
}

// Registration binds a handler to a node kind.
type Registration struct {
	Handler Handler
	Kind    ast.Kind
}

// Filter is a named bundle of registrations. Requires lists filters that
// must be active, and ordered earlier, whenever this one is.
type Filter struct {
	Name        string
	Description string
	Requires    []string
	Handlers    []Registration
}

// Kinds returns the distinct kinds the filter registers for, in registration order.
func (flt Filter) Kinds() []ast.Kind {
	seen := make(map[ast.Kind]bool, len(flt.Handlers))
	kinds := make([]ast.Kind, 0, len(flt.Handlers))

	for _, registration := range flt.Handlers {
		if seen[registration.Kind] {
			continue
		}

		seen[registration.Kind] = true
		kinds = append(kinds, registration.Kind)
	}

	return kinds
}

// IdentifierOf returns the name a node is known by for exclusion purposes:
// the method of a call or block, the variable of a read or write, the name
// of a definition or symbol. Nodes without a name return "".
func IdentifierOf(node *ast.Node) string {
	switch node.Kind() {
	case ast.KindSend, ast.KindCsend, ast.KindConst, ast.KindDefs, ast.KindCasgn, ast.KindAttr:
		return string(node.NameAt(1))
	case ast.KindLvar, ast.KindIvar, ast.KindGvar, ast.KindCvar,
		ast.KindLvasgn, ast.KindIvasgn, ast.KindGvasgn, ast.KindCvasgn,
		ast.KindDef, ast.KindSym, ast.KindArg, ast.KindOptarg, ast.KindKwarg, ast.KindKwoptarg:
		return string(node.NameAt(0))
	case ast.KindBlock:
		return IdentifierOf(node.NodeAt(0))
	default:
		return ""
	}
}
