package scope

import (
	"slices"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Reassigned scans the statements of a frame and returns the local names
// that are written more than once, or updated in place with an operator
// assignment. The scan crosses blocks but stops at definitions, which open
// their own scope.
func Reassigned(body ...*ast.Node) map[string]bool {
	writes := make(map[string]int)
	updated := make(map[string]bool)

	for _, statement := range body {
		countWrites(statement, writes, updated)
	}

	reassigned := make(map[string]bool)

	for name, count := range writes {
		if count > 1 {
			reassigned[name] = true
		}
	}

	for name := range updated {
		reassigned[name] = true
	}

	return reassigned
}

func countWrites(node *ast.Node, writes map[string]int, updated map[string]bool) {
	ast.Walk(node, func(current *ast.Node) bool {
		switch current.Kind() {
		case ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass:
			return false
		case ast.KindLvasgn:
			writes[string(current.NameAt(0))]++
		case ast.KindOpAsgn, ast.KindOrAsgn, ast.KindAndAsgn:
			if target := current.NodeAt(0); target.Is(ast.KindLvasgn) {
				updated[string(target.NameAt(0))] = true
			}
		case ast.KindFor, ast.KindWhile, ast.KindUntil, ast.KindWhilePost, ast.KindUntilPost:
			markLoopWrites(current, updated)
		}

		return true
	})
}

// markLoopWrites treats names written inside a loop body as reassigned:
// the body runs many times but the declaration is hoisted out of it.
func markLoopWrites(loop *ast.Node, updated map[string]bool) {
	ast.Walk(loop, func(current *ast.Node) bool {
		switch current.Kind() {
		case ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass, ast.KindBlock:
			return false
		case ast.KindLvasgn:
			updated[string(current.NameAt(0))] = true
		}

		return true
	})
}

// Hoistable lists, in first-write order, the local names assigned inside a
// compound statement that are not yet visible. Declaring them ahead of the
// statement keeps them in scope after it ends. Blocks and definitions are
// not entered, and rescue variables are bound by their catch clause.
func Hoistable(statement *ast.Node, visible func(name string) bool) []string {
	var (
		names []string
		visit func(current *ast.Node) bool
	)

	visit = func(current *ast.Node) bool {
		switch current.Kind() {
		case ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass,
			ast.KindBlock, ast.KindLambda:
			return false
		case ast.KindResbody:
			ast.Walk(current.NodeAt(0), visit)
			ast.Walk(current.NodeAt(2), visit)

			return false
		case ast.KindLvasgn:
			name := string(current.NameAt(0))
			if !visible(name) && !slices.Contains(names, name) {
				names = append(names, name)
			}
		}

		return true
	}

	for _, part := range statement.Nodes() {
		ast.Walk(part, visit)
	}

	return names
}

// Compound reports whether a statement of kind renders as a braced block,
// so locals first written inside it would otherwise be confined to it.
func Compound(kind ast.Kind) bool {
	switch kind {
	case ast.KindIf, ast.KindCase, ast.KindWhile, ast.KindUntil, ast.KindWhilePost, ast.KindUntilPost,
		ast.KindFor, ast.KindKwbegin, ast.KindRescue, ast.KindEnsure:
		return true
	default:
		return false
	}
}
