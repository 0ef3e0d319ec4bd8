package rubyparse

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// branch converts a then, else or elsif clause.
func (bld *builder) branch(node sitter.Node, ok bool) *ast.Node {
	if !ok {
		return nil
	}

	switch node.Type() {
	case "then", "else":
		return bld.statements(node)
	default:
		return bld.expr(node)
	}
}

func (bld *builder) ifStatement(node sitter.Node) *ast.Node {
	condition, ok := field(node, "condition")
	if !ok {
		return bld.unsupported(node)
	}

	test := bld.expr(condition)
	consequence := bld.branch(field(node, "consequence"))
	alternative := bld.branch(field(node, "alternative"))

	if node.Type() == "unless" {
		return bld.node(ast.KindIf, node, test, alternative, consequence)
	}

	return bld.node(ast.KindIf, node, test, consequence, alternative)
}

func (bld *builder) ifModifier(node sitter.Node) *ast.Node {
	body, hasBody := field(node, "body")
	condition, hasCondition := field(node, "condition")

	if !hasBody || !hasCondition {
		return bld.unsupported(node)
	}

	statement := bld.expr(body)
	test := bld.expr(condition)

	if node.Type() == "unless_modifier" {
		return bld.node(ast.KindIf, node, test, nil, statement)
	}

	return bld.node(ast.KindIf, node, test, statement, nil)
}

func (bld *builder) loop(node sitter.Node) *ast.Node {
	condition, ok := field(node, "condition")
	if !ok {
		return bld.unsupported(node)
	}

	kind := ast.KindWhile
	if node.Type() == "until" {
		kind = ast.KindUntil
	}

	test := bld.expr(condition)
	body, _ := field(node, "body")

	return bld.node(kind, node, test, bld.statements(body))
}

// loopModifier converts `x while c`. A begin...end body runs at least once
// and becomes a post-condition loop.
func (bld *builder) loopModifier(node sitter.Node) *ast.Node {
	body, hasBody := field(node, "body")
	condition, hasCondition := field(node, "condition")

	if !hasBody || !hasCondition {
		return bld.unsupported(node)
	}

	statement := bld.expr(body)
	test := bld.expr(condition)
	until := node.Type() == "until_modifier"

	if body.Type() == "begin" {
		if until {
			return bld.node(ast.KindUntilPost, node, test, statement)
		}

		return bld.node(ast.KindWhilePost, node, test, statement)
	}

	if until {
		return bld.node(ast.KindUntil, node, test, statement)
	}

	return bld.node(ast.KindWhile, node, test, statement)
}

func (bld *builder) forLoop(node sitter.Node) *ast.Node {
	pattern, hasPattern := field(node, "pattern")
	value, hasValue := field(node, "value")

	if !hasPattern || !hasValue {
		return bld.unsupported(node)
	}

	if value.Type() == "in" {
		inner := named(value)
		if len(inner) == 0 {
			return bld.unsupported(value)
		}

		value = inner[0]
	}

	iterable := bld.expr(value)

	var variable *ast.Node
	if pattern.Type() == "left_assignment_list" {
		variable = bld.mlhs(pattern)
	} else {
		variable = bld.target(pattern, nil, false)
	}

	body, _ := field(node, "body")

	return bld.node(ast.KindFor, node, variable, iterable, bld.statements(body))
}

func (bld *builder) caseStatement(node sitter.Node) *ast.Node {
	var subject *ast.Node
	if value, ok := field(node, "value"); ok {
		subject = bld.expr(value)
	}

	children := []ast.Value{subject}

	var otherwise *ast.Node

	for _, child := range named(node) {
		switch child.Type() {
		case "when":
			children = append(children, bld.when(child))
		case "else":
			otherwise = bld.statements(child)
		}
	}

	if len(children) == 1 {
		return bld.unsupported(node)
	}

	return bld.node(ast.KindCase, node, append(children, otherwise)...)
}

func (bld *builder) when(node sitter.Node) *ast.Node {
	var (
		tests []ast.Value
		body  *ast.Node
	)

	for _, child := range named(node) {
		switch child.Type() {
		case "then":
			body = bld.statements(child)
		case "pattern":
			if inner := named(child); len(inner) > 0 {
				tests = append(tests, bld.expr(inner[0]))
			}
		default:
			tests = append(tests, bld.expr(child))
		}
	}

	return bld.node(ast.KindWhen, node, append(tests, body)...)
}

func (bld *builder) begin(node sitter.Node) *ast.Node {
	body := bld.clauses(node, named(node))

	switch {
	case body == nil:
		return bld.node(ast.KindKwbegin, node)
	case body.Is(ast.KindBegin):
		return body.Updated(ast.KindKwbegin, body.Children()...)
	default:
		return bld.node(ast.KindKwbegin, node, body)
	}
}

func (bld *builder) rescueModifier(node sitter.Node) *ast.Node {
	body, hasBody := field(node, "body")
	handler, hasHandler := field(node, "handler")

	if !hasBody || !hasHandler {
		return bld.unsupported(node)
	}

	statement := bld.expr(body)
	resbody := bld.node(ast.KindResbody, handler, nil, nil, bld.expr(handler))

	return bld.node(ast.KindRescue, node, statement, resbody, nil)
}

// clauses converts statements that may be followed by rescue, else and
// ensure clauses, as in begin blocks and method bodies.
func (bld *builder) clauses(origin sitter.Node, children []sitter.Node) *ast.Node {
	var (
		statements []sitter.Node
		handlers   []ast.Value
		otherwise  *ast.Node
		ensure     *ast.Node
		hasEnsure  bool
	)

	for _, child := range children {
		switch child.Type() {
		case "rescue":
			handlers = append(handlers, bld.resbody(child))
		case "else":
			otherwise = bld.statements(child)
		case "ensure":
			ensure, hasEnsure = bld.statements(child), true
		default:
			statements = append(statements, child)
		}
	}

	body := bld.sequence(origin, bld.statementList(statements))

	if len(handlers) > 0 {
		children := append([]ast.Value{body}, handlers...)
		body = bld.node(ast.KindRescue, origin, append(children, otherwise)...)
	}

	if hasEnsure {
		body = bld.node(ast.KindEnsure, origin, body, ensure)
	}

	return body
}

func (bld *builder) resbody(node sitter.Node) *ast.Node {
	var classes, variable *ast.Node

	if exceptions, ok := field(node, "exceptions"); ok {
		classes = bld.node(ast.KindArray, exceptions, bld.elements(named(exceptions))...)
	}

	if binding, ok := field(node, "variable"); ok {
		if inner := named(binding); len(inner) > 0 {
			variable = bld.target(inner[0], nil, false)
		}
	}

	body := bld.branch(field(node, "body"))

	return bld.node(ast.KindResbody, node, classes, variable, body)
}
