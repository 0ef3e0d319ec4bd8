package rubyparse

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// body converts the statements of a definition or block. The grammar puts
// them under a body field in recent versions and inline in older ones;
// header children listed in skip are ignored in the inline form.
func (bld *builder) body(node sitter.Node, skip ...sitter.Node) *ast.Node {
	if body, ok := field(node, "body"); ok {
		return bld.rescueBody(body)
	}

	var statements []sitter.Node

	for _, child := range named(node) {
		header := false

		for _, skipped := range skip {
			if !skipped.IsNull() && sameNode(child, skipped) {
				header = true
			}
		}

		if !header {
			statements = append(statements, child)
		}
	}

	return bld.clauses(node, statements)
}

// rescueBody converts a body_statement, block_body or do node, which may
// carry rescue, else and ensure clauses of an implicit begin.
func (bld *builder) rescueBody(container sitter.Node) *ast.Node {
	switch container.Type() {
	case "body_statement", "block_body", "do", "then":
		return bld.clauses(container, named(container))
	default:
		return bld.expr(container)
	}
}

func (bld *builder) params(node sitter.Node) *ast.Node {
	list, ok := field(node, "parameters")
	if !ok {
		return nil
	}

	children := named(list)
	params := make([]ast.Value, 0, len(children))

	for _, param := range children {
		params = append(params, bld.param(param))
	}

	return bld.node(ast.KindArgs, list, params...)
}

func (bld *builder) param(node sitter.Node) *ast.Node {
	name, hasName := field(node, "name")
	value, hasValue := field(node, "value")

	declared := func() ast.Name {
		text := bld.text(name)
		bld.declare(text)

		return ast.Name(text)
	}

	switch node.Type() {
	case "identifier":
		text := bld.text(node)
		bld.declare(text)

		return bld.node(ast.KindArg, node, ast.Name(text))
	case "optional_parameter":
		if !hasName || !hasValue {
			return bld.unsupported(node)
		}

		paramName := declared()

		return bld.node(ast.KindOptarg, node, paramName, bld.expr(value))
	case "keyword_parameter":
		if !hasName {
			return bld.unsupported(node)
		}

		paramName := declared()
		if hasValue {
			return bld.node(ast.KindKwoptarg, node, paramName, bld.expr(value))
		}

		return bld.node(ast.KindKwarg, node, paramName)
	case "splat_parameter":
		if !hasName {
			return bld.node(ast.KindRestarg, node)
		}

		return bld.node(ast.KindRestarg, node, declared())
	case "hash_splat_parameter":
		if !hasName {
			return bld.node(ast.KindKwrestarg, node)
		}

		return bld.node(ast.KindKwrestarg, node, declared())
	case "block_parameter":
		if !hasName {
			return bld.node(ast.KindBlockarg, node)
		}

		return bld.node(ast.KindBlockarg, node, declared())
	default:
		return bld.unsupported(node)
	}
}

// method converts def. A definition written without a parameter list
// keeps nil args so the converter can tell `def x` from `def x()`.
func (bld *builder) method(node sitter.Node) *ast.Node {
	name, ok := field(node, "name")
	if !ok {
		return bld.unsupported(node)
	}

	bld.pushScope(true)
	defer bld.popScope()

	params := bld.params(node)
	paramsNode, _ := field(node, "parameters")
	body := bld.body(node, name, paramsNode)

	return bld.node(ast.KindDef, node, ast.Name(bld.methodName(name)), params, body)
}

func (bld *builder) singletonMethod(node sitter.Node) *ast.Node {
	object, hasObject := field(node, "object")
	name, hasName := field(node, "name")

	if !hasObject || !hasName {
		return bld.unsupported(node)
	}

	owner := bld.expr(object)

	bld.pushScope(true)
	defer bld.popScope()

	params := bld.params(node)
	paramsNode, _ := field(node, "parameters")
	body := bld.body(node, object, name, paramsNode)

	return bld.node(ast.KindDefs, node, owner, ast.Name(bld.methodName(name)), params, body)
}

// methodName reads setter and operator names as written.
func (bld *builder) methodName(name sitter.Node) string {
	return strings.TrimSpace(bld.text(name))
}

func (bld *builder) constantName(node sitter.Node) *ast.Node {
	switch node.Type() {
	case "constant":
		return bld.node(ast.KindConst, node, nil, ast.Name(bld.text(node)))
	case "scope_resolution":
		scope, name := bld.constantPath(node)

		return bld.node(ast.KindConst, node, scope, name)
	default:
		return bld.unsupported(node)
	}
}

func (bld *builder) class(node sitter.Node) *ast.Node {
	name, ok := field(node, "name")
	if !ok {
		return bld.unsupported(node)
	}

	constant := bld.constantName(name)

	var super *ast.Node

	superNode, hasSuper := field(node, "superclass")
	if hasSuper {
		if inner := named(superNode); len(inner) > 0 {
			super = bld.expr(inner[0])
		}
	}

	bld.pushScope(true)
	defer bld.popScope()

	return bld.node(ast.KindClass, node, constant, super, bld.body(node, name, superNode))
}

func (bld *builder) singletonClass(node sitter.Node) *ast.Node {
	value, ok := field(node, "value")
	if !ok {
		return bld.unsupported(node)
	}

	target := bld.expr(value)

	bld.pushScope(true)
	defer bld.popScope()

	return bld.node(ast.KindSclass, node, target, bld.body(node, value))
}

func (bld *builder) module(node sitter.Node) *ast.Node {
	name, ok := field(node, "name")
	if !ok {
		return bld.unsupported(node)
	}

	constant := bld.constantName(name)

	bld.pushScope(true)
	defer bld.popScope()

	return bld.node(ast.KindModule, node, constant, bld.body(node, name))
}

// block attaches a brace or do block to the call it follows.
func (bld *builder) block(origin sitter.Node, call *ast.Node, block sitter.Node) *ast.Node {
	bld.pushScope(false)
	defer bld.popScope()

	args := bld.params(block)
	if args == nil {
		args = bld.node(ast.KindArgs, block)
	}

	paramsNode, _ := field(block, "parameters")

	return bld.node(ast.KindBlock, origin, call, args, bld.body(block, paramsNode))
}

// lambda converts the stabby lambda literal into a block on (lambda).
func (bld *builder) lambda(node sitter.Node) *ast.Node {
	bld.pushScope(false)
	defer bld.popScope()

	args := bld.params(node)
	if args == nil {
		args = bld.node(ast.KindArgs, node)
	}

	var body *ast.Node

	if inner, ok := field(node, "body"); ok {
		paramsNode, _ := field(inner, "parameters")
		body = bld.body(inner, paramsNode)
	}

	return bld.node(ast.KindBlock, node, bld.node(ast.KindLambda, node), args, body)
}
