package rubyparse

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// call converts a method call. A call with an explicit receiver and empty
// parentheses becomes an invocation of the attribute, so it stays a call
// instead of reading as a property.
func (bld *builder) call(node sitter.Node) *ast.Node {
	method, ok := field(node, "method")
	if !ok {
		return bld.unsupported(node)
	}

	name := bld.text(method)
	receiverNode, hasReceiver := field(node, "receiver")
	arguments, hasArguments := field(node, "arguments")

	var receiver *ast.Node
	if hasReceiver {
		receiver = bld.expr(receiverNode)
	}

	var call *ast.Node

	switch {
	case !hasReceiver && name == "super":
		if hasArguments {
			call = bld.node(ast.KindSuper, node, bld.arguments(arguments)...)
		} else {
			call = bld.node(ast.KindZsuper, node)
		}
	case hasReceiver && hasArguments && len(named(arguments)) == 0 && name != "new":
		call = bld.node(ast.KindCall, node, bld.node(ast.KindAttr, node, receiver, ast.Name(name)))
	default:
		kind := ast.KindSend
		if operator, hasOperator := field(node, "operator"); hasOperator && bld.text(operator) == "&." {
			kind = ast.KindCsend
		}

		children := []ast.Value{receiver, ast.Name(name)}
		if hasArguments {
			children = append(children, bld.arguments(arguments)...)
		}

		call = bld.node(kind, node, children...)
	}

	if block, hasBlock := field(node, "block"); hasBlock {
		return bld.block(node, call, block)
	}

	return call
}

// argumentsOf converts the argument_list child of yield, return and friends.
func (bld *builder) argumentsOf(node sitter.Node) []ast.Value {
	for _, child := range named(node) {
		if child.Type() == "argument_list" {
			return bld.arguments(child)
		}
	}

	return nil
}

// arguments converts an argument list. Trailing keyword arguments are
// gathered into one hash.
func (bld *builder) arguments(list sitter.Node) []ast.Value {
	var (
		args  []ast.Value
		pairs []ast.Value
		start sitter.Node
	)

	flush := func() {
		if len(pairs) > 0 {
			args = append(args, bld.node(ast.KindHash, start, pairs...))
			pairs = nil
		}
	}

	for _, child := range named(list) {
		switch child.Type() {
		case "pair", "hash_splat_argument":
			if len(pairs) == 0 {
				start = child
			}

			pairs = append(pairs, bld.hashElement(child))
		default:
			flush()
			args = append(args, bld.argument(child))
		}
	}

	flush()

	return args
}

func (bld *builder) argument(node sitter.Node) *ast.Node {
	switch node.Type() {
	case "block_argument":
		children := named(node)
		if len(children) == 0 {
			return bld.node(ast.KindBlockPass, node)
		}

		return bld.node(ast.KindBlockPass, node, bld.expr(children[0]))
	case "hash_splat_argument", "pair":
		return bld.node(ast.KindHash, node, bld.hashElement(node))
	default:
		return bld.expr(node)
	}
}

func (bld *builder) jump(node sitter.Node, kind ast.Kind) *ast.Node {
	args := bld.argumentsOf(node)

	switch len(args) {
	case 0:
		return bld.node(kind, node)
	case 1:
		return bld.node(kind, node, args[0])
	default:
		return bld.node(kind, node, bld.node(ast.KindArray, node, args...))
	}
}

// assignment converts single and multiple assignment.
func (bld *builder) assignment(node sitter.Node) *ast.Node {
	left, hasLeft := field(node, "left")
	right, hasRight := field(node, "right")

	if !hasLeft || !hasRight {
		return bld.unsupported(node)
	}

	if left.Type() == "left_assignment_list" {
		targets := bld.mlhs(left)
		value := bld.rightHandSide(right)

		return bld.node(ast.KindMasgn, node, targets, value)
	}

	value := bld.rightHandSide(right)

	return bld.target(left, value, true)
}

func (bld *builder) rightHandSide(right sitter.Node) *ast.Node {
	if right.Type() == "right_assignment_list" {
		return bld.node(ast.KindArray, right, bld.elements(named(right))...)
	}

	return bld.expr(right)
}

// target converts an assignment target. withValue false builds the bare
// target used by operator assignments and multiple assignment.
func (bld *builder) target(left sitter.Node, value *ast.Node, withValue bool) *ast.Node {
	tail := func(children ...ast.Value) []ast.Value {
		if withValue {
			return append(children, value)
		}

		return children
	}

	switch left.Type() {
	case "identifier":
		name := bld.text(left)
		bld.declare(name)

		return bld.node(ast.KindLvasgn, left, tail(ast.Name(name))...)
	case "instance_variable":
		return bld.node(ast.KindIvasgn, left, tail(ast.Name(bld.text(left)))...)
	case "class_variable":
		return bld.node(ast.KindCvasgn, left, tail(ast.Name(bld.text(left)))...)
	case "global_variable":
		return bld.node(ast.KindGvasgn, left, tail(ast.Name(bld.text(left)))...)
	case "constant":
		return bld.node(ast.KindCasgn, left, tail(nil, ast.Name(bld.text(left)))...)
	case "scope_resolution":
		scope, name := bld.constantPath(left)

		return bld.node(ast.KindCasgn, left, tail(scope, name)...)
	case "call":
		return bld.attributeTarget(left, value, withValue)
	case "element_reference":
		ref := bld.elementReference(left)
		if ref == nil || !withValue {
			return ref
		}

		children := append(ref.Children(), value)
		children[1] = ast.Name("[]=")

		return ref.WithChildren(children...)
	default:
		return bld.unsupported(left)
	}
}

func (bld *builder) attributeTarget(left sitter.Node, value *ast.Node, withValue bool) *ast.Node {
	receiverNode, hasReceiver := field(left, "receiver")
	method, hasMethod := field(left, "method")

	if !hasReceiver || !hasMethod {
		return bld.unsupported(left)
	}

	receiver := bld.expr(receiverNode)
	name := bld.text(method)

	if !withValue {
		return bld.node(ast.KindSend, left, receiver, ast.Name(name))
	}

	return bld.node(ast.KindSend, left, receiver, ast.Name(name+"="), value)
}

func (bld *builder) constantPath(node sitter.Node) (ast.Value, ast.Name) {
	name, _ := field(node, "name")

	if scopeNode, hasScope := field(node, "scope"); hasScope {
		return bld.expr(scopeNode), ast.Name(bld.text(name))
	}

	return bld.node(ast.KindCbase, node), ast.Name(bld.text(name))
}

func (bld *builder) mlhs(list sitter.Node) *ast.Node {
	children := named(list)
	targets := make([]ast.Value, 0, len(children))

	for _, child := range children {
		switch child.Type() {
		case "rest_assignment":
			inner := named(child)
			if len(inner) == 0 {
				targets = append(targets, bld.node(ast.KindSplat, child))
			} else {
				targets = append(targets, bld.node(ast.KindSplat, child, bld.target(inner[0], nil, false)))
			}
		case "destructured_left_assignment":
			targets = append(targets, bld.mlhs(child))
		default:
			targets = append(targets, bld.target(child, nil, false))
		}
	}

	return bld.node(ast.KindMlhs, list, targets...)
}

//nolint:gochecknoglobals // read-only operator table.
var shortCircuitAssignments = map[string]ast.Kind{
	"||=": ast.KindOrAsgn,
	"&&=": ast.KindAndAsgn,
}

func (bld *builder) operatorAssignment(node sitter.Node) *ast.Node {
	left, hasLeft := field(node, "left")
	operator, hasOperator := field(node, "operator")
	right, hasRight := field(node, "right")

	if !hasLeft || !hasOperator || !hasRight {
		return bld.unsupported(node)
	}

	target := bld.target(left, nil, false)
	value := bld.expr(right)
	op := bld.text(operator)

	if kind, ok := shortCircuitAssignments[op]; ok {
		return bld.node(kind, node, target, value)
	}

	return bld.node(ast.KindOpAsgn, node, target, ast.Name(strings.TrimSuffix(op, "=")), value)
}
