package rubyparse

import (
	"strconv"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// expr converts any expression or statement node.
//
//nolint:gocyclo,cyclop,funlen // one dispatch over the grammar.
func (bld *builder) expr(node sitter.Node) *ast.Node {
	if bld.err != nil {
		return nil
	}

	switch node.Type() {
	case "integer":
		return bld.integer(node, false)
	case "float":
		return bld.float(node, false)
	case "string", "chained_string", "character":
		return bld.stringLiteral(node, ast.KindStr, ast.KindDstr)
	case "subshell":
		return bld.node(ast.KindXstr, node, bld.stringParts(node)...)
	case "simple_symbol", "hash_key_symbol", "delimited_symbol":
		return bld.symbol(node)
	case "regex":
		return bld.regex(node)
	case "array":
		return bld.node(ast.KindArray, node, bld.elements(named(node))...)
	case "string_array", "symbol_array":
		return bld.wordArray(node)
	case "hash":
		return bld.hash(node)
	case "range":
		return bld.rangeLiteral(node)
	case "nil":
		return bld.node(ast.KindNil, node)
	case "true":
		return bld.node(ast.KindTrue, node)
	case "false":
		return bld.node(ast.KindFalse, node)
	case "self":
		return bld.node(ast.KindSelf, node)
	case "identifier":
		return bld.identifier(node)
	case "constant":
		return bld.node(ast.KindConst, node, nil, ast.Name(bld.text(node)))
	case "scope_resolution":
		return bld.scopeResolution(node)
	case "instance_variable":
		return bld.node(ast.KindIvar, node, ast.Name(bld.text(node)))
	case "class_variable":
		return bld.node(ast.KindCvar, node, ast.Name(bld.text(node)))
	case "global_variable":
		return bld.globalVariable(node)
	case "file":
		return bld.node(ast.KindStr, node, ast.Str(bld.file))
	case "line":
		return bld.node(ast.KindInt, node, ast.Int(spanOf(node).StartLine))
	case "super":
		return bld.node(ast.KindZsuper, node)
	case "assignment":
		return bld.assignment(node)
	case "operator_assignment":
		return bld.operatorAssignment(node)
	case "binary":
		return bld.binary(node)
	case "unary":
		return bld.unary(node)
	case "parenthesized_statements":
		return bld.node(ast.KindBegin, node, bld.statementList(named(node))...)
	case "call":
		return bld.call(node)
	case "element_reference":
		return bld.elementReference(node)
	case "conditional":
		return bld.conditional(node)
	case "if", "unless", "elsif":
		return bld.ifStatement(node)
	case "if_modifier", "unless_modifier":
		return bld.ifModifier(node)
	case "while", "until":
		return bld.loop(node)
	case "while_modifier", "until_modifier":
		return bld.loopModifier(node)
	case "for":
		return bld.forLoop(node)
	case "case":
		return bld.caseStatement(node)
	case "begin":
		return bld.begin(node)
	case "rescue_modifier":
		return bld.rescueModifier(node)
	case "return":
		return bld.jump(node, ast.KindReturn)
	case "break":
		return bld.jump(node, ast.KindBreak)
	case "next":
		return bld.jump(node, ast.KindNext)
	case "redo":
		return bld.node(ast.KindRedo, node)
	case "retry":
		return bld.node(ast.KindRetry, node)
	case "yield":
		return bld.node(ast.KindYield, node, bld.argumentsOf(node)...)
	case "method":
		return bld.method(node)
	case "singleton_method":
		return bld.singletonMethod(node)
	case "class":
		return bld.class(node)
	case "singleton_class":
		return bld.singletonClass(node)
	case "module":
		return bld.module(node)
	case "lambda":
		return bld.lambda(node)
	case "alias":
		return bld.alias(node)
	case "undef":
		return bld.undef(node)
	case "interpolation":
		return bld.node(ast.KindBegin, node, bld.statementList(named(node))...)
	case "splat_argument":
		return bld.splat(node)
	default:
		return bld.unsupported(node)
	}
}

func (bld *builder) identifier(node sitter.Node) *ast.Node {
	name := bld.text(node)
	if bld.isLocal(name) {
		return bld.node(ast.KindLvar, node, ast.Name(name))
	}

	return bld.node(ast.KindSend, node, nil, ast.Name(name))
}

func (bld *builder) globalVariable(node sitter.Node) *ast.Node {
	name := bld.text(node)

	if ref, err := strconv.Atoi(strings.TrimPrefix(name, "$")); err == nil && ref > 0 {
		return bld.node(ast.KindNthRef, node, ast.Int(ref))
	}

	return bld.node(ast.KindGvar, node, ast.Name(name))
}

func (bld *builder) scopeResolution(node sitter.Node) *ast.Node {
	name, ok := field(node, "name")
	if !ok {
		return bld.unsupported(node)
	}

	var scope *ast.Node

	if scopeNode, hasScope := field(node, "scope"); hasScope {
		scope = bld.expr(scopeNode)
	} else {
		scope = bld.node(ast.KindCbase, node)
	}

	if name.Type() != "constant" {
		return bld.node(ast.KindSend, node, scope, ast.Name(bld.text(name)))
	}

	return bld.node(ast.KindConst, node, scope, ast.Name(bld.text(name)))
}

// logicalOperators map to and/or nodes instead of method calls.
//
//nolint:gochecknoglobals // read-only operator table.
var logicalOperators = map[string]ast.Kind{
	"&&":  ast.KindAnd,
	"and": ast.KindAnd,
	"||":  ast.KindOr,
	"or":  ast.KindOr,
}

func (bld *builder) binary(node sitter.Node) *ast.Node {
	left, hasLeft := field(node, "left")
	operator, hasOperator := field(node, "operator")
	right, hasRight := field(node, "right")

	if !hasLeft || !hasOperator || !hasRight {
		return bld.unsupported(node)
	}

	op := bld.text(operator)
	lhs, rhs := bld.expr(left), bld.expr(right)

	if kind, ok := logicalOperators[op]; ok {
		return bld.node(kind, node, lhs, rhs)
	}

	return bld.node(ast.KindSend, node, lhs, ast.Name(op), rhs)
}

func (bld *builder) unary(node sitter.Node) *ast.Node {
	operator, hasOperator := field(node, "operator")
	operand, hasOperand := field(node, "operand")

	if !hasOperator || !hasOperand {
		return bld.unsupported(node)
	}

	switch op := bld.text(operator); op {
	case "!", "not":
		return bld.node(ast.KindSend, node, bld.expr(operand), ast.Name("!"))
	case "defined?":
		return bld.node(ast.KindDefined, node, bld.expr(operand))
	case "-":
		switch operand.Type() {
		case "integer":
			return bld.integer(operand, true)
		case "float":
			return bld.float(operand, true)
		}

		return bld.node(ast.KindSend, node, bld.expr(operand), ast.Name("-@"))
	case "+":
		return bld.node(ast.KindSend, node, bld.expr(operand), ast.Name("+@"))
	default:
		return bld.node(ast.KindSend, node, bld.expr(operand), ast.Name(op))
	}
}

func (bld *builder) conditional(node sitter.Node) *ast.Node {
	condition, _ := field(node, "condition")
	consequence, _ := field(node, "consequence")
	alternative, _ := field(node, "alternative")

	return bld.node(ast.KindIf, node, bld.expr(condition), bld.expr(consequence), bld.expr(alternative))
}

func (bld *builder) elementReference(node sitter.Node) *ast.Node {
	object, ok := field(node, "object")
	if !ok {
		return bld.unsupported(node)
	}

	children := []ast.Value{bld.expr(object), ast.Name("[]")}

	for _, child := range named(node) {
		if sameNode(child, object) {
			continue
		}

		children = append(children, bld.argument(child))
	}

	return bld.node(ast.KindSend, node, children...)
}

func (bld *builder) splat(node sitter.Node) *ast.Node {
	children := named(node)
	if len(children) == 0 {
		return bld.node(ast.KindSplat, node)
	}

	return bld.node(ast.KindSplat, node, bld.expr(children[0]))
}

func (bld *builder) alias(node sitter.Node) *ast.Node {
	newName, hasNew := field(node, "name")
	oldName, hasOld := field(node, "alias")

	if !hasNew || !hasOld {
		return bld.unsupported(node)
	}

	return bld.node(ast.KindAlias, node, bld.methodSymbol(newName), bld.methodSymbol(oldName))
}

func (bld *builder) undef(node sitter.Node) *ast.Node {
	names := named(node)
	children := make([]ast.Value, 0, len(names))

	for _, name := range names {
		children = append(children, bld.methodSymbol(name))
	}

	if len(children) == 0 {
		return bld.unsupported(node)
	}

	return bld.node(ast.KindUndef, node, children...)
}

// methodSymbol turns a method name written bare or as a symbol into a sym.
func (bld *builder) methodSymbol(node sitter.Node) *ast.Node {
	return bld.node(ast.KindSym, node, ast.Name(strings.TrimPrefix(bld.text(node), ":")))
}
