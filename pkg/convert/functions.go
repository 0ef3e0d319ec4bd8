package convert

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/scope"
)

// implicitBlock is the parameter added to methods that yield without
// naming their block.
const implicitBlock = "_block"

// paramSet is a rendered parameter list.
type paramSet struct {
	list     []fragment.Fragment
	prologue fragment.Group
	// forward holds the arguments an implicit super passes on.
	forward    []string
	blockParam string
}

// params renders a parameter list and binds every name in the current
// frame. Defaults, rest and keyword parameters fall back to prologue
// statements where the syntax is missing.
func (ctx *Context) params(args *ast.Node) (paramSet, error) {
	var (
		set      paramSet
		keywords []*ast.Node
	)

	for _, param := range args.Nodes() {
		name := string(param.NameAt(0))

		switch param.Kind() {
		case ast.KindArg:
			ctx.stack.Bind(name)
			set.list = append(set.list, fragment.Text(ctx.Local(name)))
			set.forward = append(set.forward, ctx.Local(name))
		case ast.KindOptarg:
			if err := ctx.optionalParam(&set, param); err != nil {
				return paramSet{}, err
			}
		case ast.KindRestarg:
			if name == "" {
				name = "args"
			}

			ctx.stack.Bind(name)
			local := ctx.Local(name)

			if ctx.Level() >= es.ES2015 {
				set.list = append(set.list, fragment.Text("..."+local))
			} else {
				set.prologue = append(set.prologue, fragment.Statement(
					fragment.Textf("var %s = Array.prototype.slice.call(arguments, %d)", local, len(set.list)))...)
			}

			set.forward = append(set.forward, "..."+local)
		case ast.KindKwarg, ast.KindKwoptarg, ast.KindKwrestarg:
			keywords = append(keywords, param)
		case ast.KindBlockarg:
			ctx.stack.Bind(name)
			set.blockParam = ctx.Local(name)
		case ast.KindMlhs:
			if ctx.Level() < es.ES2015 {
				return paramSet{}, notImplemented(param, "destructuring parameter needs ES2015")
			}

			for _, target := range flatTargets(param.Nodes()) {
				ctx.stack.Bind(string(target.NameAt(0)))
			}

			pattern, err := ctx.pattern(param.Nodes())
			if err != nil {
				return paramSet{}, err
			}

			set.list = append(set.list, pattern)
		default:
			return paramSet{}, notImplemented(param, "parameter")
		}
	}

	if len(keywords) > 0 {
		if err := ctx.keywordParams(&set, keywords); err != nil {
			return paramSet{}, err
		}
	}

	if set.blockParam != "" {
		set.list = append(set.list, fragment.Text(set.blockParam))
		set.forward = append(set.forward, set.blockParam)
	}

	return set, nil
}

func (ctx *Context) optionalParam(set *paramSet, param *ast.Node) error {
	name := string(param.NameAt(0))
	local := ctx.Local(name)

	value, err := ctx.ExprPrec(param.NodeAt(1), precAssign)
	if err != nil {
		return err
	}

	ctx.stack.Bind(name)
	set.forward = append(set.forward, local)

	if ctx.Level() >= es.ES2015 {
		set.list = append(set.list, fragment.Seq(fragment.Text(local+" = "), value))

		return nil
	}

	set.list = append(set.list, fragment.Text(local))
	set.prologue = append(set.prologue,
		fragment.Statement(fragment.Textf("if (%s === undefined) %s = ", local, local), value)...)

	return nil
}

// keywordParams collects keyword parameters into one destructured object.
func (ctx *Context) keywordParams(set *paramSet, keywords []*ast.Node) error {
	if ctx.Level() < es.ES2015 {
		return ctx.keywordPrologue(set, keywords)
	}

	items := make([]fragment.Fragment, 0, len(keywords))

	for _, param := range keywords {
		name := string(param.NameAt(0))
		ctx.stack.Bind(name)
		local := ctx.Local(name)

		switch param.Kind() {
		case ast.KindKwoptarg:
			value, err := ctx.ExprPrec(param.NodeAt(1), precAssign)
			if err != nil {
				return err
			}

			items = append(items, fragment.Seq(fragment.Text(keywordKey(name, local)+" = "), value))
		case ast.KindKwrestarg:
			if ctx.Level() < es.ES2018 {
				return notImplemented(param, "keyword rest parameter needs ES2018")
			}

			if name == "" {
				name, local = "opts", ctx.Local("opts")
				ctx.stack.Bind(name)
			}

			items = append(items, fragment.Text("..."+local))
		default:
			items = append(items, fragment.Text(keywordKey(name, local)))
		}
	}

	set.list = append(set.list, fragment.Seq(fragment.Text("{"), fragment.Join(fragment.Text(", "), items),
		fragment.Text("} = {}")))

	return nil
}

// keywordKey renames a destructured property when the local differs from
// the key, as for reserved words.
func keywordKey(name, local string) string {
	if name == local {
		return name
	}

	return name + ": " + local
}

func (ctx *Context) keywordPrologue(set *paramSet, keywords []*ast.Node) error {
	const holder = "$kw"

	set.list = append(set.list, fragment.Text(holder))
	set.prologue = append(set.prologue, fragment.Statement(fragment.Text(holder+" = "+holder+" || {}"))...)

	for _, param := range keywords {
		name := string(param.NameAt(0))
		ctx.stack.Bind(name)
		local := ctx.Local(name)
		read := fmt.Sprintf("%s.%s", holder, name)

		switch param.Kind() {
		case ast.KindKwoptarg:
			value, err := ctx.ExprPrec(param.NodeAt(1), precTernary)
			if err != nil {
				return err
			}

			set.prologue = append(set.prologue, fragment.Statement(
				fragment.Textf("var %s = %s === undefined ? ", local, read), value, fragment.Text(" : "+read))...)
		case ast.KindKwrestarg:
			return notImplemented(param, "keyword rest parameter needs ES2018")
		default:
			set.prologue = append(set.prologue, fragment.Statement(fragment.Textf("var %s = %s", local, read))...)
		}
	}

	return nil
}

// usesBlock reports whether a method body yields to or tests for its block.
func usesBlock(body *ast.Node) bool {
	return contains(body, func(node *ast.Node) bool {
		switch node.Kind() {
		case ast.KindYield:
			return true
		case ast.KindSend:
			return node.NodeAt(0) == nil && node.NameAt(1) == "block_given?"
		case ast.KindBlockPass:
			return node.NodeAt(0) == nil
		}

		return false
	}, ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass)
}

// contains reports whether a node below root matches, without entering
// nodes of the stop kinds other than root itself.
func contains(root *ast.Node, match func(node *ast.Node) bool, stop ...ast.Kind) bool {
	found := false

	ast.Walk(root, func(node *ast.Node) bool {
		if found || (node != root && node.Is(stop...)) {
			return false
		}

		if match(node) {
			found = true

			return false
		}

		return true
	})

	return found
}

// braced renders head followed by a braced block.
func braced(head fragment.Fragment, body fragment.Group) fragment.Group {
	if len(body) == 0 {
		return fragment.Seq(head, fragment.Text("{}"))
	}

	return fragment.Seq(head, fragment.Text("{"), fragment.Body(body...), fragment.Text("}"))
}

// methodSpec describes a method-like definition.
type methodSpec struct {
	args        *ast.Node
	body        *ast.Node
	name        string
	receiver    scope.ReceiverKind
	constructor bool
	static      bool
	discard     bool
	superclass  bool
}

// method renders the parameter list and body of a definition inside a
// fresh method frame.
func (ctx *Context) method(spec methodSpec) (fragment.Fragment, fragment.Group, error) {
	statements := bodyStatements(spec.body)
	frame := ctx.stack.Push(scope.FrameMethod, spec.receiver, spec.name, statements...)
	info := &methodInfo{name: spec.name, constructor: spec.constructor, static: spec.static}
	ctx.methods = append(ctx.methods, info)

	var (
		params fragment.Fragment
		body   fragment.Group
	)

	err := ctx.withFunction(func() error {
		set, err := ctx.params(spec.args)
		if err != nil {
			return err
		}

		info.params, info.blockParam = set.forward, set.blockParam
		if info.blockParam == "" && usesBlock(spec.body) {
			info.blockParam = implicitBlock
			set.list = append(set.list, fragment.Text(implicitBlock))
		}

		pos := PositionReturn
		if spec.discard {
			pos = PositionStatement
		}

		main, err := ctx.Body(statements, pos)
		if err != nil {
			return err
		}

		if spec.constructor && spec.superclass && ctx.Level() >= es.ES2015 && !callsSuper(spec.body) {
			body = append(body, fragment.Statement(fragment.Text("super()"))...)
		}

		if frame.NeedsAlias() {
			body = append(body, fragment.Statement(fragment.Text(ctx.aliasKeyword()+" "+scope.AliasName+" = this"))...)
		}

		body = append(body, set.prologue...)
		body = append(body, main...)
		params = fragment.Seq(fragment.Text("("), fragment.Join(fragment.Text(", "), set.list), fragment.Text(")"))

		return nil
	})

	ctx.methods = ctx.methods[:len(ctx.methods)-1]

	if _, popErr := ctx.stack.Pop(); popErr != nil && err == nil {
		err = popErr
	}

	if err != nil {
		return nil, nil, err
	}

	return params, body, nil
}

func (ctx *Context) aliasKeyword() string {
	if ctx.Level() < es.ES2015 {
		return "var"
	}

	return "const"
}

func callsSuper(body *ast.Node) bool {
	return contains(body, func(node *ast.Node) bool {
		return node.Is(ast.KindSuper, ast.KindZsuper)
	}, ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass)
}

// genDef renders a definition outside a class body as a function
// declaration. Singleton definitions such as def self.x are treated the
// same way there.
func genDef(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	nameIdx := 0
	if node.Is(ast.KindDefs) {
		nameIdx = 1
	}

	name := string(node.NameAt(nameIdx))
	if !isIdentifier(ctx.Member(name)) {
		return nil, notImplemented(node, "function named %s", name)
	}

	if ctx.Position() == PositionExpression {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrStatementShaped}
	}

	params, body, err := ctx.method(methodSpec{
		name:     name,
		args:     node.NodeAt(nameIdx + 1),
		body:     node.NodeAt(nameIdx + 2),
		receiver: scope.ReceiverNone,
		discard:  strings.HasSuffix(name, "="),
	})
	if err != nil {
		return nil, err
	}

	return Stmts(fragment.Line(braced(fragment.Seq(fragment.Text("function "+ctx.Local(name)), params,
		fragment.Text(" ")), body))), nil
}

// functionBlock reports whether a block is a lambda or proc literal.
func functionBlock(node *ast.Node) bool {
	call := node.NodeAt(0)
	if call.Is(ast.KindLambda) {
		return true
	}

	return call.Is(ast.KindSend) && call.NodeAt(0) == nil && call.Len() == 2 &&
		(call.NameAt(1) == "lambda" || call.NameAt(1) == "proc")
}

// blockBody returns the statements of a block body and whether its value
// is returned.
func blockBody(body *ast.Node) ([]*ast.Node, bool) {
	if body.Is(ast.KindAutoreturn) {
		return body.Nodes(), true
	}

	statements := bodyStatements(body)

	return statements, len(statements) == 1
}

// loopStatements strips the autoreturn wrapper from a body rendered as a
// loop.
func loopStatements(body *ast.Node) []*ast.Node {
	if body.Is(ast.KindAutoreturn) {
		return body.Nodes()
	}

	return bodyStatements(body)
}

// functionLiteral renders bound parameters and a body as a function value.
type functionLiteral func(ctx *Context, set paramSet, statements []*ast.Node, returns bool) (fragment.Fragment, error)

// blockFunction renders a block with literal. kind decides what return,
// break and next may do inside it; discard drops the body value.
func (ctx *Context) blockFunction(args, body *ast.Node, kind loopKind, discard bool,
	literal functionLiteral,
) (fragment.Fragment, error) {
	statements, returns := blockBody(body)
	ctx.stack.Push(scope.FrameBlock, scope.ReceiverNone, "", statements...)

	var out fragment.Fragment

	err := ctx.withFunction(func() error {
		ctx.loops = append(ctx.loops, kind)

		set, err := ctx.params(args)
		if err != nil {
			return err
		}

		out, err = literal(ctx, set, statements, returns && !discard)

		return err
	})

	if _, popErr := ctx.stack.Pop(); popErr != nil && err == nil {
		err = popErr
	}

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (ctx *Context) arrow(set paramSet, statements []*ast.Node, returns bool) (fragment.Fragment, error) {
	params := fragment.Seq(fragment.Text("("), fragment.Join(fragment.Text(", "), set.list), fragment.Text(")"))
	if len(set.list) == 1 && simpleParam(set.list[0]) {
		params = fragment.Seq(set.list[0])
	}

	head := fragment.Seq(params, fragment.Text(" => "))

	if returns && len(statements) == 1 && len(set.prologue) == 0 && ctx.expressionShaped(statements[0]) {
		expr, err := ctx.ExprPrec(statements[0], precAssign)
		if err != nil {
			return nil, err
		}

		if unparen(statements[0]).Is(ast.KindHash) {
			expr = fragment.Seq(fragment.Text("("), expr, fragment.Text(")"))
		}

		return append(head, expr), nil
	}

	body, err := ctx.functionBody(set, statements, returns)
	if err != nil {
		return nil, err
	}

	return braced(head, body), nil
}

func simpleParam(param fragment.Fragment) bool {
	text, ok := param.(fragment.Text)

	return ok && isIdentifier(string(text))
}

func (ctx *Context) functionExpr(set paramSet, statements []*ast.Node, returns bool) (fragment.Fragment, error) {
	body, err := ctx.functionBody(set, statements, returns)
	if err != nil {
		return nil, err
	}

	head := fragment.Seq(fragment.Text("function("), fragment.Join(fragment.Text(", "), set.list), fragment.Text(") "))

	return braced(head, body), nil
}

func (ctx *Context) functionBody(set paramSet, statements []*ast.Node, returns bool) (fragment.Group, error) {
	pos := PositionStatement
	if returns {
		pos = PositionReturn
	}

	main, err := ctx.Body(statements, pos)
	if err != nil {
		return nil, err
	}

	body := append(fragment.Group{}, set.prologue...)

	return append(body, main...), nil
}

// expressionShaped reports whether node renders as a single expression
// without declaring locals, so it can be the concise body of an arrow.
func (ctx *Context) expressionShaped(node *ast.Node) bool {
	switch node.Kind() {
	case ast.KindIf:
		return ctx.ternary(node)
	case ast.KindCase, ast.KindWhile, ast.KindUntil, ast.KindWhilePost, ast.KindUntilPost, ast.KindFor,
		ast.KindKwbegin, ast.KindRescue, ast.KindEnsure, ast.KindReturn, ast.KindBreak, ast.KindNext,
		ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindSclass, ast.KindModule, ast.KindMasgn,
		ast.KindAutoreturn:
		return false
	case ast.KindBegin:
		if node.Len() != 1 {
			return false
		}
	case ast.KindSend:
		if node.NodeAt(0) == nil && node.NameAt(1) == "raise" {
			return false
		}
	case ast.KindBlock:
		if loopBlock(node) {
			return false
		}
	}

	return !contains(node, func(current *ast.Node) bool {
		return current.Is(ast.KindLvasgn, ast.KindOrAsgn, ast.KindAndAsgn)
	}, ast.KindBlock, ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule)
}

// ternary reports whether an if can be rendered as a conditional
// expression.
func (ctx *Context) ternary(node *ast.Node) bool {
	for _, branch := range []*ast.Node{node.NodeAt(1), node.NodeAt(2)} {
		if branch != nil && !ctx.expressionShaped(branch) {
			return false
		}
	}

	return ctx.expressionShaped(node.NodeAt(0)) || node.NodeAt(0).Is(ast.KindLvasgn)
}

// genBlockFunction passes a block to its call as a function expression.
func genBlockFunction(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.blockCall(node, (*Context).functionExpr)
}

// genBlockArrow passes a block to its call as an arrow function.
func genBlockArrow(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.blockCall(node, (*Context).arrow)
}

// plainBlock renders node with the generic block rule of the target level,
// skipping the loop rules registered for its method.
func (ctx *Context) plainBlock(node *ast.Node) (fragment.Fragment, error) {
	rule, ok := ctx.rules.Select(ast.KindBlock, ctx.Level())
	if !ok {
		return nil, notImplemented(node, "block")
	}

	return rule.Generate(ctx, node)
}

// blockCall renders a call with a block by passing the block as the last
// argument.
func (ctx *Context) blockCall(node *ast.Node, literal functionLiteral) (fragment.Fragment, error) {
	call, args, body := node.NodeAt(0), node.NodeAt(1), node.NodeAt(2)

	if functionBlock(node) {
		return ctx.blockFunction(args, body, loopFunction, false, literal)
	}

	fn, err := ctx.blockFunction(args, body, loopCallback, false, literal)
	if err != nil {
		return nil, err
	}

	extra := []fragment.Fragment{fn}

	switch call.Kind() {
	case ast.KindSend:
		return ctx.callSend(call, extra)
	case ast.KindCsend:
		if ctx.Level() < es.ES2020 {
			guard, err := ctx.ExprPrec(call.NodeAt(0), precAnd+1)
			if err != nil {
				return nil, err
			}

			invoked, err := ctx.callSend(call.Updated(ast.KindSend, call.Children()...), extra)
			if err != nil {
				return nil, err
			}

			return fragment.Seq(guard, fragment.Text(" && "), invoked), nil
		}

		return ctx.csendCall(call, extra)
	case ast.KindCall:
		return ctx.invokeCallee(call, extra)
	case ast.KindSuper, ast.KindZsuper:
		return ctx.superCall(call, extra)
	default:
		return nil, notImplemented(node, "block attached to %s", call.Kind())
	}
}
