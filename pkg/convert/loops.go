package convert

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/scope"
)

//nolint:gochecknoglobals // Read-only name set.
var loopMethods = map[ast.Name]bool{
	"each": true, "each_with_index": true, "each_pair": true, "times": true,
	"upto": true, "downto": true, "loop": true,
}

// loopBlock reports whether a block renders as a native loop in statement
// position.
func loopBlock(node *ast.Node) bool {
	call := node.NodeAt(0)

	return call.Is(ast.KindSend) && loopMethods[call.NameAt(1)]
}

// inBlockFrame runs fn inside a block frame for statements.
func (ctx *Context) inBlockFrame(statements []*ast.Node, fn func() error) error {
	ctx.stack.Push(scope.FrameBlock, scope.ReceiverNone, "", statements...)

	err := fn()

	if _, popErr := ctx.stack.Pop(); popErr != nil && err == nil {
		err = popErr
	}

	return err
}

// nativeBody renders the statements of a loop body.
func (ctx *Context) nativeBody(statements []*ast.Node) (fragment.Group, error) {
	var body fragment.Group

	err := ctx.withLoop(loopNative, func() error {
		var err error

		body, err = ctx.Body(statements, PositionStatement)

		return err
	})

	return body, err
}

// simpleParams returns the parameter names of a block when every
// parameter is a plain positional one.
func simpleParams(args *ast.Node) ([]string, bool) {
	var names []string

	for _, param := range args.Nodes() {
		if !param.Is(ast.KindArg) {
			return nil, false
		}

		names = append(names, string(param.NameAt(0)))
	}

	return names, true
}

// bindLoopVar binds a loop variable in the current frame and returns the
// declaration keyword for the loop head.
func (ctx *Context) bindLoopVar(name string, counter bool) string {
	decl := ctx.stack.DeclFor(name)
	ctx.stack.Bind(name)

	if counter && decl == scope.DeclareConst {
		decl = scope.DeclareLet
	}

	return decl.Keyword() + " "
}

func (ctx *Context) forEachCall(recv, args, body *ast.Node, literal functionLiteral) (fragment.Fragment, error) {
	recvFrag, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	fn, err := ctx.blockFunction(args, body, loopCallback, true, literal)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(recvFrag, fragment.Text(".forEach("), fn, fragment.Text(")")), nil
}

// iteration is an each-style block taking at most two plain parameters,
// converted in statement position.
type iteration struct {
	recv       *ast.Node
	names      []string
	statements []*ast.Node
}

// iterationOf returns the loop shape of an each-style block. When the block
// cannot become a native loop, out holds its rendering and ok is false.
func (ctx *Context) iterationOf(node *ast.Node, literal functionLiteral) (iteration, fragment.Fragment, bool, error) {
	call, args, body := node.NodeAt(0), node.NodeAt(1), node.NodeAt(2)
	names, simple := simpleParams(args)

	if len(sendArgs(call)) > 0 || !simple || len(names) > 2 {
		out, err := ctx.plainBlock(node)

		return iteration{}, out, false, err
	}

	if ctx.Position() == PositionExpression {
		out, err := ctx.forEachCall(call.NodeAt(0), args, body, literal)

		return iteration{}, out, false, err
	}

	return iteration{recv: call.NodeAt(0), names: names, statements: loopStatements(body)}, nil, true, nil
}

// eachOf extends iterationOf with the loops every level renders alike:
// counting loops over ranges and key value loops over hashes.
func (ctx *Context) eachOf(node *ast.Node, literal functionLiteral) (iteration, fragment.Fragment, bool, error) {
	loop, out, ok, err := ctx.iterationOf(node, literal)
	if !ok || err != nil {
		return loop, out, ok, err
	}

	recv := unparen(loop.recv)

	switch {
	case recv.Is(ast.KindIrange, ast.KindErange) && len(loop.names) <= 1:
		out, err = ctx.rangeLoop(loop.names, recv, loop.statements)
	case len(loop.names) == 2 || node.NodeAt(0).NameAt(1) == "each_pair":
		out, err = ctx.pairLoop(loop.recv, loop.names, loop.statements)
	default:
		return loop, nil, true, nil
	}

	return loop, out, false, err
}

// genEachES5 renders each as an index loop when the block returns from the
// method and as a forEach call otherwise.
func genEachES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	loop, out, ok, err := ctx.eachOf(node, (*Context).functionExpr)
	if !ok || err != nil {
		return out, err
	}

	if containsReturn(node.NodeAt(2)) {
		return ctx.indexLoop(loop.recv, loop.names, loop.statements)
	}

	call, err := ctx.forEachCall(loop.recv, node.NodeAt(1), node.NodeAt(2), (*Context).functionExpr)
	if err != nil {
		return nil, err
	}

	return Stmts(fragment.Statement(call)), nil
}

// genEach renders each as a for...of loop.
func genEach(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	loop, out, ok, err := ctx.eachOf(node, (*Context).arrow)
	if !ok || err != nil {
		return out, err
	}

	iterable, err := ctx.receiver(loop.recv)
	if err != nil {
		return nil, err
	}

	return ctx.forOf(iterable, loop.names, loop.statements)
}

// forOf renders for (const x of iterable). Several names destructure each
// element.
func (ctx *Context) forOf(iterable fragment.Fragment, names []string, statements []*ast.Node) (fragment.Fragment, error) {
	var out fragment.Group

	err := ctx.inBlockFrame(statements, func() error {
		target, keyword := ctx.loopTarget(names)

		body, err := ctx.nativeBody(statements)
		if err != nil {
			return err
		}

		head := fragment.Seq(fragment.Text("for ("+keyword), target, fragment.Text(" of "), iterable,
			fragment.Text(") "))
		out = fragment.Line(braced(head, body))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Stmts(out...), nil
}

func (ctx *Context) loopTarget(names []string) (fragment.Fragment, string) {
	if len(names) == 0 {
		names = []string{ctx.Temp("item")}
	}

	keyword := "const "
	items := make([]fragment.Fragment, 0, len(names))

	for _, name := range names {
		if word := ctx.bindLoopVar(name, false); word != "const " {
			keyword = word
		}

		items = append(items, fragment.Text(ctx.Local(name)))
	}

	if len(items) == 1 {
		return items[0], keyword
	}

	return fragment.Seq(fragment.Text("["), fragment.Join(fragment.Text(", "), items), fragment.Text("]")), keyword
}

// pairLoop iterates the entries of an object.
func (ctx *Context) pairLoop(recv *ast.Node, names []string, statements []*ast.Node) (fragment.Fragment, error) {
	object, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	if ctx.Level() >= es.ES2017 {
		entries := fragment.Seq(fragment.Text("Object.entries("), object, fragment.Text(")"))

		return ctx.forOf(entries, names, statements)
	}

	var out fragment.Group

	err = ctx.inBlockFrame(statements, func() error {
		key := ctx.Temp("key")
		if len(names) > 0 {
			key = names[0]
		}

		keyword := ctx.bindLoopVar(key, false)

		var body fragment.Group

		if len(names) > 1 {
			valueKeyword := ctx.bindLoopVar(names[1], false)
			body = fragment.Statement(fragment.Text(valueKeyword+ctx.Local(names[1])+" = "), object,
				fragment.Text("["+ctx.Local(key)+"]"))
		}

		inner, err := ctx.nativeBody(statements)
		if err != nil {
			return err
		}

		body = append(body, inner...)
		head := fragment.Seq(fragment.Text("for ("+keyword+ctx.Local(key)+" in "), object, fragment.Text(") "))
		out = fragment.Line(braced(head, body))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Stmts(out...), nil
}

// countingLoop renders for (let i = from; i cmp to; i step).
func (ctx *Context) countingLoop(names []string, from, to fragment.Fragment, cmp, step string,
	statements []*ast.Node, prologue func(counter string) fragment.Group,
) (fragment.Fragment, error) {
	var out fragment.Group

	err := ctx.inBlockFrame(statements, func() error {
		counter := ctx.Temp("i")
		if len(names) > 0 {
			counter = names[0]
		}

		keyword := ctx.bindLoopVar(counter, true)
		local := ctx.Local(counter)

		var body fragment.Group
		if prologue != nil {
			body = prologue(local)
		}

		inner, err := ctx.nativeBody(statements)
		if err != nil {
			return err
		}

		body = append(body, inner...)
		head := fragment.Seq(fragment.Text("for ("+keyword+local+" = "), from,
			fragment.Text("; "+local+" "+cmp+" "), to, fragment.Text("; "+local+step+") "))
		out = fragment.Line(braced(head, body))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Stmts(out...), nil
}

func (ctx *Context) rangeLoop(names []string, rng *ast.Node, statements []*ast.Node) (fragment.Fragment, error) {
	if rng.NodeAt(0) == nil || rng.NodeAt(1) == nil {
		return nil, notImplemented(rng, "iteration over an open range")
	}

	from, err := ctx.ExprPrec(rng.NodeAt(0), precAssign)
	if err != nil {
		return nil, err
	}

	to, err := ctx.ExprPrec(rng.NodeAt(1), precRelational+1)
	if err != nil {
		return nil, err
	}

	cmp := "<="
	if rng.Is(ast.KindErange) {
		cmp = "<"
	}

	return ctx.countingLoop(names, from, to, cmp, "++", statements, nil)
}

// genEachWithIndexES5 renders each_with_index as a counting loop over a
// simple receiver.
func genEachWithIndexES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	loop, out, ok, err := ctx.iterationOf(node, (*Context).functionExpr)
	if !ok || err != nil {
		return out, err
	}

	if !simpleExpr(loop.recv) {
		call, err := ctx.forEachCall(loop.recv, node.NodeAt(1), node.NodeAt(2), (*Context).functionExpr)
		if err != nil {
			return nil, err
		}

		return Stmts(fragment.Statement(call)), nil
	}

	recvFrag, err := ctx.receiver(loop.recv)
	if err != nil {
		return nil, err
	}

	names := loop.names

	var index []string
	if len(names) == 2 {
		index = names[1:]
	}

	to := fragment.Seq(recvFrag, fragment.Text(".length"))

	return ctx.countingLoop(index, fragment.Text("0"), to, "<", "++", loop.statements, func(counter string) fragment.Group {
		if len(names) == 0 {
			return nil
		}

		keyword := ctx.bindLoopVar(names[0], false)

		return fragment.Statement(fragment.Text(keyword+ctx.Local(names[0])+" = "), recvFrag,
			fragment.Text("["+counter+"]"))
	})
}

// genEachWithIndex renders each_with_index as a for...of loop over
// entries().
func genEachWithIndex(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	loop, out, ok, err := ctx.iterationOf(node, (*Context).arrow)
	if !ok || err != nil {
		return out, err
	}

	recvFrag, err := ctx.receiver(loop.recv)
	if err != nil {
		return nil, err
	}

	switch len(loop.names) {
	case 0, 1:
		return ctx.forOf(recvFrag, loop.names, loop.statements)
	default:
		entries := fragment.Seq(recvFrag, fragment.Text(".entries()"))

		return ctx.forOf(entries, []string{loop.names[1], loop.names[0]}, loop.statements)
	}
}

func genTimes(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	call, args, body := node.NodeAt(0), node.NodeAt(1), node.NodeAt(2)
	names, simple := simpleParams(args)

	if call.NodeAt(0) == nil || len(sendArgs(call)) > 0 || !simple || len(names) > 1 {
		return ctx.plainBlock(node)
	}

	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	count, err := ctx.ExprPrec(call.NodeAt(0), precRelational+1)
	if err != nil {
		return nil, err
	}

	return ctx.countingLoop(names, fragment.Text("0"), count, "<", "++", loopStatements(body), nil)
}

func genUpto(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.stepLoop(node, "<=", "++")
}

func genDownto(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.stepLoop(node, ">=", "--")
}

func (ctx *Context) stepLoop(node *ast.Node, cmp, step string) (fragment.Fragment, error) {
	call, args, body := node.NodeAt(0), node.NodeAt(1), node.NodeAt(2)
	names, simple := simpleParams(args)

	limit := sendArgs(call)
	if call.NodeAt(0) == nil || len(limit) != 1 || !simple || len(names) > 1 {
		return ctx.plainBlock(node)
	}

	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	from, err := ctx.ExprPrec(call.NodeAt(0), precAssign)
	if err != nil {
		return nil, err
	}

	to, err := ctx.ExprPrec(limit[0], precRelational+1)
	if err != nil {
		return nil, err
	}

	return ctx.countingLoop(names, from, to, cmp, step, loopStatements(body), nil)
}

// genLoop renders loop do ... end as an endless while.
func genLoop(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	call := node.NodeAt(0)
	if call.NodeAt(0) != nil || len(sendArgs(call)) > 0 {
		return ctx.plainBlock(node)
	}

	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	statements := loopStatements(node.NodeAt(2))

	var out fragment.Group

	err := ctx.inBlockFrame(statements, func() error {
		body, err := ctx.nativeBody(statements)
		if err != nil {
			return err
		}

		out = fragment.Line(braced(fragment.Text("while (true) "), body))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Stmts(out...), nil
}

// simpleExpr reports whether evaluating node twice is harmless.
func simpleExpr(node *ast.Node) bool {
	switch node.Kind() {
	case ast.KindLvar, ast.KindIvar, ast.KindGvar, ast.KindCvar, ast.KindSelf, ast.KindInt, ast.KindFloat,
		ast.KindStr, ast.KindSym, ast.KindNil, ast.KindTrue, ast.KindFalse, ast.KindJSRaw:
		return true
	case ast.KindConst:
		return node.NodeAt(0) == nil || simpleExpr(node.NodeAt(0))
	default:
		return false
	}
}

// genFor renders for x in iterable. The loop does not open a Ruby scope,
// so the body shares the enclosing frame.
func genFor(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	target, iter := node.NodeAt(0), unparen(node.NodeAt(1))
	statements := loopStatements(node.NodeAt(2))

	var names []string
	for _, variable := range flatTargets([]*ast.Node{target}) {
		names = append(names, string(variable.NameAt(0)))
	}

	if iter.Is(ast.KindIrange, ast.KindErange) && target.Is(ast.KindLvasgn) {
		return ctx.rangeLoop(names, iter, statements)
	}

	if target.Is(ast.KindMlhs) && ctx.Level() < es.ES2015 {
		return nil, notImplemented(node, "destructuring loop variable needs ES2015")
	}

	if ctx.Level() < es.ES2015 {
		return ctx.indexLoop(iter, names, statements)
	}

	iterable, err := ctx.receiver(iter)
	if err != nil {
		return nil, err
	}

	return ctx.forOf(iterable, names, statements)
}

// indexLoop renders an ES5 counting loop over the elements of an array,
// binding the first name to each element. A receiver that is not a simple
// expression is evaluated once into a temporary.
func (ctx *Context) indexLoop(recv *ast.Node, names []string, statements []*ast.Node) (fragment.Fragment, error) {
	iterable, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	var out fragment.Group

	if !simpleExpr(unparen(recv)) {
		temp := ctx.Temp("list")
		out = fragment.Statement(fragment.Text("var "+temp+" = "), iterable)
		iterable = fragment.Text(temp)
	}

	to := fragment.Seq(iterable, fragment.Text(".length"))

	loop, err := ctx.countingLoop(nil, fragment.Text("0"), to, "<", "++", statements,
		func(counter string) fragment.Group {
			if len(names) == 0 {
				return nil
			}

			keyword := ctx.bindLoopVar(names[0], false)

			return fragment.Statement(fragment.Text(keyword+ctx.Local(names[0])+" = "), iterable,
				fragment.Text("["+counter+"]"))
		})
	if err != nil {
		return nil, err
	}

	return Stmts(append(out, loop.(Statements).Group...)...), nil
}

// containsReturn reports whether a block body returns from the enclosing
// method.
func containsReturn(body *ast.Node) bool {
	return body != nil && contains(body, func(node *ast.Node) bool {
		return node.Is(ast.KindReturn)
	}, ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass)
}

func genWhile(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.whileLoop(node, false)
}

func genUntil(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.whileLoop(node, true)
}

func (ctx *Context) condition(cond *ast.Node, negate bool) (fragment.Fragment, error) {
	if !negate {
		return ctx.Expr(cond)
	}

	inner, err := ctx.ExprPrec(cond, precUnary)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(fragment.Text("!"), inner), nil
}

func (ctx *Context) whileLoop(node *ast.Node, negate bool) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	cond, err := ctx.condition(node.NodeAt(0), negate)
	if err != nil {
		return nil, err
	}

	body, err := ctx.nativeBody(bodyStatements(node.NodeAt(1)))
	if err != nil {
		return nil, err
	}

	head := fragment.Seq(fragment.Text("while ("), cond, fragment.Text(") "))

	return Stmts(fragment.Line(braced(head, body))...), nil
}

func genWhilePost(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.doWhile(node, false)
}

func genUntilPost(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.doWhile(node, true)
}

func (ctx *Context) doWhile(node *ast.Node, negate bool) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	body, err := ctx.nativeBody(bodyStatements(node.NodeAt(1)))
	if err != nil {
		return nil, err
	}

	cond, err := ctx.condition(node.NodeAt(0), negate)
	if err != nil {
		return nil, err
	}

	return Stmts(fragment.Statement(braced(fragment.Text("do "), body), fragment.Text(" while ("), cond,
		fragment.Text(")"))...), nil
}

func genBreak(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	kind, ok := ctx.currentLoop()
	if !ok {
		return nil, notImplemented(node, "break outside a loop")
	}

	if kind != loopNative {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrBreakOutsideLoop}
	}

	return Stmts(fragment.Statement(fragment.Text("break"))...), nil
}

func genNext(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	kind, ok := ctx.currentLoop()
	if !ok {
		return nil, notImplemented(node, "next outside a loop or block")
	}

	if kind == loopNative {
		return Stmts(fragment.Statement(fragment.Text("continue"))...), nil
	}

	if value := node.NodeAt(0); value != nil {
		expr, err := ctx.Expr(value)
		if err != nil {
			return nil, err
		}

		return Stmts(fragment.Statement(fragment.Text("return "), expr)...), nil
	}

	return Stmts(fragment.Statement(fragment.Text("return"))...), nil
}
