package convert

import (
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/scope"
)

// kernelFunctions are receiverless calls that never resolve to self.
//
//nolint:gochecknoglobals // Read-only name set.
var kernelFunctions = map[ast.Name]bool{
	"puts": true, "print": true, "p": true, "pp": true, "require": true, "require_relative": true,
	"format": true, "sprintf": true, "printf": true, "rand": true, "srand": true, "sleep": true,
	"loop": true, "lambda": true, "proc": true, "Integer": true, "Float": true, "String": true,
	"Array": true, "gets": true, "exit": true, "abort": true, "at_exit": true, "catch": true,
	"throw": true, "system": true, "warn": true,
}

// typeChecks maps core classes to typeof results for is_a? and case/when.
//
//nolint:gochecknoglobals // Read-only name table.
var typeChecks = map[ast.Name]string{
	"String":    "string",
	"Symbol":    "string",
	"Integer":   "number",
	"Float":     "number",
	"Numeric":   "number",
	"TrueClass": "boolean",
	"Proc":      "function",
}

func sendArgs(node *ast.Node) []*ast.Node {
	return nodesFrom(node, 2)
}

// nodesFrom returns the node children starting at index from.
func nodesFrom(node *ast.Node, from int) []*ast.Node {
	children := node.Children()
	if len(children) <= from {
		return nil
	}

	args := make([]*ast.Node, 0, len(children)-from)

	for _, child := range children[from:] {
		if arg, ok := child.(*ast.Node); ok && arg != nil {
			args = append(args, arg)
		}
	}

	return args
}

// unparen looks through parenthesized single expressions.
func unparen(node *ast.Node) *ast.Node {
	for node.Is(ast.KindBegin) && node.Len() == 1 {
		node = node.NodeAt(0)
	}

	return node
}

func genSend(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.callSend(node, nil)
}

// receiver renders the object of a member access.
func (ctx *Context) receiver(recv *ast.Node) (fragment.Fragment, error) {
	if recv == nil {
		return fragment.Text(ctx.receiverText()), nil
	}

	if unparen(recv).Is(ast.KindInt, ast.KindFloat) {
		inner, err := ctx.Expr(recv)
		if err != nil {
			return nil, err
		}

		return fragment.Seq(fragment.Text("("), inner, fragment.Text(")")), nil
	}

	return ctx.ExprPrec(recv, precPrimary)
}

// callSend renders a method call. extra holds already rendered trailing
// arguments, such as the function of an attached block; a call with extra
// arguments is never rendered as a property access.
func (ctx *Context) callSend(node *ast.Node, extra []fragment.Fragment) (fragment.Fragment, error) {
	recv, method := node.NodeAt(0), node.NameAt(1)
	args := sendArgs(node)

	if setterName(method) && len(args) == 1 && extra == nil {
		target, err := ctx.sendTarget(node)
		if err != nil {
			return nil, err
		}

		return ctx.assignTo(target, args[0])
	}

	if method == "new" && recv != nil {
		class, err := ctx.ExprPrec(recv, precPrimary)
		if err != nil {
			return nil, err
		}

		return ctx.construct(class, args, extra, node)
	}

	if method == "new" && ctx.stack.Receiver().Kind == scope.ReceiverClass {
		return ctx.construct(fragment.Text(ctx.receiverText()), args, extra, node)
	}

	callee, thisArg, property, err := ctx.callee(node)
	if err != nil {
		return nil, err
	}

	if property && len(args) == 0 && extra == nil && !strings.HasSuffix(string(method), "!") {
		return callee, nil
	}

	return ctx.invoke(node, callee, thisArg, args, extra)
}

// callee resolves what a send calls. property reports whether a call
// without arguments reads a property instead.
func (ctx *Context) callee(node *ast.Node) (callee fragment.Fragment, thisArg string, property bool, err error) {
	recv, method := node.NodeAt(0), node.NameAt(1)
	member := ctx.Member(string(method))

	if !isIdentifier(member) {
		return nil, "", false, notImplemented(node, "method %s", method)
	}

	if recv != nil {
		recvFrag, err := ctx.receiver(recv)
		if err != nil {
			return nil, "", false, err
		}

		thisArg = fragment.Flatten(recvFrag)

		return fragment.Seq(recvFrag, fragment.Text("."+member)), thisArg, true, nil
	}

	resolution := ctx.stack.Receiver()
	if kernelFunctions[method] || resolution.Kind == scope.ReceiverNone {
		return fragment.Text(ctx.Local(string(method))), "null", false, nil
	}

	self := ctx.receiverText()
	getter := false

	if class := ctx.currentClass(); class != nil && resolution.Kind == scope.ReceiverInstance {
		getter = class.getters[string(method)]
	}

	return fragment.Text(self + "." + member), self, getter, nil
}

func (ctx *Context) invoke(node *ast.Node, callee fragment.Fragment, thisArg string, args []*ast.Node,
	extra []fragment.Fragment,
) (fragment.Fragment, error) {
	list, applied, err := ctx.callArgs(node, args, extra)
	if err != nil {
		return nil, err
	}

	if applied != nil {
		return fragment.Seq(callee, fragment.Text(".apply("+thisArg+", "), applied, fragment.Text(")")), nil
	}

	return fragment.Seq(callee, fragment.Text("("), fragment.Join(fragment.Text(", "), list), fragment.Text(")")), nil
}

// callArgs renders arguments. Below ES2015 a splat argument turns the
// whole list into one array for Function.prototype.apply.
func (ctx *Context) callArgs(node *ast.Node, args []*ast.Node, extra []fragment.Fragment) (
	list []fragment.Fragment, applied fragment.Fragment, err error,
) {
	splat := false

	for _, arg := range args {
		if arg.Is(ast.KindSplat) {
			splat = true
		}
	}

	if splat && ctx.Level() < es.ES2015 {
		if extra != nil {
			return nil, nil, notImplemented(node, "splat together with a block needs ES2015")
		}

		applied, err = ctx.concatArray(args)

		return nil, applied, err
	}

	list = make([]fragment.Fragment, 0, len(args)+len(extra))

	for _, arg := range args {
		item, err := ctx.element(arg)
		if err != nil {
			return nil, nil, err
		}

		list = append(list, item)
	}

	return append(list, extra...), nil, nil
}

func (ctx *Context) construct(class fragment.Fragment, args []*ast.Node, extra []fragment.Fragment, node *ast.Node) (
	fragment.Fragment, error,
) {
	list, applied, err := ctx.callArgs(node, args, extra)
	if err != nil {
		return nil, err
	}

	if applied != nil {
		return nil, notImplemented(node, "splat in a constructor call needs ES2015")
	}

	return fragment.Seq(fragment.Text("new "), class, fragment.Text("("),
		fragment.Join(fragment.Text(", "), list), fragment.Text(")")), nil
}

func genBinary(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	op := binaryOperators[node.NameAt(1)]

	args := sendArgs(node)
	if node.NodeAt(0) == nil || len(args) != 1 {
		return ctx.callSend(node, nil)
	}

	return ctx.binary(node.NodeAt(0), op, args[0])
}

func (ctx *Context) binary(left *ast.Node, op binaryOperator, right *ast.Node) (fragment.Fragment, error) {
	leftMin, rightMin := op.prec, op.prec+1
	if op.right {
		leftMin, rightMin = precUnary+1, op.prec
	}

	leftFrag, err := ctx.ExprPrec(left, leftMin)
	if err != nil {
		return nil, err
	}

	rightFrag, err := ctx.ExprPrec(right, rightMin)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(leftFrag, fragment.Text(" "+op.text+" "), rightFrag), nil
}

// genPow renders ** through Math.pow before the operator existed.
func genPow(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	args := sendArgs(node)
	if node.NodeAt(0) == nil || len(args) != 1 {
		return ctx.callSend(node, nil)
	}

	base, err := ctx.ExprPrec(node.NodeAt(0), precAssign)
	if err != nil {
		return nil, err
	}

	exponent, err := ctx.ExprPrec(args[0], precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(fragment.Text("Math.pow("), base, fragment.Text(", "), exponent, fragment.Text(")")), nil
}

func genEquality(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	args := sendArgs(node)
	if node.NodeAt(0) == nil || len(args) != 1 {
		return ctx.callSend(node, nil)
	}

	op := binaryOperators[node.NameAt(1)]

	// nil comparisons stay loose so undefined matches too.
	nilOperand := node.NodeAt(0).Is(ast.KindNil) || args[0].Is(ast.KindNil)
	if ctx.opts.Comparison == options.ComparisonStrict && !nilOperand {
		op.text += "="
	}

	return ctx.binary(node.NodeAt(0), op, args[0])
}

// genShovel renders << as a left shift on integers and push otherwise.
func genShovel(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	recv, args := node.NodeAt(0), sendArgs(node)
	if recv == nil || len(args) != 1 {
		return ctx.callSend(node, nil)
	}

	if recv.Is(ast.KindInt) {
		return ctx.binary(recv, binaryOperators["<<"], args[0])
	}

	recvFrag, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	value, err := ctx.ExprPrec(args[0], precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(recvFrag, fragment.Text(".push("), value, fragment.Text(")")), nil
}

func genMatch(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	left, args := node.NodeAt(0), sendArgs(node)
	if left == nil || len(args) != 1 {
		return nil, notImplemented(node, "match operator arity")
	}

	pattern, subject := left, args[0]
	if args[0].Is(ast.KindRegexp) {
		pattern, subject = args[0], left
	}

	patternFrag, err := ctx.ExprPrec(pattern, precPrimary)
	if err != nil {
		return nil, err
	}

	subjectFrag, err := ctx.ExprPrec(subject, precAssign)
	if err != nil {
		return nil, err
	}

	test := fragment.Seq(patternFrag, fragment.Text(".test("), subjectFrag, fragment.Text(")"))
	if node.NameAt(1) == "!~" {
		return fragment.Seq(fragment.Text("!"), test), nil
	}

	return test, nil
}

func genUnary(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	operand := node.NodeAt(0)
	if operand == nil || node.Len() > 2 {
		return ctx.callSend(node, nil)
	}

	text := unaryOperators[node.NameAt(1)]

	minPrec := precUnary
	if text == "-" || text == "+" {
		minPrec = precUnary + 1
	}

	inner, err := ctx.ExprPrec(operand, minPrec)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(fragment.Text(text), inner), nil
}

func genIndex(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.index(node.NodeAt(0), sendArgs(node))
}

// index renders element access. Ranges and start/length pairs slice;
// negative literal indexes count from the end.
func (ctx *Context) index(recv *ast.Node, args []*ast.Node) (fragment.Fragment, error) {
	recvFrag, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	switch len(args) {
	case 1:
		arg := unparen(args[0])

		if arg.Is(ast.KindIrange, ast.KindErange) {
			return ctx.sliceRange(recvFrag, arg)
		}

		if value, ok := arg.Child(0).(ast.Int); ok && arg.Is(ast.KindInt) && value < 0 {
			if ctx.Level() >= es.ES2022 {
				return fragment.Seq(recvFrag, fragment.Textf(".at(%d)", value)), nil
			}

			return fragment.Seq(recvFrag, fragment.Text("["), recvFrag, fragment.Textf(".length - %d]", -value)), nil
		}

		key, err := ctx.ExprPrec(arg, precAssign)
		if err != nil {
			return nil, err
		}

		return fragment.Seq(recvFrag, fragment.Text("["), key, fragment.Text("]")), nil
	case 2:
		start, err := ctx.ExprPrec(args[0], precAdditive)
		if err != nil {
			return nil, err
		}

		length, err := ctx.ExprPrec(args[1], precAdditive+1)
		if err != nil {
			return nil, err
		}

		end := fragment.Seq(start, fragment.Text(" + "), length)
		if left, right, ok := intPair(args[0], args[1]); ok {
			end = fragment.Seq(fragment.Text(strconv.FormatInt(left+right, 10)))
		}

		return fragment.Seq(recvFrag, fragment.Text(".slice("), start, fragment.Text(", "), end,
			fragment.Text(")")), nil
	default:
		return nil, notImplemented(recv, "index with %d arguments", len(args))
	}
}

func intPair(left, right *ast.Node) (int64, int64, bool) {
	leftValue, leftOK := left.Child(0).(ast.Int)
	rightValue, rightOK := right.Child(0).(ast.Int)

	if !left.Is(ast.KindInt) || !right.Is(ast.KindInt) || !leftOK || !rightOK {
		return 0, 0, false
	}

	return int64(leftValue), int64(rightValue), true
}

func (ctx *Context) sliceRange(recvFrag fragment.Fragment, rng *ast.Node) (fragment.Fragment, error) {
	start := fragment.Fragment(fragment.Text("0"))

	if low := rng.NodeAt(0); low != nil {
		frag, err := ctx.ExprPrec(low, precAssign)
		if err != nil {
			return nil, err
		}

		start = frag
	}

	out := fragment.Seq(recvFrag, fragment.Text(".slice("), start)

	high := rng.NodeAt(1)
	if high == nil {
		return append(out, fragment.Text(")")), nil
	}

	inclusive := rng.Is(ast.KindIrange)

	if value, ok := high.Child(0).(ast.Int); ok && high.Is(ast.KindInt) {
		switch {
		case inclusive && value == -1:
			return append(out, fragment.Text(")")), nil
		case inclusive:
			return append(out, fragment.Textf(", %d)", value+1)), nil
		default:
			return append(out, fragment.Textf(", %d)", value)), nil
		}
	}

	end, err := ctx.ExprPrec(high, precAdditive)
	if err != nil {
		return nil, err
	}

	out = append(out, fragment.Text(", "), end)
	if inclusive {
		out = append(out, fragment.Text(" + 1"))
	}

	return append(out, fragment.Text(")")), nil
}

func genIndexAssign(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	args := sendArgs(node)
	if len(args) != 2 {
		return nil, notImplemented(node, "index assignment with %d arguments", len(args))
	}

	target, err := ctx.index(node.NodeAt(0), args[:1])
	if err != nil {
		return nil, err
	}

	return ctx.assignTo(target, args[1])
}

func genInstanceOf(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	args := sendArgs(node)
	if len(args) != 1 {
		return nil, notImplemented(node, "%s arity", node.NameAt(1))
	}

	return ctx.typeTest(node.NodeAt(0), args[0])
}

// typeTest checks value against a class, using typeof for core classes.
func (ctx *Context) typeTest(value, class *ast.Node) (fragment.Fragment, error) {
	if class.Is(ast.KindConst) && class.NodeAt(0) == nil {
		name := class.NameAt(1)

		if name == "Array" {
			inner, err := ctx.ExprPrec(value, precAssign)
			if err != nil {
				return nil, err
			}

			return fragment.Seq(fragment.Text("Array.isArray("), inner, fragment.Text(")")), nil
		}

		if typeName, ok := typeChecks[name]; ok {
			inner, err := ctx.ExprPrec(value, precUnary)
			if err != nil {
				return nil, err
			}

			return fragment.Seq(fragment.Text("typeof "), inner, fragment.Text(" === "+ctx.Quote(typeName))), nil
		}
	}

	if value == nil {
		value = ast.New(ast.KindSelf, class.Span())
	}

	return ctx.binary(value, binaryOperator{text: "instanceof", prec: precRelational}, class)
}

func genRaise(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if node.NodeAt(0) != nil {
		return ctx.callSend(node, nil)
	}

	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	exc, err := ctx.exception(node, sendArgs(node))
	if err != nil {
		return nil, err
	}

	return Stmts(fragment.Statement(fragment.Text("throw "), exc)), nil
}

func (ctx *Context) exception(node *ast.Node, args []*ast.Node) (fragment.Fragment, error) {
	switch len(args) {
	case 0:
		if count := len(ctx.catchVars); count > 0 && ctx.catchVars[count-1] != "" {
			return fragment.Text(ctx.catchVars[count-1]), nil
		}

		return fragment.Text("new Error()"), nil
	case 1:
		arg := args[0]

		switch arg.Kind() {
		case ast.KindStr, ast.KindDstr:
			msg, err := ctx.Expr(arg)
			if err != nil {
				return nil, err
			}

			return fragment.Seq(fragment.Text("new Error("), msg, fragment.Text(")")), nil
		case ast.KindConst:
			class, err := ctx.Expr(arg)
			if err != nil {
				return nil, err
			}

			return fragment.Seq(fragment.Text("new "), class, fragment.Text("()")), nil
		default:
			return ctx.Expr(arg)
		}
	case 2:
		class, err := ctx.ExprPrec(args[0], precPrimary)
		if err != nil {
			return nil, err
		}

		msg, err := ctx.ExprPrec(args[1], precAssign)
		if err != nil {
			return nil, err
		}

		return fragment.Seq(fragment.Text("new "), class, fragment.Text("("), msg, fragment.Text(")")), nil
	default:
		return nil, notImplemented(node, "raise with %d arguments", len(args))
	}
}

func genBlockGiven(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	method := ctx.currentMethod()
	if method == nil || method.blockParam == "" {
		return nil, notImplemented(node, "block_given? outside a method")
	}

	return fragment.Text(method.blockParam + " != null"), nil
}

func genRangeToA(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if recv := unparen(node.NodeAt(0)); recv.Is(ast.KindIrange, ast.KindErange) && node.Len() == 2 {
		return ctx.Expr(recv)
	}

	return ctx.callSend(node, nil)
}

func genCsend(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.csendCall(node, nil)
}

func (ctx *Context) csendCall(node *ast.Node, extra []fragment.Fragment) (fragment.Fragment, error) {
	recv, method := node.NodeAt(0), node.NameAt(1)
	if setterName(method) {
		return nil, notImplemented(node, "safe navigation assignment")
	}

	recvFrag, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	member := ctx.Member(string(method))
	if !isIdentifier(member) {
		return nil, notImplemented(node, "method %s", method)
	}

	access := fragment.Seq(recvFrag, fragment.Text("?."+member))

	args := sendArgs(node)
	if len(args) == 0 && extra == nil {
		return access, nil
	}

	return ctx.invoke(node, access, fragment.Flatten(recvFrag), args, extra)
}

// genCsendES5 guards the call with the receiver: a && a.b.
func genCsendES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	guard, err := ctx.ExprPrec(node.NodeAt(0), precAnd+1)
	if err != nil {
		return nil, err
	}

	call, err := ctx.callSend(node.Updated(ast.KindSend, node.Children()...), nil)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(guard, fragment.Text(" && "), call), nil
}

func genAnd(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.binary(node.NodeAt(0), binaryOperator{text: "&&", prec: precAnd}, node.NodeAt(1))
}

func genOr(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.binary(node.NodeAt(0), binaryOperator{text: "||", prec: precOr}, node.NodeAt(1))
}

func genAttr(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	recvFrag, err := ctx.receiver(node.NodeAt(0))
	if err != nil {
		return nil, err
	}

	return fragment.Seq(recvFrag, fragment.Text("."+ctx.Member(string(node.NameAt(1))))), nil
}

func genCall(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.invokeCallee(node, nil)
}

func (ctx *Context) invokeCallee(node *ast.Node, extra []fragment.Fragment) (fragment.Fragment, error) {
	callee, err := ctx.ExprPrec(node.NodeAt(0), precPrimary)
	if err != nil {
		return nil, err
	}

	thisArg := "null"
	if target := node.NodeAt(0); target.Is(ast.KindAttr) {
		recvFrag, err := ctx.receiver(target.NodeAt(0))
		if err != nil {
			return nil, err
		}

		thisArg = fragment.Flatten(recvFrag)
	}

	return ctx.invoke(node, callee, thisArg, nodesFrom(node, 1), extra)
}

func genYield(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	method := ctx.currentMethod()
	if method == nil || method.blockParam == "" {
		return nil, notImplemented(node, "yield outside a method")
	}

	return ctx.invoke(node, fragment.Text(method.blockParam), "null", node.Nodes(), nil)
}

// genDefined renders defined? as a typeof test. Method calls are looked up
// as members and never invoked.
func genDefined(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	var (
		inner fragment.Fragment
		err   error
	)

	if target := unparen(node.NodeAt(0)); target.Is(ast.KindSend, ast.KindCsend) {
		inner, err = ctx.methodReference(target)
	} else {
		inner, err = ctx.ExprPrec(target, precUnary)
	}

	if err != nil {
		return nil, err
	}

	return fragment.Seq(fragment.Text("typeof "), inner, fragment.Text(` !== "undefined"`)), nil
}

// methodReference renders the function a send would call without calling
// it. The receiver expression is still evaluated.
func (ctx *Context) methodReference(node *ast.Node) (fragment.Fragment, error) {
	recv, method := node.NodeAt(0), node.NameAt(1)
	member := ctx.Member(string(method))

	if !isIdentifier(member) {
		return nil, notImplemented(node, "defined? of method %s", method)
	}

	if recv == nil {
		if kernelFunctions[method] || ctx.stack.Receiver().Kind == scope.ReceiverNone {
			return fragment.Text(ctx.Local(string(method))), nil
		}

		return fragment.Text(ctx.receiverText() + "." + member), nil
	}

	recvFrag, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	dot := "."
	if node.Is(ast.KindCsend) && ctx.Level() >= es.ES2020 {
		dot = "?."
	}

	return fragment.Seq(recvFrag, fragment.Text(dot+member)), nil
}

func genBlockPass(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	inner := node.NodeAt(0)

	switch {
	case inner == nil:
		method := ctx.currentMethod()
		if method == nil || method.blockParam == "" {
			return nil, notImplemented(node, "anonymous block forwarding outside a method")
		}

		return fragment.Text(method.blockParam), nil
	case inner.Is(ast.KindSym):
		member := "item." + ctx.Member(string(inner.NameAt(0)))
		if ctx.Level() >= es.ES2015 {
			return fragment.Text("item => " + member), nil
		}

		return fragment.Text("function(item) {return " + member + "}"), nil
	default:
		return ctx.ExprPrec(inner, precAssign)
	}
}

// genSuper renders super calls. zsuper forwards the parameters of the
// enclosing method.
func genSuper(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.superCall(node, nil)
}

func (ctx *Context) superCall(node *ast.Node, extra []fragment.Fragment) (fragment.Fragment, error) {
	method, class := ctx.currentMethod(), ctx.currentClass()
	if method == nil || class == nil {
		return nil, notImplemented(node, "super outside a class method")
	}

	implicit := node.Is(ast.KindZsuper)

	var list []fragment.Fragment

	if implicit {
		for _, param := range method.params {
			if strings.HasPrefix(param, "...") && ctx.Level() < es.ES2015 {
				return ctx.superApply(node, method, class)
			}

			list = append(list, fragment.Text(param))
		}

		list = append(list, extra...)
	} else {
		args, applied, err := ctx.callArgs(node, node.Nodes(), extra)
		if err != nil {
			return nil, err
		}

		if applied != nil {
			return nil, notImplemented(node, "splat in super needs ES2015")
		}

		list = args
	}

	joined := fragment.Join(fragment.Text(", "), list)
	name := ctx.Member(method.name)

	if ctx.Level() >= es.ES2015 {
		if method.constructor {
			return fragment.Seq(fragment.Text("super("), joined, fragment.Text(")")), nil
		}

		return fragment.Seq(fragment.Text("super."+name+"("), joined, fragment.Text(")")), nil
	}

	parent, err := ctx.superTarget(node, method, class)
	if err != nil {
		return nil, err
	}

	out := fragment.Seq(fragment.Text(parent + ".call(" + ctx.receiverText()))
	if len(list) > 0 {
		out = append(out, fragment.Text(", "), joined)
	}

	return append(out, fragment.Text(")")), nil
}

func (ctx *Context) superApply(node *ast.Node, method *methodInfo, class *classInfo) (fragment.Fragment, error) {
	parent, err := ctx.superTarget(node, method, class)
	if err != nil {
		return nil, err
	}

	return fragment.Text(parent + ".apply(" + ctx.receiverText() + ", arguments)"), nil
}

func (ctx *Context) superTarget(node *ast.Node, method *methodInfo, class *classInfo) (string, error) {
	if class.superclass == nil {
		return "", notImplemented(node, "super in a class without a superclass")
	}

	parent := fragment.Flatten(class.superclass)
	name := ctx.Member(method.name)

	switch {
	case method.constructor:
		return parent, nil
	case method.static:
		return parent + "." + name, nil
	default:
		return parent + ".prototype." + name, nil
	}
}
