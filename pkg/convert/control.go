package convert

import (
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
)

func genIf(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() != PositionExpression {
		chain, err := ctx.ifChain(node, ctx.Position())
		if err != nil {
			return nil, err
		}

		return Stmts(fragment.Line(chain)...), nil
	}

	if !ctx.ternary(node) {
		return ctx.IIFE(node)
	}

	cond, err := ctx.ExprPrec(node.NodeAt(0), precOr)
	if err != nil {
		return nil, err
	}

	then, err := ctx.ExprPrec(node.NodeAt(1), precAssign)
	if err != nil {
		return nil, err
	}

	els, err := ctx.ExprPrec(node.NodeAt(2), precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(cond, fragment.Text(" ? "), then, fragment.Text(" : "), els), nil
}

// ifChain renders an if statement without the final line end. An if with
// only an else branch is an unless and tests the negated condition; an
// else branch holding another if continues the chain.
func (ctx *Context) ifChain(node *ast.Node, pos Position) (fragment.Group, error) {
	cond, then, els := node.NodeAt(0), node.NodeAt(1), node.NodeAt(2)

	negate := then == nil && els != nil
	if negate {
		then, els = els, nil
	}

	condFrag, err := ctx.condition(cond, negate)
	if err != nil {
		return nil, err
	}

	thenBody, err := ctx.BodyOf(then, pos)
	if err != nil {
		return nil, err
	}

	out := braced(fragment.Seq(fragment.Text("if ("), condFrag, fragment.Text(") ")), thenBody)

	switch {
	case els == nil:
		return out, nil
	case els.Is(ast.KindIf) && els.NodeAt(1) != nil:
		rest, err := ctx.ifChain(els, pos)
		if err != nil {
			return nil, err
		}

		return append(append(out, fragment.Text(" else ")), rest...), nil
	default:
		elseBody, err := ctx.BodyOf(els, pos)
		if err != nil {
			return nil, err
		}

		return append(out, braced(fragment.Text(" else "), elseBody)...), nil
	}
}

// whenClauses splits a case node into its when clauses and else body.
func whenClauses(node *ast.Node) ([]*ast.Node, *ast.Node) {
	children := node.Children()

	var (
		whens []*ast.Node
		els   *ast.Node
	)

	for idx, child := range children[1:] {
		clause, _ := child.(*ast.Node)
		if clause.Is(ast.KindWhen) {
			whens = append(whens, clause)
		} else if idx == len(children)-2 {
			els = clause
		}
	}

	return whens, els
}

func genCase(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	subject := node.NodeAt(0)
	whens, els := whenClauses(node)

	if subject != nil && switchable(whens) {
		return ctx.switchStatement(subject, whens, els)
	}

	return ctx.caseChain(node, subject, whens, els)
}

// switchable reports whether every when tests plain values and no branch
// breaks out of an enclosing loop, which a switch would capture.
func switchable(whens []*ast.Node) bool {
	for _, clause := range whens {
		children := clause.Nodes()
		if len(children) == 0 {
			return false
		}

		for _, test := range clause.Children()[:clause.Len()-1] {
			testNode, _ := test.(*ast.Node)
			if !switchValue(testNode) {
				return false
			}
		}

		body := clause.NodeAt(clause.Len() - 1)
		if contains(body, func(current *ast.Node) bool { return current.Is(ast.KindBreak) },
			ast.KindWhile, ast.KindUntil, ast.KindWhilePost, ast.KindUntilPost, ast.KindFor, ast.KindBlock,
			ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule) {
			return false
		}
	}

	return true
}

func switchValue(node *ast.Node) bool {
	switch node.Kind() {
	case ast.KindInt, ast.KindFloat, ast.KindStr, ast.KindSym, ast.KindNil, ast.KindTrue, ast.KindFalse:
		return true
	case ast.KindConst:
		return constantName(string(node.NameAt(1)))
	default:
		return false
	}
}

// constantName reports whether name looks like a value constant such as
// MAX_SIZE rather than a class.
func constantName(name string) bool {
	return name != "" && strings.IndexFunc(name, unicode.IsLower) < 0
}

func (ctx *Context) switchStatement(subject *ast.Node, whens []*ast.Node, els *ast.Node) (fragment.Fragment, error) {
	subjectFrag, err := ctx.Expr(subject)
	if err != nil {
		return nil, err
	}

	pos := ctx.Position()

	var cases fragment.Group

	for _, clause := range whens {
		for _, test := range clause.Children()[:clause.Len()-1] {
			value, err := ctx.Expr(test.(*ast.Node))
			if err != nil {
				return nil, err
			}

			cases = append(cases, fragment.Line(fragment.Text("case "), value, fragment.Text(":"))...)
		}

		body := clause.NodeAt(clause.Len() - 1)

		inner, err := ctx.BodyOf(body, pos)
		if err != nil {
			return nil, err
		}

		if !terminates(body, pos) {
			inner = append(inner, fragment.Statement(fragment.Text("break"))...)
		}

		cases = append(cases, fragment.Indent{})
		cases = append(cases, inner...)
		cases = append(cases, fragment.Outdent{})
	}

	if els != nil {
		inner, err := ctx.BodyOf(els, pos)
		if err != nil {
			return nil, err
		}

		cases = append(cases, fragment.Line(fragment.Text("default:"))...)
		cases = append(cases, fragment.Indent{})
		cases = append(cases, inner...)
		cases = append(cases, fragment.Outdent{})
	}

	head := fragment.Seq(fragment.Text("switch ("), subjectFrag, fragment.Text(") "))

	return Stmts(fragment.Line(braced(head, cases))...), nil
}

// caseChain renders a case as an if/else chain built from synthetic tests.
func (ctx *Context) caseChain(node, subject *ast.Node, whens []*ast.Node, els *ast.Node) (fragment.Fragment, error) {
	var out fragment.Group

	if subject != nil && !simpleExpr(subject) {
		value, err := ctx.Expr(subject)
		if err != nil {
			return nil, err
		}

		temp := ctx.Temp("case")
		out = fragment.Statement(fragment.Text(ctx.aliasKeyword()+" "+temp+" = "), value)
		subject = ast.New(ast.KindJSRaw, subject.Span(), ast.Str(temp))
	}

	chain := els

	for idx := len(whens) - 1; idx >= 0; idx-- {
		clause := whens[idx]

		var tests []*ast.Node

		for _, test := range clause.Children()[:clause.Len()-1] {
			tests = append(tests, ctx.whenTest(subject, test.(*ast.Node)))
		}

		cond := tests[0]
		for _, test := range tests[1:] {
			cond = ast.New(ast.KindOr, node.Span(), cond, test)
		}

		chain = ast.New(ast.KindIf, clause.Span(), cond, clause.NodeAt(clause.Len()-1), chain)
	}

	if chain == nil {
		return Stmts(out...), nil
	}

	if !chain.Is(ast.KindIf) {
		body, err := ctx.BodyOf(chain, ctx.Position())
		if err != nil {
			return nil, err
		}

		return Stmts(append(out, body...)...), nil
	}

	rendered, err := ctx.ifChain(chain, ctx.Position())
	if err != nil {
		return nil, err
	}

	return Stmts(append(out, fragment.Line(rendered)...)...), nil
}

// whenTest builds the condition matching subject against one when value.
func (ctx *Context) whenTest(subject, test *ast.Node) *ast.Node {
	span := test.Span()

	if subject == nil {
		return test
	}

	switch {
	case test.Is(ast.KindSplat):
		list := test.NodeAt(0)
		if ctx.Level() >= es.ES2016 {
			return ast.New(ast.KindSend, span, list, ast.Name("includes"), subject)
		}

		index := ast.New(ast.KindSend, span, list, ast.Name("indexOf"), subject)

		return ast.New(ast.KindSend, span, index, ast.Name("!="), ast.New(ast.KindInt, span, ast.Int(-1)))
	case test.Is(ast.KindIrange, ast.KindErange):
		var cond *ast.Node

		if low := test.NodeAt(0); low != nil {
			cond = ast.New(ast.KindSend, span, subject, ast.Name(">="), low)
		}

		if high := test.NodeAt(1); high != nil {
			op := ast.Name("<=")
			if test.Is(ast.KindErange) {
				op = "<"
			}

			upper := ast.New(ast.KindSend, span, subject, op, high)
			if cond == nil {
				return upper
			}

			cond = ast.New(ast.KindAnd, span, cond, upper)
		}

		if cond == nil {
			return ast.New(ast.KindTrue, span)
		}

		return cond
	case test.Is(ast.KindRegexp):
		return ast.New(ast.KindSend, span, test, ast.Name("=~"), subject)
	case test.Is(ast.KindConst) && !constantName(string(test.NameAt(1))):
		return ast.New(ast.KindSend, span, subject, ast.Name("is_a?"), test)
	default:
		return ast.New(ast.KindSend, span, subject, ast.Name("=="), test)
	}
}

// terminates reports whether control never falls off the end of node
// when rendered in pos.
func terminates(node *ast.Node, pos Position) bool {
	if node == nil {
		return false
	}

	switch node.Kind() {
	case ast.KindReturn, ast.KindBreak, ast.KindNext:
		return true
	case ast.KindSend:
		if node.NodeAt(0) == nil && node.NameAt(1) == "raise" {
			return true
		}
	case ast.KindBegin, ast.KindKwbegin, ast.KindAutoreturn:
		if node.Len() == 0 {
			return false
		}

		return terminates(node.NodeAt(node.Len()-1), pos)
	case ast.KindIf:
		return terminates(node.NodeAt(1), pos) && terminates(node.NodeAt(2), pos)
	case ast.KindWhile, ast.KindUntil, ast.KindWhilePost, ast.KindUntilPost, ast.KindFor, ast.KindCase,
		ast.KindRescue, ast.KindEnsure, ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule,
		ast.KindSclass:
		return false
	case ast.KindBlock:
		if loopBlock(node) {
			return false
		}
	}

	return pos == PositionReturn
}

func genBegin(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	statements := node.Nodes()

	if ctx.Position() != PositionExpression {
		body, err := ctx.Body(statements, ctx.Position())
		if err != nil {
			return nil, err
		}

		return Stmts(body...), nil
	}

	switch len(statements) {
	case 0:
		return fragment.Text("null"), nil
	case 1:
		return ctx.Expr(statements[0])
	}

	items := make([]fragment.Fragment, 0, len(statements))

	for _, statement := range statements {
		if !ctx.expressionShaped(statement) {
			return ctx.IIFE(node)
		}
	}

	for _, statement := range statements {
		item, err := ctx.ExprPrec(statement, precAssign)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return fragment.Seq(fragment.Text("("), fragment.Join(fragment.Text(", "), items), fragment.Text(")")), nil
}

func genAutoreturn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		if node.Len() == 1 {
			return ctx.Expr(node.NodeAt(0))
		}

		return ctx.IIFE(node)
	}

	body, err := ctx.Body(node.Nodes(), ctx.Position())
	if err != nil {
		return nil, err
	}

	return Stmts(body...), nil
}

func genReturn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.inCallback() {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrReturnInCallback}
	}

	values := node.Nodes()

	switch len(values) {
	case 0:
		return Stmts(fragment.Statement(fragment.Text("return"))...), nil
	case 1:
		body, err := ctx.Ret(values[0])
		if err != nil {
			return nil, err
		}

		return Stmts(body...), nil
	default:
		list, err := ctx.arrayOf(values)
		if err != nil {
			return nil, err
		}

		return Stmts(fragment.Statement(fragment.Text("return "), list)...), nil
	}
}

// rescueParts is a rescue node taken apart.
type rescueParts struct {
	body     *ast.Node
	elseBody *ast.Node
	handlers []*ast.Node
}

func splitRescue(node *ast.Node) rescueParts {
	if !node.Is(ast.KindRescue) {
		return rescueParts{body: node}
	}

	parts := rescueParts{body: node.NodeAt(0)}
	children := node.Children()

	for idx, child := range children[1:] {
		clause, _ := child.(*ast.Node)

		switch {
		case clause.Is(ast.KindResbody):
			parts.handlers = append(parts.handlers, clause)
		case idx == len(children)-2:
			parts.elseBody = clause
		}
	}

	return parts
}

func genRescue(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.tryStatement(node, node, nil)
}

func genEnsure(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.tryStatement(node, node.NodeAt(0), node.NodeAt(1))
}

// tryStatement renders begin/rescue/else/ensure as try/catch/finally.
// Handlers for specific classes become an instanceof chain that rethrows
// unmatched errors.
func (ctx *Context) tryStatement(node, main, ensure *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return ctx.IIFE(node)
	}

	pos := ctx.Position()
	parts := splitRescue(main)

	tryBody, err := ctx.tryBlock(parts, pos)
	if err != nil {
		return nil, err
	}

	out := braced(fragment.Text("try "), tryBody)

	if len(parts.handlers) > 0 {
		catchVar, handler, err := ctx.catchBlock(parts.handlers, pos)
		if err != nil {
			return nil, err
		}

		head := fragment.Text(" catch ")
		if catchVar != "" {
			head = fragment.Text(" catch (" + catchVar + ") ")
		}

		out = append(out, braced(head, handler)...)
	}

	if ensure != nil || len(parts.handlers) == 0 {
		finally, err := ctx.BodyOf(ensure, PositionStatement)
		if err != nil {
			return nil, err
		}

		out = append(out, braced(fragment.Text(" finally "), finally)...)
	}

	return Stmts(fragment.Line(out)...), nil
}

func (ctx *Context) tryBlock(parts rescueParts, pos Position) (fragment.Group, error) {
	if parts.elseBody == nil {
		return ctx.BodyOf(parts.body, pos)
	}

	body, err := ctx.BodyOf(parts.body, PositionStatement)
	if err != nil {
		return nil, err
	}

	rest, err := ctx.BodyOf(parts.elseBody, pos)
	if err != nil {
		return nil, err
	}

	return append(body, rest...), nil
}

// catchAll reports whether a handler rescues every standard error.
func catchAll(handler *ast.Node) bool {
	classes := handler.NodeAt(0)
	if classes == nil {
		return true
	}

	for _, class := range classes.Nodes() {
		if class.Is(ast.KindConst) && (class.NameAt(1) == "StandardError" || class.NameAt(1) == "Exception") {
			return true
		}
	}

	return false
}

func handlerVar(handler *ast.Node) string {
	if target := handler.NodeAt(1); target.Is(ast.KindLvasgn) {
		return string(target.NameAt(0))
	}

	return ""
}

func rethrows(handler *ast.Node) bool {
	return contains(handler.NodeAt(2), func(node *ast.Node) bool {
		return node.Is(ast.KindSend) && node.NodeAt(0) == nil && node.NameAt(1) == "raise" && node.Len() == 2
	}, ast.KindRescue, ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule)
}

func (ctx *Context) catchBlock(handlers []*ast.Node, pos Position) (string, fragment.Group, error) {
	catchVar := ""

	for _, handler := range handlers {
		if name := handlerVar(handler); name != "" {
			ctx.stack.Bind(name)
			catchVar = ctx.Local(name)

			break
		}
	}

	single := len(handlers) == 1 && catchAll(handlers[0])

	needsVar := !single || ctx.Level() < es.ES2019
	for _, handler := range handlers {
		if rethrows(handler) {
			needsVar = true
		}
	}

	if catchVar == "" && needsVar {
		catchVar = ctx.Temp("err")
	}

	ctx.catchVars = append(ctx.catchVars, catchVar)
	defer func() { ctx.catchVars = ctx.catchVars[:len(ctx.catchVars)-1] }()

	if single {
		body, err := ctx.handlerBody(handlers[0], catchVar, pos)

		return catchVar, body, err
	}

	caught := ast.New(ast.KindJSRaw, handlers[0].Span(), ast.Str(catchVar))

	var (
		out      fragment.Group
		fallback fragment.Group
	)

	for _, handler := range handlers {
		body, err := ctx.handlerBody(handler, catchVar, pos)
		if err != nil {
			return "", nil, err
		}

		if catchAll(handler) {
			fallback = body

			break
		}

		var tests []fragment.Fragment

		for _, class := range handler.NodeAt(0).Nodes() {
			test, err := ctx.typeTest(caught, class)
			if err != nil {
				return "", nil, err
			}

			tests = append(tests, test)
		}

		branch := braced(fragment.Seq(fragment.Text("if ("), fragment.Join(fragment.Text(" || "), tests),
			fragment.Text(") ")), body)
		if len(out) > 0 {
			out = append(out, fragment.Text(" else "))
		}

		out = append(out, branch...)
	}

	if fallback == nil {
		fallback = fragment.Statement(fragment.Text("throw " + catchVar))
	}

	out = append(out, braced(fragment.Text(" else "), fallback)...)

	return catchVar, fragment.Line(out), nil
}

func (ctx *Context) handlerBody(handler *ast.Node, catchVar string, pos Position) (fragment.Group, error) {
	var out fragment.Group

	if name := handlerVar(handler); name != "" && ctx.Local(name) != catchVar {
		ctx.stack.Bind(name)
		out = fragment.Statement(fragment.Text(ctx.aliasKeyword() + " " + ctx.Local(name) + " = " + catchVar))
	}

	body, err := ctx.BodyOf(handler.NodeAt(2), pos)
	if err != nil {
		return nil, err
	}

	return append(out, body...), nil
}
