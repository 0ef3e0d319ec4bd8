package convert

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/scope"
)

// Position says whether the value of a node is observed.
type Position int

// Positions.
const (
	// PositionStatement discards the value.
	PositionStatement Position = iota
	// PositionExpression embeds the value in an enclosing expression.
	PositionExpression
	// PositionReturn yields the value from the enclosing function.
	PositionReturn
)

// Statements marks generator output that already consists of complete
// statements. Expression output is wrapped by the dispatcher instead.
type Statements struct {
	fragment.Group
}

// Stmts builds a Statements value.
func Stmts(parts ...fragment.Fragment) Statements {
	return Statements{Group: fragment.Seq(parts...)}
}

// loopKind tells break and next how to leave the innermost iteration.
type loopKind int

const (
	loopNative loopKind = iota
	// loopCallback is a block passed to a method; return would only leave
	// the callback.
	loopCallback
	// loopFunction is a lambda or proc body, which return leaves.
	loopFunction
)

// methodInfo is the state of the function being generated.
type methodInfo struct {
	name        string
	blockParam  string
	params      []string
	constructor bool
	static      bool
}

// classInfo is the state of the class being generated.
type classInfo struct {
	superclass fragment.Fragment
	privates   map[string]bool
	getters    map[string]bool
	constants  map[string]bool
	name       string
}

// Context carries the state of one conversion. It is not safe for
// concurrent use; every conversion creates its own.
type Context struct {
	rules     *RuleSet
	stack     *scope.Stack
	pending   []string
	methods   []*methodInfo
	classes   []*classInfo
	loops     []loopKind
	catchVars []string
	temps     map[string]int
	extended  map[string]bool
	opts      options.Options
	position  Position
}

func newContext(rules *RuleSet, opts options.Options, root *ast.Node) *Context {
	return &Context{
		rules:    rules,
		opts:     opts,
		temps:    make(map[string]int),
		extended: superclassNames(root),
		stack:    scope.NewStack(opts.Level, bodyStatements(root)...),
	}
}

// Level returns the target level.
func (ctx *Context) Level() es.Level {
	return ctx.opts.Level
}

// Options returns the conversion options.
func (ctx *Context) Options() options.Options {
	return ctx.opts
}

// Position returns the position of the node being generated.
func (ctx *Context) Position() Position {
	return ctx.position
}

// Scope returns the scope stack.
func (ctx *Context) Scope() *scope.Stack {
	return ctx.stack
}

// Expr converts node as an expression.
func (ctx *Context) Expr(node *ast.Node) (fragment.Fragment, error) {
	return ctx.convert(node, PositionExpression)
}

// ExprPrec converts node as an expression and parenthesizes it when it
// binds looser than minPrec.
func (ctx *Context) ExprPrec(node *ast.Node, minPrec int) (fragment.Fragment, error) {
	frag, err := ctx.Expr(node)
	if err != nil {
		return nil, err
	}

	if ctx.precedence(node) < minPrec {
		return fragment.Seq(fragment.Text("("), frag, fragment.Text(")")), nil
	}

	return frag, nil
}

// Stmt converts node as a statement.
func (ctx *Context) Stmt(node *ast.Node) (fragment.Group, error) {
	frag, err := ctx.convert(node, PositionStatement)
	if err != nil {
		return nil, err
	}

	return asGroup(frag), nil
}

// Ret converts node so that its value is returned.
func (ctx *Context) Ret(node *ast.Node) (fragment.Group, error) {
	frag, err := ctx.convert(node, PositionReturn)
	if err != nil {
		return nil, err
	}

	return asGroup(frag), nil
}

func asGroup(frag fragment.Fragment) fragment.Group {
	switch typed := frag.(type) {
	case nil:
		return nil
	case fragment.Group:
		return typed
	default:
		return fragment.Group{typed}
	}
}

func (ctx *Context) convert(node *ast.Node, pos Position) (fragment.Fragment, error) {
	if node == nil {
		switch pos {
		case PositionExpression:
			return fragment.Text("null"), nil
		default:
			return fragment.Group{}, nil
		}
	}

	rule, ok := ctx.rules.SelectMethod(node.Kind(), dispatchMethod(node), ctx.opts.Level)
	if !ok {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span()}
	}

	saved := ctx.position
	ctx.position = pos

	frag, err := rule.Generate(ctx, node)

	ctx.position = saved

	if err != nil {
		return nil, err
	}

	stmts, isStatements := frag.(Statements)

	switch pos {
	case PositionStatement:
		if isStatements {
			return stmts.Group, nil
		}

		if fragment.Empty(frag) {
			return fragment.Group{}, nil
		}

		return fragment.Statement(frag), nil
	case PositionReturn:
		if isStatements {
			return stmts.Group, nil
		}

		return fragment.Statement(fragment.Text("return "), frag), nil
	default:
		if isStatements {
			return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrStatementShaped}
		}

		return frag, nil
	}
}

// dispatchMethod returns the method name a send, csend or block is keyed by.
func dispatchMethod(node *ast.Node) ast.Name {
	switch node.Kind() {
	case ast.KindSend, ast.KindCsend:
		return node.NameAt(1)
	case ast.KindBlock:
		call := node.NodeAt(0)
		if call.Is(ast.KindSend, ast.KindCsend) {
			return call.NameAt(1)
		}
	}

	return ""
}

// Body converts a statement list. The last statement is converted in pos,
// which must be PositionStatement or PositionReturn.
func (ctx *Context) Body(statements []*ast.Node, pos Position) (fragment.Group, error) {
	var out fragment.Group

	for idx, statement := range statements {
		if idx > 0 {
			for range blankLines(statements[idx-1], statement) {
				out = append(out, fragment.Blank{})
			}
		}

		stmtPos := PositionStatement
		if idx == len(statements)-1 {
			stmtPos = pos
		}

		hoisted := ctx.hoist(statement)

		converted, err := ctx.convert(statement, stmtPos)
		if err != nil {
			return nil, err
		}

		hoisted = append(hoisted, ctx.takePending()...)
		if len(hoisted) > 0 {
			out = append(out, ctx.declareNames(hoisted))
		}

		out = append(out, asGroup(converted)...)
	}

	return out, nil
}

// BodyOf converts the statements of a body node, which may be a begin, a
// single statement or nil.
func (ctx *Context) BodyOf(body *ast.Node, pos Position) (fragment.Group, error) {
	return ctx.Body(bodyStatements(body), pos)
}

func bodyStatements(body *ast.Node) []*ast.Node {
	if body == nil {
		return nil
	}

	if body.Is(ast.KindBegin) {
		return body.Nodes()
	}

	return []*ast.Node{body}
}

// blankLines counts the source lines separating two statements. The
// serializer caps each run at its MaxBlankLines.
func blankLines(prev, next *ast.Node) int {
	prevSpan, nextSpan := prev.Span(), next.Span()
	if prevSpan.IsZero() || nextSpan.IsZero() {
		return 0
	}

	return max(nextSpan.StartLine-prevSpan.EndLine-1, 0)
}

// hoist declares locals that a compound statement writes for the first
// time, so they remain visible after it.
func (ctx *Context) hoist(statement *ast.Node) []string {
	if !scope.Compound(statement.Kind()) {
		return nil
	}

	names := scope.Hoistable(statement, ctx.stack.Visible)

	// The loop variable of a for loop is declared in the loop head.
	if statement.Is(ast.KindFor) {
		for _, target := range flatTargets([]*ast.Node{statement.NodeAt(0)}) {
			names = slices.DeleteFunc(names, func(name string) bool {
				return name == string(target.NameAt(0))
			})
		}
	}

	for _, name := range names {
		ctx.stack.Bind(name)
	}

	return names
}

// deferDeclaration asks the enclosing statement list to declare name ahead
// of the statement being generated. Used when a first assignment happens
// inside an expression.
func (ctx *Context) deferDeclaration(name string) {
	ctx.pending = append(ctx.pending, name)
}

func (ctx *Context) takePending() []string {
	pending := ctx.pending
	ctx.pending = nil

	return pending
}

func (ctx *Context) declareNames(names []string) fragment.Group {
	keyword := "let"
	if ctx.Level() < es.ES2015 {
		keyword = "var"
	}

	locals := make([]fragment.Fragment, 0, len(names))
	for _, name := range names {
		locals = append(locals, fragment.Text(ctx.Local(name)))
	}

	return fragment.Statement(fragment.Text(keyword+" "), fragment.Join(fragment.Text(", "), locals))
}

// Temp returns a fresh temporary name. The dollar prefix keeps it apart
// from Ruby locals, which cannot start with one.
func (ctx *Context) Temp(prefix string) string {
	ctx.temps[prefix]++

	if count := ctx.temps[prefix]; count > 1 {
		return fmt.Sprintf("$%s%d", prefix, count)
	}

	return "$" + prefix
}

// IIFE wraps node in an immediately invoked function so a statement-shaped
// construct can yield a value. Locals first written inside node belong to
// the enclosing frame and are declared ahead of the enclosing statement.
func (ctx *Context) IIFE(node *ast.Node) (fragment.Fragment, error) {
	for _, name := range scope.Hoistable(node, ctx.stack.Visible) {
		ctx.stack.Bind(name)
		ctx.deferDeclaration(name)
	}

	ctx.stack.Push(scope.FrameBlock, scope.ReceiverNone, "", bodyStatements(node)...)

	savedLoops, savedPending := ctx.loops, ctx.pending
	ctx.loops, ctx.pending = nil, nil

	body, err := ctx.Body([]*ast.Node{node}, PositionReturn)

	ctx.loops, ctx.pending = savedLoops, savedPending

	if _, popErr := ctx.stack.Pop(); popErr != nil && err == nil {
		err = popErr
	}

	if err != nil {
		return nil, err
	}

	if ctx.Level() >= es.ES2015 {
		return fragment.Seq(fragment.Text("(() => {"), fragment.Body(body...), fragment.Text("})()")), nil
	}

	return fragment.Seq(fragment.Text("(function() {"), fragment.Body(body...), fragment.Text("}).call(this)")), nil
}

func (ctx *Context) currentMethod() *methodInfo {
	if len(ctx.methods) == 0 {
		return nil
	}

	return ctx.methods[len(ctx.methods)-1]
}

func (ctx *Context) currentClass() *classInfo {
	if len(ctx.classes) == 0 {
		return nil
	}

	return ctx.classes[len(ctx.classes)-1]
}

func (ctx *Context) currentLoop() (loopKind, bool) {
	if len(ctx.loops) == 0 {
		return loopNative, false
	}

	return ctx.loops[len(ctx.loops)-1], true
}

// inCallback reports whether the innermost function being generated is a
// block callback.
func (ctx *Context) inCallback() bool {
	for idx := len(ctx.loops) - 1; idx >= 0; idx-- {
		if ctx.loops[idx] != loopNative {
			return ctx.loops[idx] == loopCallback
		}
	}

	return false
}

func (ctx *Context) withLoop(kind loopKind, fn func() error) error {
	ctx.loops = append(ctx.loops, kind)
	defer func() { ctx.loops = ctx.loops[:len(ctx.loops)-1] }()

	return fn()
}

// withFunction runs fn with fresh loop and pending state, as a function
// body starts a new statement context.
func (ctx *Context) withFunction(fn func() error) error {
	savedLoops, savedPending := ctx.loops, ctx.pending
	ctx.loops, ctx.pending = nil, nil

	defer func() { ctx.loops, ctx.pending = savedLoops, savedPending }()

	return fn()
}

// receiverText renders the implicit self of the current frame.
func (ctx *Context) receiverText() string {
	resolution := ctx.stack.Receiver()

	switch {
	case resolution.UseAlias:
		return scope.AliasName
	case resolution.Kind == scope.ReceiverClass && resolution.Owner != nil && resolution.Owner.Kind == scope.FrameClass:
		return resolution.Owner.Name
	default:
		return "this"
	}
}

// Local renders a local variable, parameter or function name.
func (ctx *Context) Local(name string) string {
	ident := ctx.Member(name)
	if jsReserved[ident] {
		return ident + "$"
	}

	return ident
}

// Member renders a property or method name.
func (ctx *Context) Member(name string) string {
	name = ctx.opts.StripEscape(name)
	name = strings.TrimRight(name, "?!")

	if ctx.opts.IdentifierCase == options.CaseCamel {
		return camelCase(name)
	}

	return name
}

func camelCase(name string) string {
	leading := len(name) - len(strings.TrimLeft(name, "_"))
	trimmed := name[leading:]

	if trimmed == "" || strings.ToUpper(trimmed) == trimmed {
		return name
	}

	parts := strings.Split(trimmed, "_")

	var builder strings.Builder

	builder.WriteString(name[:leading])
	builder.WriteString(parts[0])

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}

		builder.WriteString(strings.ToUpper(part[:1]))
		builder.WriteString(part[1:])
	}

	return builder.String()
}

//nolint:gochecknoglobals // Read-only keyword set.
var jsReserved = map[string]bool{
	"arguments": true, "await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "eval": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "implements": true, "import": true, "in": true,
	"instanceof": true, "interface": true, "let": true, "new": true, "package": true,
	"private": true, "protected": true, "public": true, "static": true, "switch": true,
	"this": true, "throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "null": true, "true": true, "false": true,
}
