package convert

import (
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/scope"
)

func genLvar(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return fragment.Text(ctx.Local(string(node.NameAt(0)))), nil
}

// genIvar renders an instance variable as an underscored property.
func genIvar(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return fragment.Text(ctx.receiverText() + "._" + ivarField(node.NameAt(0))), nil
}

// genPrivateIvar renders instance state of a class with private fields as
// #name, falling back to the underscored property elsewhere.
func genPrivateIvar(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	field := ivarField(node.NameAt(0))

	class := ctx.currentClass()
	if class != nil && class.privates[field] && ctx.stack.Receiver().Kind == scope.ReceiverInstance {
		return fragment.Text(ctx.receiverText() + ".#" + field), nil
	}

	return genIvar(ctx, node)
}

func genGvar(_ *Context, node *ast.Node) (fragment.Fragment, error) {
	return fragment.Text(string(node.NameAt(0))), nil
}

func genCvar(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	ref, err := ctx.cvarRef(node)
	if err != nil {
		return nil, err
	}

	return fragment.Text(ref), nil
}

func genConst(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.constRef(node.NodeAt(0), node.NameAt(1))
}

func ivarField(name ast.Name) string {
	return strings.TrimPrefix(string(name), "@")
}

// ivarTarget renders the instance variable an assignment writes through
// the ivar rule of the target level.
func (ctx *Context) ivarTarget(node *ast.Node) (fragment.Fragment, error) {
	return ctx.Expr(node.Updated(ast.KindIvar, node.Child(0)))
}

func (ctx *Context) cvarRef(node *ast.Node) (string, error) {
	class := ctx.currentClass()
	if class == nil {
		return "", notImplemented(node, "class variable outside a class")
	}

	return class.name + "._" + strings.TrimPrefix(string(node.NameAt(0)), "@@"), nil
}

func (ctx *Context) constRef(scopeNode *ast.Node, name ast.Name) (fragment.Fragment, error) {
	if scopeNode == nil || scopeNode.Is(ast.KindCbase) {
		if class := ctx.currentClass(); class != nil && scopeNode == nil && class.constants[string(name)] {
			return fragment.Text(class.name + "." + string(name)), nil
		}

		return fragment.Text(string(name)), nil
	}

	owner, err := ctx.ExprPrec(scopeNode, precPrimary)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(owner, fragment.Text("."+string(name))), nil
}

func genLvasgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	name := string(node.NameAt(0))

	value := node.NodeAt(1)
	if value == nil {
		return fragment.Text(ctx.Local(name)), nil
	}

	valueFrag, err := ctx.ExprPrec(value, precAssign)
	if err != nil {
		return nil, err
	}

	return ctx.assignLocal(name, valueFrag), nil
}

// assignLocal renders an assignment to a local in the current position,
// declaring the name on first use.
func (ctx *Context) assignLocal(name string, value fragment.Fragment) fragment.Fragment {
	local := ctx.Local(name)
	decl := ctx.stack.Declare(name)
	assign := fragment.Seq(fragment.Text(local+" = "), value)

	if decl == scope.Reference {
		return assign
	}

	switch ctx.Position() {
	case PositionExpression:
		ctx.deferDeclaration(name)

		return assign
	case PositionReturn:
		return Stmts(
			fragment.Statement(fragment.Text(decl.Keyword()+" "), assign),
			fragment.Statement(fragment.Text("return "+local)),
		)
	default:
		return fragment.Seq(fragment.Text(decl.Keyword()+" "), assign)
	}
}

func genIvasgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	target, err := ctx.ivarTarget(node)
	if err != nil {
		return nil, err
	}

	return ctx.assignTo(target, node.NodeAt(1))
}

func genGvasgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.assignTo(fragment.Text(string(node.NameAt(0))), node.NodeAt(1))
}

func genCvasgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	ref, err := ctx.cvarRef(node)
	if err != nil {
		return nil, err
	}

	return ctx.assignTo(fragment.Text(ref), node.NodeAt(1))
}

func (ctx *Context) assignTo(target fragment.Fragment, value *ast.Node) (fragment.Fragment, error) {
	if value == nil {
		return target, nil
	}

	valueFrag, err := ctx.ExprPrec(value, precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(target, fragment.Text(" = "), valueFrag), nil
}

func genCasgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	scopeNode, name, value := node.NodeAt(0), node.NameAt(1), node.NodeAt(2)

	if scopeNode != nil || ctx.Position() != PositionStatement || value == nil {
		target, err := ctx.constRef(scopeNode, name)
		if err != nil {
			return nil, err
		}

		return ctx.assignTo(target, value)
	}

	keyword := "const "
	if ctx.Level() < es.ES2015 {
		keyword = "var "
	}

	return ctx.assignTo(fragment.Text(keyword+string(name)), value)
}

// lvalue renders the target of an operator assignment.
func (ctx *Context) lvalue(target *ast.Node) (fragment.Fragment, error) {
	switch target.Kind() {
	case ast.KindLvasgn:
		return fragment.Text(ctx.Local(string(target.NameAt(0)))), nil
	case ast.KindIvasgn:
		return ctx.ivarTarget(target)
	case ast.KindGvasgn:
		return fragment.Text(string(target.NameAt(0))), nil
	case ast.KindCvasgn:
		ref, err := ctx.cvarRef(target)
		if err != nil {
			return nil, err
		}

		return fragment.Text(ref), nil
	case ast.KindCasgn:
		return ctx.constRef(target.NodeAt(0), target.NameAt(1))
	case ast.KindSend:
		return ctx.sendTarget(target)
	default:
		return nil, &NotImplementedError{
			Kind: target.Kind(), Span: target.Span(), Err: ErrUnsupportedTarget, Reason: "assignment target",
		}
	}
}

// sendTarget renders a.b or a[i] as an assignable reference.
func (ctx *Context) sendTarget(target *ast.Node) (fragment.Fragment, error) {
	method := strings.TrimSuffix(string(target.NameAt(1)), "=")
	if method == "[]" {
		return ctx.index(target.NodeAt(0), target.Nodes()[1:])
	}

	recv := target.NodeAt(0)
	if recv == nil {
		return fragment.Text(ctx.receiverText() + "." + ctx.Member(method)), nil
	}

	recvFrag, err := ctx.receiver(recv)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(recvFrag, fragment.Text("."+ctx.Member(method))), nil
}

func genOpAsgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	target, operator, value := node.NodeAt(0), node.NameAt(1), node.NodeAt(2)

	lhs, err := ctx.lvalue(target)
	if err != nil {
		return nil, err
	}

	if operator == "**" && ctx.Level() < es.ES2016 {
		valueFrag, err := ctx.ExprPrec(value, precAssign)
		if err != nil {
			return nil, err
		}

		return fragment.Seq(lhs, fragment.Text(" = Math.pow("), lhs, fragment.Text(", "), valueFrag,
			fragment.Text(")")), nil
	}

	if _, ok := binaryOperators[operator]; !ok || operator == "==" || operator == "!=" {
		return nil, notImplemented(node, "operator assignment with %s", operator)
	}

	valueFrag, err := ctx.ExprPrec(value, precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(lhs, fragment.Text(" "+string(operator)+"= "), valueFrag), nil
}

func genOrAsgnES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.expandedLogicalAssign(node, "||", precOr)
}

func genOrAsgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.logicalAssign(node, "||")
}

func genAndAsgnES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.expandedLogicalAssign(node, "&&", precAnd)
}

func genAndAsgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.logicalAssign(node, "&&")
}

// logicalTarget renders the left side of ||= or &&=. A local not yet
// visible is plainly assigned, and that assignment is returned as done.
func (ctx *Context) logicalTarget(node *ast.Node) (lhs, done fragment.Fragment, err error) {
	target, value := node.NodeAt(0), node.NodeAt(1)

	if target.Is(ast.KindLvasgn) && !ctx.stack.Visible(string(target.NameAt(0))) {
		valueFrag, err := ctx.ExprPrec(value, precAssign)
		if err != nil {
			return nil, nil, err
		}

		return nil, ctx.assignLocal(string(target.NameAt(0)), valueFrag), nil
	}

	lhs, err = ctx.lvalue(target)

	return lhs, nil, err
}

// logicalAssign renders a native ||= or &&=.
func (ctx *Context) logicalAssign(node *ast.Node, operator string) (fragment.Fragment, error) {
	lhs, done, err := ctx.logicalTarget(node)
	if err != nil || done != nil {
		return done, err
	}

	valueFrag, err := ctx.ExprPrec(node.NodeAt(1), precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(lhs, fragment.Text(" "+operator+"= "), valueFrag), nil
}

// expandedLogicalAssign renders ||= and &&= as an assignment of a logical
// expression.
func (ctx *Context) expandedLogicalAssign(node *ast.Node, operator string, prec int) (fragment.Fragment, error) {
	lhs, done, err := ctx.logicalTarget(node)
	if err != nil || done != nil {
		return done, err
	}

	valueFrag, err := ctx.ExprPrec(node.NodeAt(1), prec+1)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(lhs, fragment.Text(" = "), lhs, fragment.Text(" "+operator+" "), valueFrag), nil
}

func genMasgn(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	targets := node.NodeAt(0).Nodes()

	value, err := ctx.masgnValue(node.NodeAt(1))
	if err != nil {
		return nil, err
	}

	var fresh []string

	for _, target := range flatTargets(targets) {
		if name := string(target.NameAt(0)); target.Is(ast.KindLvasgn) && !ctx.stack.Visible(name) {
			fresh = append(fresh, name)
		}
	}

	pattern, err := ctx.pattern(targets)
	if err != nil {
		return nil, err
	}

	assign := fragment.Seq(pattern, fragment.Text(" = "), value)

	if ctx.Position() == PositionExpression {
		for _, name := range fresh {
			ctx.stack.Declare(name)
			ctx.deferDeclaration(name)
		}

		return assign, nil
	}

	var out fragment.Group

	if len(fresh) > 0 && len(fresh) == len(flatTargets(targets)) && allLocals(targets) {
		keyword := "const "

		for _, name := range fresh {
			if ctx.stack.Declare(name) == scope.DeclareLet {
				keyword = "let "
			}
		}

		out = fragment.Statement(fragment.Text(keyword), assign)
	} else {
		for _, name := range fresh {
			ctx.stack.Bind(name)
		}

		if len(fresh) > 0 {
			out = append(out, ctx.declareNames(fresh)...)
		}

		out = append(out, fragment.Statement(assign)...)
	}

	if ctx.Position() == PositionReturn {
		out = append(out, fragment.Statement(fragment.Text("return "), pattern)...)
	}

	return Stmts(out...), nil
}

func (ctx *Context) masgnValue(value *ast.Node) (fragment.Fragment, error) {
	if value.Is(ast.KindArray) {
		return ctx.arrayOf(value.Nodes())
	}

	if value.Is(ast.KindSplat) {
		return ctx.ExprPrec(value.NodeAt(0), precAssign)
	}

	return ctx.ExprPrec(value, precAssign)
}

func (ctx *Context) pattern(targets []*ast.Node) (fragment.Fragment, error) {
	items := make([]fragment.Fragment, 0, len(targets))

	for _, target := range targets {
		var (
			item fragment.Fragment
			err  error
		)

		switch target.Kind() {
		case ast.KindMlhs:
			item, err = ctx.pattern(target.Nodes())
		case ast.KindSplat:
			var inner fragment.Fragment

			inner, err = ctx.patternTarget(target.NodeAt(0))
			item = fragment.Seq(fragment.Text("..."), inner)
		default:
			item, err = ctx.patternTarget(target)
		}

		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return fragment.Seq(fragment.Text("["), fragment.Join(fragment.Text(", "), items), fragment.Text("]")), nil
}

func (ctx *Context) patternTarget(target *ast.Node) (fragment.Fragment, error) {
	if target == nil {
		return fragment.Text(""), nil
	}

	return ctx.lvalue(target)
}

// flatTargets lists the assignment targets of an mlhs, looking through
// splats and nested groups.
func flatTargets(targets []*ast.Node) []*ast.Node {
	var out []*ast.Node

	for _, target := range targets {
		switch target.Kind() {
		case ast.KindMlhs:
			out = append(out, flatTargets(target.Nodes())...)
		case ast.KindSplat:
			if inner := target.NodeAt(0); inner != nil {
				out = append(out, inner)
			}
		default:
			out = append(out, target)
		}
	}

	return out
}

func allLocals(targets []*ast.Node) bool {
	for _, target := range flatTargets(targets) {
		if !target.Is(ast.KindLvasgn) {
			return false
		}
	}

	return true
}

// genMasgnES5 unpacks through a temporary array.
func genMasgnES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrStatementShaped}
	}

	value, err := ctx.masgnValue(node.NodeAt(1))
	if err != nil {
		return nil, err
	}

	temp := ctx.Temp("ref")
	out := fragment.Statement(fragment.Text("var "+temp+" = "), value)

	targets := node.NodeAt(0).Nodes()
	for idx, target := range targets {
		element := fragment.Textf("%s[%d]", temp, idx)

		if target.Is(ast.KindSplat) {
			if idx != len(targets)-1 {
				return nil, notImplemented(node, "splat before other targets needs ES2015")
			}

			element = fragment.Textf("%s.slice(%d)", temp, idx)
			target = target.NodeAt(0)
		}

		if target == nil {
			continue
		}

		if target.Is(ast.KindMlhs) {
			return nil, notImplemented(node, "nested destructuring needs ES2015")
		}

		if target.Is(ast.KindLvasgn) {
			saved := ctx.position
			ctx.position = PositionStatement
			out = append(out, fragment.Statement(ctx.assignLocal(string(target.NameAt(0)), element))...)
			ctx.position = saved

			continue
		}

		lhs, err := ctx.lvalue(target)
		if err != nil {
			return nil, err
		}

		out = append(out, fragment.Statement(lhs, fragment.Text(" = "), element)...)
	}

	if ctx.Position() == PositionReturn {
		out = append(out, fragment.Statement(fragment.Text("return "+temp))...)
	}

	return Stmts(out...), nil
}
