package convert

import (
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/scope"
)

type attrKind int

const (
	attrReader attrKind = 1 << iota
	attrWriter
)

// accessor is one name declared by attr_reader, attr_writer or
// attr_accessor.
type accessor struct {
	name string
	kind attrKind
}

//nolint:gochecknoglobals // Read-only method table.
var attrMethods = map[ast.Name]attrKind{
	"attr_reader":   attrReader,
	"attr_writer":   attrWriter,
	"attr_accessor": attrReader | attrWriter,
}

//nolint:gochecknoglobals // Read-only name set.
var visibilityMethods = map[ast.Name]bool{
	"private": true, "public": true, "protected": true, "module_function": true,
	"private_class_method": true, "public_class_method": true, "private_constant": true,
}

//nolint:gochecknoglobals // Read-only name table.
var renamedMethods = map[string]string{
	"to_s": "toString",
	"<=>":  "compareTo",
	"==":   "equals",
}

// superclassNames collects every class name used as a superclass in the
// program. Such classes keep underscored fields so subclasses can reach
// them.
func superclassNames(root *ast.Node) map[string]bool {
	names := make(map[string]bool)

	ast.Walk(root, func(node *ast.Node) bool {
		if parent := node.NodeAt(1); node.Is(ast.KindClass) && parent.Is(ast.KindConst) {
			names[string(parent.NameAt(1))] = true
		}

		return true
	})

	return names
}

// memberStatements flattens a class or module body. Visibility modifiers
// are dropped and the definitions they wrap are kept.
func memberStatements(body *ast.Node) []*ast.Node {
	var out []*ast.Node

	for _, statement := range bodyStatements(body) {
		if statement.Is(ast.KindSend) && statement.NodeAt(0) == nil && visibilityMethods[statement.NameAt(1)] {
			for _, arg := range sendArgs(statement) {
				if arg.Is(ast.KindDef, ast.KindDefs) {
					out = append(out, arg)
				}
			}

			continue
		}

		out = append(out, statement)
	}

	return out
}

func accessors(statement *ast.Node) []accessor {
	if !statement.Is(ast.KindSend) || statement.NodeAt(0) != nil {
		return nil
	}

	kind, ok := attrMethods[statement.NameAt(1)]
	if !ok {
		return nil
	}

	var out []accessor

	for _, arg := range sendArgs(statement) {
		if name, ok := symbolText(arg); ok {
			out = append(out, accessor{name: name, kind: kind})
		}
	}

	return out
}

// symbolText returns the text of a symbol or string literal.
func symbolText(node *ast.Node) (string, bool) {
	switch node.Kind() {
	case ast.KindSym:
		return string(node.NameAt(0)), true
	case ast.KindStr:
		value, _ := node.StrAt(0)

		return string(value), true
	default:
		return "", false
	}
}

// getterDef reports whether a definition without a parameter list reads
// like a property.
func getterDef(def *ast.Node, nameIdx int) bool {
	name := string(def.NameAt(nameIdx))

	if def.NodeAt(nameIdx+1) != nil || name == "initialize" || renamedMethods[name] != "" {
		return false
	}

	return !strings.HasSuffix(name, "!") && !strings.HasSuffix(name, "=")
}

func collectIvars(body *ast.Node, seen map[string]bool, fields []string) []string {
	ast.Walk(body, func(node *ast.Node) bool {
		switch node.Kind() {
		case ast.KindDef, ast.KindDefs, ast.KindClass, ast.KindModule, ast.KindSclass:
			return false
		case ast.KindIvar, ast.KindIvasgn:
			field := strings.TrimPrefix(string(node.NameAt(0)), "@")
			if !seen[field] {
				seen[field] = true
				fields = append(fields, field)
			}
		}

		return true
	})

	return fields
}

// classDef is a class node taken apart before generation.
type classDef struct {
	info    *classInfo
	owner   fragment.Fragment
	members []*ast.Node
	fields  []string
	name    string
}

func (ctx *Context) prepareClass(node *ast.Node) (*classDef, error) {
	nameNode := node.NodeAt(0)
	def := &classDef{name: string(nameNode.NameAt(1)), members: memberStatements(node.NodeAt(2))}

	if ns := nameNode.NodeAt(0); ns != nil && !ns.Is(ast.KindCbase) {
		owner, err := ctx.ExprPrec(ns, precPrimary)
		if err != nil {
			return nil, err
		}

		def.owner = owner
	}

	var superclass fragment.Fragment

	if parent := node.NodeAt(1); parent != nil {
		rendered, err := ctx.ExprPrec(parent, precPrimary)
		if err != nil {
			return nil, err
		}

		superclass = rendered
	}

	def.info = &classInfo{
		name:       def.name,
		superclass: superclass,
		privates:   make(map[string]bool),
		getters:    make(map[string]bool),
		constants:  make(map[string]bool),
	}

	usePrivates := ctx.Level() >= es.ES2022 && superclass == nil && !ctx.extended[def.name]

	for _, member := range def.members {
		switch {
		case member.Is(ast.KindDef):
			if getterDef(member, 0) {
				def.info.getters[string(member.NameAt(0))] = true
			}

			if usePrivates {
				def.fields = collectIvars(member.NodeAt(2), def.info.privates, def.fields)
			}
		case member.Is(ast.KindCasgn) && member.NodeAt(0) == nil:
			def.info.constants[string(member.NameAt(1))] = true
		default:
			for _, attr := range accessors(member) {
				if attr.kind&attrReader != 0 {
					def.info.getters[attr.name] = true
				}

				if usePrivates && !def.info.privates[attr.name] {
					def.info.privates[attr.name] = true
					def.fields = append(def.fields, attr.name)
				}
			}
		}
	}

	return def, nil
}

// inClass runs fn with the class frame open.
func (ctx *Context) inClass(def *classDef, fn func() error) error {
	ctx.stack.Push(scope.FrameClass, scope.ReceiverClass, def.name, def.members...)
	ctx.classes = append(ctx.classes, def.info)

	err := ctx.withFunction(fn)

	ctx.classes = ctx.classes[:len(ctx.classes)-1]

	if _, popErr := ctx.stack.Pop(); popErr != nil && err == nil {
		err = popErr
	}

	return err
}

// methodDef is one method of a class ready for rendering.
type methodDef struct {
	params fragment.Fragment
	body   fragment.Group
	member string
	getter bool
	setter bool
}

func (ctx *Context) classMethod(def *classDef, node *ast.Node, static bool) (*methodDef, error) {
	nameIdx := 0
	if node.Is(ast.KindDefs) {
		nameIdx = 1
	}

	name := string(node.NameAt(nameIdx))
	constructor := !static && name == "initialize"
	setter := strings.HasSuffix(name, "=") && setterName(ast.Name(name))

	member := renamedMethods[name]
	if member == "" {
		member = ctx.Member(strings.TrimSuffix(name, "="))
	}

	if !isIdentifier(member) {
		return nil, notImplemented(node, "method named %s", name)
	}

	receiver := scope.ReceiverInstance
	if static {
		receiver = scope.ReceiverClass
	}

	params, body, err := ctx.method(methodSpec{
		name:        name,
		args:        node.NodeAt(nameIdx + 1),
		body:        node.NodeAt(nameIdx + 2),
		receiver:    receiver,
		constructor: constructor,
		static:      static,
		discard:     constructor || setter,
		superclass:  def.info.superclass != nil,
	})
	if err != nil {
		return nil, err
	}

	return &methodDef{
		params: params,
		body:   body,
		member: member,
		getter: getterDef(node, nameIdx),
		setter: setter,
	}, nil
}

// staticDefs returns the definitions of a class << self body.
func staticDefs(sclass *ast.Node) ([]*ast.Node, bool) {
	if !sclass.NodeAt(0).Is(ast.KindSelf) {
		return nil, false
	}

	var defs []*ast.Node

	for _, member := range memberStatements(sclass.NodeAt(1)) {
		if member.Is(ast.KindDef) {
			defs = append(defs, member)
		}
	}

	return defs, true
}

// fieldRef renders the storage behind an accessor.
func fieldRef(def *classDef, name string) string {
	if def.info.privates[name] {
		return "this.#" + name
	}

	return "this._" + name
}

// mixin renders include and extend.
func (ctx *Context) mixin(member *ast.Node, target string) (fragment.Group, bool, error) {
	if !member.Is(ast.KindSend) || member.NodeAt(0) != nil {
		return nil, false, nil
	}

	switch member.NameAt(1) {
	case "include":
		target += ".prototype"
	case "extend":
	default:
		return nil, false, nil
	}

	var out fragment.Group

	for _, module := range sendArgs(member) {
		if module.Is(ast.KindSelf) {
			continue
		}

		rendered, err := ctx.ExprPrec(module, precAssign)
		if err != nil {
			return nil, false, err
		}

		out = append(out, fragment.Statement(fragment.Text("Object.assign("+target+", "), rendered,
			fragment.Text(")"))...)
	}

	return out, true, nil
}

// aliasNames returns the new and old names of alias or alias_method.
func aliasNames(member *ast.Node) (string, string, bool) {
	var names []*ast.Node

	switch {
	case member.Is(ast.KindAlias):
		names = member.Nodes()
	case member.Is(ast.KindSend) && member.NodeAt(0) == nil && member.NameAt(1) == "alias_method":
		names = sendArgs(member)
	default:
		return "", "", false
	}

	if len(names) != 2 {
		return "", "", false
	}

	newName, newOK := symbolText(names[0])
	oldName, oldOK := symbolText(names[1])

	return newName, oldName, newOK && oldOK
}

// nestedName returns the name of a class or module defined without a
// namespace.
func nestedName(member *ast.Node) (string, bool) {
	if !member.Is(ast.KindClass, ast.KindModule) {
		return "", false
	}

	nameNode := member.NodeAt(0)
	if ns := nameNode.NodeAt(0); ns != nil && !ns.Is(ast.KindCbase) {
		return "", false
	}

	return string(nameNode.NameAt(1)), true
}

// trailing renders a class-level statement that has no place inside a
// class body and is emitted after it instead.
func (ctx *Context) trailing(def *classDef, member *ast.Node) (fragment.Group, error) {
	if out, ok, err := ctx.mixin(member, def.name); ok || err != nil {
		return out, err
	}

	if newName, oldName, ok := aliasNames(member); ok {
		proto := def.name + ".prototype."

		return fragment.Statement(fragment.Text(proto + ctx.Member(newName) + " = " + proto + ctx.Member(oldName))),
			nil
	}

	if name, ok := nestedName(member); ok {
		out, err := ctx.Stmt(member)
		if err != nil {
			return nil, err
		}

		return append(out, fragment.Statement(fragment.Text(def.name+"."+name+" = "+name))...), nil
	}

	return ctx.Stmt(member)
}

func genClass(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrStatementShaped}
	}

	def, err := ctx.prepareClass(node)
	if err != nil {
		return nil, err
	}

	var (
		members []fragment.Group
		after   fragment.Group
	)

	err = ctx.inClass(def, func() error {
		var err error

		members, after, err = ctx.classMembers(def)

		return err
	})
	if err != nil {
		return nil, err
	}

	var body fragment.Group

	for idx, member := range members {
		if idx > 0 {
			body = append(body, fragment.Blank{})
		}

		body = append(body, member...)
	}

	head := fragment.Seq(fragment.Text("class " + def.name))
	if def.info.superclass != nil {
		head = append(head, fragment.Text(" extends "), def.info.superclass)
	}

	head = append(head, fragment.Text(" "))

	var out fragment.Group
	if def.owner != nil {
		out = fragment.Statement(def.owner, fragment.Text("."+def.name+" = "), braced(head, body))
	} else {
		out = fragment.Line(braced(head, body))
	}

	return Stmts(append(out, after...)...), nil
}

// classMembers renders the body of an ES2015 class. Statements with no
// class body form are returned separately to follow the class.
func (ctx *Context) classMembers(def *classDef) ([]fragment.Group, fragment.Group, error) {
	var (
		members []fragment.Group
		after   fragment.Group
		rest    []*ast.Node
	)

	if len(def.fields) > 0 {
		var fields fragment.Group
		for _, field := range def.fields {
			fields = append(fields, fragment.Statement(fragment.Text("#"+field))...)
		}

		members = append(members, fields)
	}

	staticFields := ctx.Level() >= es.ES2022

	for _, member := range def.members {
		switch {
		case member.Is(ast.KindDef, ast.KindDefs):
			rendered, err := ctx.methodMember(def, member, member.Is(ast.KindDefs))
			if err != nil {
				return nil, nil, err
			}

			members = append(members, rendered)
		case member.Is(ast.KindSclass):
			defs, ok := staticDefs(member)
			if !ok {
				return nil, nil, notImplemented(member, "class << on an object other than self")
			}

			for _, static := range defs {
				rendered, err := ctx.methodMember(def, static, true)
				if err != nil {
					return nil, nil, err
				}

				members = append(members, rendered)
			}
		case accessors(member) != nil:
			for _, attr := range accessors(member) {
				members = append(members, ctx.accessorMembers(def, attr)...)
			}
		case staticFields && member.Is(ast.KindCasgn) && member.NodeAt(0) == nil:
			value, err := ctx.ExprPrec(member.NodeAt(2), precAssign)
			if err != nil {
				return nil, nil, err
			}

			members = append(members, fragment.Statement(fragment.Text("static "+string(member.NameAt(1))+" = "), value))
		case staticFields && member.Is(ast.KindCvasgn):
			value, err := ctx.ExprPrec(member.NodeAt(1), precAssign)
			if err != nil {
				return nil, nil, err
			}

			field := "_" + strings.TrimPrefix(string(member.NameAt(0)), "@@")
			members = append(members, fragment.Statement(fragment.Text("static "+field+" = "), value))
		default:
			rest = append(rest, member)
		}
	}

	for _, member := range rest {
		rendered, err := ctx.classStatement(def, member)
		if err != nil {
			return nil, nil, err
		}

		after = append(after, rendered...)
	}

	return members, after, nil
}

// classStatement renders a statement that follows the class.
func (ctx *Context) classStatement(def *classDef, member *ast.Node) (fragment.Group, error) {
	if member.Is(ast.KindCasgn) && member.NodeAt(0) == nil {
		value, err := ctx.ExprPrec(member.NodeAt(2), precAssign)
		if err != nil {
			return nil, err
		}

		return fragment.Statement(fragment.Text(def.name+"."+string(member.NameAt(1))+" = "), value), nil
	}

	return ctx.trailing(def, member)
}

func (ctx *Context) methodMember(def *classDef, node *ast.Node, static bool) (fragment.Group, error) {
	method, err := ctx.classMethod(def, node, static)
	if err != nil {
		return nil, err
	}

	head := method.member

	switch {
	case !static && node.NameAt(0) == "initialize":
		head = "constructor"
	case method.getter:
		head = "get " + head
	case method.setter:
		head = "set " + head
	}

	if static {
		head = "static " + head
	}

	return fragment.Line(braced(fragment.Seq(fragment.Text(head), method.params, fragment.Text(" ")), method.body)), nil
}

func (ctx *Context) accessorMembers(def *classDef, attr accessor) []fragment.Group {
	member := ctx.Member(attr.name)
	ref := fieldRef(def, attr.name)

	var out []fragment.Group

	if attr.kind&attrReader != 0 {
		out = append(out, fragment.Line(braced(fragment.Text("get "+member+"() "),
			fragment.Statement(fragment.Text("return "+ref)))))
	}

	if attr.kind&attrWriter != 0 {
		param := ctx.Local(attr.name)
		out = append(out, fragment.Line(braced(fragment.Text("set "+member+"("+param+") "),
			fragment.Statement(fragment.Text(ref+" = "+param)))))
	}

	return out
}

// property collects the accessor functions of one ES5 property.
type property struct {
	get    fragment.Fragment
	set    fragment.Fragment
	name   string
	static bool
}

func genClassES5(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrStatementShaped}
	}

	def, err := ctx.prepareClass(node)
	if err != nil {
		return nil, err
	}

	var out fragment.Group

	err = ctx.inClass(def, func() error {
		var err error

		out, err = ctx.prototypeClass(def)

		return err
	})
	if err != nil {
		return nil, err
	}

	if def.owner != nil {
		out = append(out, fragment.Statement(def.owner, fragment.Text("."+def.name+" = "+def.name))...)
	}

	return Stmts(out...), nil
}

// prototypeClass renders a class as a constructor function with methods
// assigned to its prototype.
func (ctx *Context) prototypeClass(def *classDef) (fragment.Group, error) {
	name := def.name
	parent := ""

	if def.info.superclass != nil {
		parent = fragment.Flatten(def.info.superclass)
	}

	var (
		out        fragment.Group
		properties []*property
		rest       []*ast.Node
		methods    []*ast.Node
	)

	constructor := fragment.Line(fragment.Text("function " + name + "() {}"))
	if parent != "" {
		constructor = fragment.Line(braced(fragment.Text("function "+name+"() "),
			fragment.Statement(fragment.Text(parent+".apply(this, arguments)"))))
	}

	byName := make(map[string]*property)
	propertyFor := func(member string, static bool) *property {
		key := member
		if static {
			key = "static " + member
		}

		if prop, ok := byName[key]; ok {
			return prop
		}

		prop := &property{name: member, static: static}
		byName[key] = prop
		properties = append(properties, prop)

		return prop
	}

	for _, member := range def.members {
		switch {
		case member.Is(ast.KindDef) && member.NameAt(0) == "initialize":
			method, err := ctx.classMethod(def, member, false)
			if err != nil {
				return nil, err
			}

			constructor = fragment.Line(braced(fragment.Seq(fragment.Text("function "+name), method.params,
				fragment.Text(" ")), method.body))
		case member.Is(ast.KindDef, ast.KindDefs):
			methods = append(methods, member)
		case member.Is(ast.KindSclass):
			defs, ok := staticDefs(member)
			if !ok {
				return nil, notImplemented(member, "class << on an object other than self")
			}

			for _, static := range defs {
				methods = append(methods, ast.New(ast.KindDefs, static.Span(), ast.New(ast.KindSelf, static.Span()),
					static.NameAt(0), static.NodeAt(1), static.NodeAt(2)))
			}
		case accessors(member) != nil:
			for _, attr := range accessors(member) {
				prop := propertyFor(ctx.Member(attr.name), false)
				ref := fieldRef(def, attr.name)

				if attr.kind&attrReader != 0 {
					prop.get = braced(fragment.Text("function() "), fragment.Statement(fragment.Text("return "+ref)))
				}

				if attr.kind&attrWriter != 0 {
					param := ctx.Local(attr.name)
					prop.set = braced(fragment.Text("function("+param+") "),
						fragment.Statement(fragment.Text(ref+" = "+param)))
				}
			}
		default:
			rest = append(rest, member)
		}
	}

	out = append(out, constructor...)

	if parent != "" {
		out = append(out, fragment.Statement(fragment.Text(name+".prototype = Object.create("+parent+".prototype)"))...)
		out = append(out, fragment.Statement(fragment.Text(name+".prototype.constructor = "+name))...)
	}

	for _, member := range methods {
		static := member.Is(ast.KindDefs)
		target := name + ".prototype"

		if static {
			target = name
		}

		method, err := ctx.classMethod(def, member, static)
		if err != nil {
			return nil, err
		}

		fn := braced(fragment.Seq(fragment.Text("function"), method.params, fragment.Text(" ")), method.body)

		switch {
		case method.getter:
			propertyFor(method.member, static).get = fn
		case method.setter:
			propertyFor(method.member, static).set = fn
		default:
			out = append(out, fragment.Blank{})
			out = append(out, fragment.Statement(fragment.Text(target+"."+method.member+" = "), fn)...)
		}
	}

	for _, prop := range properties {
		out = append(out, fragment.Blank{})
		out = append(out, ctx.defineProperty(name, prop)...)
	}

	for _, member := range rest {
		rendered, err := ctx.classStatement(def, member)
		if err != nil {
			return nil, err
		}

		out = append(out, rendered...)
	}

	return out, nil
}

func (ctx *Context) defineProperty(class string, prop *property) fragment.Group {
	target := class + ".prototype"
	if prop.static {
		target = class
	}

	var entries []fragment.Fragment

	if prop.get != nil {
		entries = append(entries, fragment.Seq(fragment.Text("get: "), prop.get))
	}

	if prop.set != nil {
		entries = append(entries, fragment.Seq(fragment.Text("set: "), prop.set))
	}

	entries = append(entries, fragment.Text("configurable: true"))

	var lines fragment.Group

	for idx, entry := range entries {
		if idx < len(entries)-1 {
			entry = fragment.Seq(entry, fragment.Text(","))
		}

		lines = append(lines, fragment.Line(entry)...)
	}

	head := fragment.Text("Object.defineProperty(" + target + ", " + ctx.Quote(prop.name) + ", {")

	return fragment.Statement(head, fragment.Body(lines...), fragment.Text("})"))
}

func genModule(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	if ctx.Position() == PositionExpression {
		return nil, &NotImplementedError{Kind: node.Kind(), Span: node.Span(), Err: ErrStatementShaped}
	}

	nameNode := node.NodeAt(0)
	name := string(nameNode.NameAt(1))

	var target fragment.Fragment = fragment.Text(ctx.aliasKeyword() + " " + name)

	if ns := nameNode.NodeAt(0); ns != nil && !ns.Is(ast.KindCbase) {
		owner, err := ctx.ExprPrec(ns, precPrimary)
		if err != nil {
			return nil, err
		}

		target = fragment.Seq(owner, fragment.Text("."+name))
	}

	var members []*ast.Node

	for _, member := range memberStatements(node.NodeAt(1)) {
		if member.Is(ast.KindSend) && member.NodeAt(0) == nil && member.NameAt(1) == "extend" &&
			len(sendArgs(member)) == 1 && sendArgs(member)[0].Is(ast.KindSelf) {
			continue
		}

		members = append(members, member)
	}

	var body fragment.Group

	ctx.stack.Push(scope.FrameModule, scope.ReceiverNone, name, members...)

	err := ctx.withFunction(func() error {
		var err error

		body, err = ctx.Body(members, PositionStatement)

		return err
	})

	if _, popErr := ctx.stack.Pop(); popErr != nil && err == nil {
		err = popErr
	}

	if err != nil {
		return nil, err
	}

	if len(body) > 0 {
		body = append(body, fragment.Blank{})
	}

	body = append(body, fragment.Statement(fragment.Text("return "), ctx.moduleExports(members))...)

	open, closeText := "(() => {", "})()"
	if ctx.Level() < es.ES2015 {
		open = "(function() {"
	}

	return Stmts(fragment.Statement(target, fragment.Text(" = "+open), fragment.Body(body...),
		fragment.Text(closeText))...), nil
}

// moduleExports renders the object literal a module evaluates to.
func (ctx *Context) moduleExports(members []*ast.Node) fragment.Fragment {
	var entries []fragment.Fragment

	for _, member := range members {
		var key, local string

		switch {
		case member.Is(ast.KindDef):
			key, local = ctx.Member(string(member.NameAt(0))), ctx.Local(string(member.NameAt(0)))
		case member.Is(ast.KindDefs):
			key, local = ctx.Member(string(member.NameAt(1))), ctx.Local(string(member.NameAt(1)))
		case member.Is(ast.KindCasgn) && member.NodeAt(0) == nil:
			key = string(member.NameAt(1))
			local = key
		default:
			nested, ok := nestedName(member)
			if !ok {
				continue
			}

			key, local = nested, nested
		}

		if key == local && ctx.Level() >= es.ES2015 {
			entries = append(entries, fragment.Text(key))
		} else {
			entries = append(entries, fragment.Text(key+": "+local))
		}
	}

	if len(entries) == 0 {
		return fragment.Text("{}")
	}

	return fragment.Seq(fragment.Text("{"), fragment.Join(fragment.Text(", "), entries), fragment.Text("}"))
}
