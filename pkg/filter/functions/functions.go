// Package functions maps common Ruby core methods onto their JavaScript
// counterparts.
package functions

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
)

// Name is the catalog name of the filter.
const Name = "functions"

// rewriter returns the replacement for a call, or nil to leave it alone.
type rewriter func(send *ast.Node, ctx *filter.Context) *ast.Node

// receiverRewrites apply to calls with an explicit receiver.
//
//nolint:gochecknoglobals // Read-only dispatch table.
var receiverRewrites = map[ast.Name]rewriter{
	"length":      lengthOf,
	"size":        lengthOf,
	"count":       lengthOf,
	"to_s":        toS,
	"to_i":        wrapGlobal("parseInt"),
	"to_f":        wrapGlobal("parseFloat"),
	"empty?":      isEmpty,
	"include?":    includes,
	"first":       first,
	"last":        last,
	"upcase":      rename("toUpperCase", 0),
	"downcase":    rename("toLowerCase", 0),
	"strip":       rename("trim", 0),
	"start_with?": startsWith,
	"end_with?":   endsWith,
	"nil?":        isNil,
	"keys":        objectCall("keys", es.ES5),
	"values":      objectCall("values", es.ES2017),
	"entries":     objectCall("entries", es.ES2017),
	"merge":       merge,
	"call":        invoke,
	"select":      rename("filter", -1),
	"find_all":    rename("filter", -1),
	"detect":      rename("find", -1),
	"any?":        rename("some", -1),
	"all?":        rename("every", -1),
	"each_char":   eachChar,
	"max":         mathSpread("max"),
	"min":         mathSpread("min"),
	"abs":         mathCall("abs"),
	"round":       mathCall("round"),
	"floor":       mathCall("floor"),
	"ceil":        mathCall("ceil"),
	"gsub":        gsub,
	"sub":         rename("replace", 2),
	"chars":       chars,
	"inspect":     jsonStringify,
	"to_json":     jsonStringify,
	"freeze":      wrapMember("Object", "freeze"),
	"join":        join,
	"to_sym":      identity,
	"to_a":        identity,
}

// bareRewrites apply to calls without a receiver.
//
//nolint:gochecknoglobals // Read-only dispatch table.
var bareRewrites = map[ast.Name]rewriter{
	"puts":  consoleLog,
	"p":     consoleLog,
	"print": consoleLog,
}

// blockSafe lists the receiver rewrites that still make sense when the call
// carries a block.
//
//nolint:gochecknoglobals // Read-only set.
var blockSafe = map[ast.Name]bool{
	"select":    true,
	"find_all":  true,
	"detect":    true,
	"any?":      true,
	"all?":      true,
	"each_char": true,
}

// Filter returns the filter descriptor.
func Filter() filter.Filter {
	return filter.Filter{
		Name:        Name,
		Description: "Ruby core methods such as puts, length and include? rendered with JavaScript built-ins",
		Handlers: []filter.Registration{
			{Kind: ast.KindSend, Handler: handleSend},
			{Kind: ast.KindBlock, Handler: handleBlock},
		},
	}
}

func handleSend(node *ast.Node, ctx *filter.Context) (filter.Result, error) {
	table := receiverRewrites
	if node.NodeAt(0) == nil {
		table = bareRewrites
	}

	rewrite, ok := table[node.NameAt(1)]
	if !ok {
		return filter.Keep(node)
	}

	if carriesBlock(node, ctx) && !blockSafe[node.NameAt(1)] {
		return filter.Keep(node)
	}

	replacement := rewrite(node, ctx)
	if replacement == nil {
		return filter.Keep(node)
	}

	return filter.Replace(replacement)
}

func carriesBlock(send *ast.Node, ctx *filter.Context) bool {
	parent := ctx.Parent()

	return parent.Is(ast.KindBlock) && parent.NodeAt(0) == send
}

func handleBlock(node *ast.Node, ctx *filter.Context) (filter.Result, error) {
	send := node.NodeAt(0)

	switch {
	case filter.IsCallTo(send, "reject", 0) && send.NodeAt(0) != nil:
		body := negateLast(node.NodeAt(2))

		return filter.Replace(node.WithChildren(send.WithChild(1, ast.Name("filter")), node.Child(1), body))
	case filter.IsCallTo(send, "times", 0) && send.NodeAt(0) != nil:
		return timesLoop(node, ctx)
	default:
		return filter.Keep(node)
	}
}

// timesLoop rewrites n.times { |i| ... } into a for loop over 0...n.
func timesLoop(block *ast.Node, _ *filter.Context) (filter.Result, error) {
	params := block.NodeAt(1)
	span := block.Span()

	var variable ast.Value

	switch params.Len() {
	case 0:
		variable = ast.New(ast.KindLvasgn, span, ast.Name("_i"))
	case 1:
		param := params.NodeAt(0)
		if !param.Is(ast.KindArg) {
			return filter.Keep(block)
		}

		variable = ast.New(ast.KindLvasgn, param.Span(), param.NameAt(0))
	default:
		return filter.Keep(block)
	}

	limit := block.NodeAt(0).NodeAt(0)
	iterRange := ast.New(ast.KindErange, span, filter.IntLit(span, 0), limit)

	return filter.Replace(ast.New(ast.KindFor, span, variable, iterRange, unwrapAutoreturn(block.NodeAt(2))))
}

func unwrapAutoreturn(body *ast.Node) ast.Value {
	if body.Is(ast.KindAutoreturn) {
		return ast.New(ast.KindBegin, body.Span(), body.Children()...)
	}

	return body
}

func negateLast(body *ast.Node) *ast.Node {
	if body == nil {
		return ast.S(ast.KindTrue)
	}

	if body.Is(ast.KindBegin, ast.KindAutoreturn) && body.Len() > 0 {
		last := body.Len() - 1

		return body.WithChild(last, negateLast(body.NodeAt(last)))
	}

	return ast.New(ast.KindSend, body.Span(), body, ast.Name("!"))
}

func argc(send *ast.Node) int {
	return send.Len() - 2
}

func lengthOf(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	return filter.Property(send.Span(), send.NodeAt(0), "length")
}

func toS(send *ast.Node, _ *filter.Context) *ast.Node {
	switch argc(send) {
	case 0:
		return filter.Invoke(send.Span(), filter.Global(send.Span(), "String"), send.NodeAt(0))
	case 1:
		return filter.MethodCall(send.Span(), send.NodeAt(0), "toString", filter.Args(send)...)
	default:
		return nil
	}
}

func wrapGlobal(global string) rewriter {
	return func(send *ast.Node, _ *filter.Context) *ast.Node {
		if argc(send) != 0 {
			return nil
		}

		return filter.Invoke(send.Span(), filter.Global(send.Span(), global), send.NodeAt(0))
	}
}

func wrapMember(global, method string) rewriter {
	return func(send *ast.Node, _ *filter.Context) *ast.Node {
		if argc(send) != 0 {
			return nil
		}

		return filter.MethodCall(send.Span(), filter.Global(send.Span(), global), method, send.NodeAt(0))
	}
}

func identity(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	return send.NodeAt(0)
}

func isEmpty(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	length := filter.Property(send.Span(), send.NodeAt(0), "length")

	return ast.New(ast.KindSend, send.Span(), length, ast.Name("=="), filter.IntLit(send.Span(), 0))
}

func includes(send *ast.Node, ctx *filter.Context) *ast.Node {
	if argc(send) != 1 {
		return nil
	}

	if ctx.Level().Supports(es.FeatureIncludes) {
		return send.WithChild(1, ast.Name("includes"))
	}

	indexOf := filter.MethodCall(send.Span(), send.NodeAt(0), "indexOf", send.Child(2))

	return ast.New(ast.KindSend, send.Span(), indexOf, ast.Name("!="), filter.IntLit(send.Span(), -1))
}

func first(send *ast.Node, _ *filter.Context) *ast.Node {
	span := send.Span()

	switch argc(send) {
	case 0:
		return filter.MethodCall(span, send.NodeAt(0), "[]", filter.IntLit(span, 0))
	case 1:
		return filter.MethodCall(span, send.NodeAt(0), "slice", filter.IntLit(span, 0), send.Child(2))
	default:
		return nil
	}
}

func last(send *ast.Node, ctx *filter.Context) *ast.Node {
	span := send.Span()
	recv := send.NodeAt(0)

	switch argc(send) {
	case 0:
		if ctx.Level().Supports(es.FeatureAt) {
			return filter.MethodCall(span, recv, "at", filter.IntLit(span, -1))
		}

		length := filter.Property(span, recv, "length")
		index := ast.New(ast.KindSend, span, length, ast.Name("-"), filter.IntLit(span, 1))

		return filter.MethodCall(span, recv, "[]", index)
	case 1:
		count := send.NodeAt(2)
		if count == nil {
			return nil
		}

		negated := ast.New(ast.KindSend, span, count, ast.Name("-@"))

		return filter.MethodCall(span, recv, "slice", negated)
	default:
		return nil
	}
}

func rename(target string, wantArgs int) rewriter {
	return func(send *ast.Node, _ *filter.Context) *ast.Node {
		if wantArgs >= 0 && argc(send) != wantArgs {
			return nil
		}

		renamed := send.WithChild(1, ast.Name(target))
		if argc(send) == 0 {
			return filter.Invoke(send.Span(), filter.Property(send.Span(), renamed.NodeAt(0), target))
		}

		return renamed
	}
}

func startsWith(send *ast.Node, ctx *filter.Context) *ast.Node {
	if argc(send) != 1 {
		return nil
	}

	if ctx.Level() >= es.ES2015 {
		return send.WithChild(1, ast.Name("startsWith"))
	}

	indexOf := filter.MethodCall(send.Span(), send.NodeAt(0), "indexOf", send.Child(2))

	return ast.New(ast.KindSend, send.Span(), indexOf, ast.Name("=="), filter.IntLit(send.Span(), 0))
}

func endsWith(send *ast.Node, ctx *filter.Context) *ast.Node {
	if argc(send) != 1 {
		return nil
	}

	if ctx.Level() >= es.ES2015 {
		return send.WithChild(1, ast.Name("endsWith"))
	}

	return nil
}

func isNil(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	return ast.New(ast.KindSend, send.Span(), send.NodeAt(0), ast.Name("=="), ast.New(ast.KindNil, send.Span()))
}

func objectCall(method string, minLevel es.Level) rewriter {
	return func(send *ast.Node, ctx *filter.Context) *ast.Node {
		if argc(send) != 0 || ctx.Level() < minLevel {
			return nil
		}

		return filter.MethodCall(send.Span(), filter.Global(send.Span(), "Object"), method, send.NodeAt(0))
	}
}

func merge(send *ast.Node, ctx *filter.Context) *ast.Node {
	if argc(send) == 0 {
		return nil
	}

	span := send.Span()
	sources := append([]ast.Value{send.NodeAt(0)}, filter.Args(send)...)

	if ctx.Level().Supports(es.FeatureObjectSpread) {
		pairs := make([]ast.Value, 0, len(sources))
		for _, source := range sources {
			pairs = append(pairs, ast.New(ast.KindKwsplat, span, source))
		}

		return ast.New(ast.KindHash, span, pairs...)
	}

	args := append([]ast.Value{ast.New(ast.KindHash, span)}, sources...)

	return filter.MethodCall(span, filter.Global(span, "Object"), "assign", args...)
}

func invoke(send *ast.Node, _ *filter.Context) *ast.Node {
	return filter.Invoke(send.Span(), send.NodeAt(0), filter.Args(send)...)
}

func eachChar(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	split := filter.MethodCall(send.Span(), send.NodeAt(0), "split", filter.StrLit(send.Span(), ""))

	return filter.MethodCall(send.Span(), split, "forEach")
}

func mathSpread(method string) rewriter {
	return func(send *ast.Node, _ *filter.Context) *ast.Node {
		if argc(send) != 0 {
			return nil
		}

		span := send.Span()

		return filter.MethodCall(span, filter.Global(span, "Math"), method, ast.New(ast.KindSplat, span, send.NodeAt(0)))
	}
}

func mathCall(method string) rewriter {
	return func(send *ast.Node, _ *filter.Context) *ast.Node {
		if argc(send) != 0 {
			return nil
		}

		return filter.MethodCall(send.Span(), filter.Global(send.Span(), "Math"), method, send.NodeAt(0))
	}
}

func gsub(send *ast.Node, ctx *filter.Context) *ast.Node {
	if argc(send) != 2 {
		return nil
	}

	pattern := send.NodeAt(2)

	switch {
	case pattern.Is(ast.KindRegexp):
		return send.WithChildren(send.NodeAt(0), ast.Name("replace"), withGlobalFlag(pattern), send.Child(3))
	case ctx.Level().Supports(es.FeatureReplaceAll):
		return send.WithChild(1, ast.Name("replaceAll"))
	default:
		span := send.Span()
		split := filter.MethodCall(span, send.NodeAt(0), "split", pattern)

		return filter.MethodCall(span, split, "join", send.Child(3))
	}
}

func withGlobalFlag(regexp *ast.Node) *ast.Node {
	opts := regexp.NodeAt(regexp.Len() - 1)
	if !opts.Is(ast.KindRegopt) {
		return regexp
	}

	for _, flag := range opts.Children() {
		if flag == ast.Name("g") {
			return regexp
		}
	}

	flags := append(opts.Children(), ast.Name("g"))

	return regexp.WithChild(regexp.Len()-1, opts.WithChildren(flags...))
}

func chars(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	return filter.MethodCall(send.Span(), send.NodeAt(0), "split", filter.StrLit(send.Span(), ""))
}

func jsonStringify(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	return filter.MethodCall(send.Span(), filter.Global(send.Span(), "JSON"), "stringify", send.NodeAt(0))
}

func join(send *ast.Node, _ *filter.Context) *ast.Node {
	if argc(send) != 0 {
		return nil
	}

	return filter.MethodCall(send.Span(), send.NodeAt(0), "join", filter.StrLit(send.Span(), ""))
}

func consoleLog(send *ast.Node, _ *filter.Context) *ast.Node {
	span := send.Span()

	return filter.MethodCall(span, filter.Global(span, "console"), "log", filter.Args(send)...)
}
