// Package nodejs maps Ruby process and file APIs onto Node.js modules.
package nodejs

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/functions"
)

// Name is the catalog name of the filter.
const Name = "node"

// Filter returns the filter descriptor.
func Filter() filter.Filter {
	return filter.Filter{
		Name:        Name,
		Description: "File, ARGV, ENV, exit and backticks rendered with Node.js APIs",
		Requires:    []string{functions.Name},
		Handlers: []filter.Registration{
			{Kind: ast.KindSend, Handler: handleSend},
			{Kind: ast.KindConst, Handler: handleConst},
			{Kind: ast.KindXstr, Handler: handleBackticks},
		},
	}
}

//nolint:gochecknoglobals // Read-only dispatch table.
var fileMethods = map[ast.Name]string{
	"read":      "readFileSync",
	"write":     "writeFileSync",
	"exist?":    "existsSync",
	"delete":    "unlinkSync",
	"rename":    "renameSync",
	"readlines": "readFileSync",
}

func requireModule(span ast.Span, module string) *ast.Node {
	return filter.Invoke(span, filter.Global(span, "require"), filter.StrLit(span, module))
}

func handleSend(node *ast.Node, ctx *filter.Context) (filter.Result, error) {
	span := node.Span()
	recv := node.NodeAt(0)
	name := node.NameAt(1)

	switch {
	case filter.IsConst(recv, "File"):
		return fileCall(node)
	case recv == nil && name == "exit":
		return filter.Replace(filter.MethodCall(span, filter.Global(span, "process"), "exit", filter.Args(node)...))
	case recv == nil && name == "__dir__" && node.Len() == 2:
		return filter.Replace(filter.Global(span, "__dirname"))
	case recv == nil && name == "system" && node.Len() == 3:
		stdio := ast.New(ast.KindPair, span, ast.New(ast.KindSym, span, ast.Name("stdio")), filter.StrLit(span, "inherit"))
		execSync := filter.MethodCall(span, requireModule(span, "child_process"), "execSync", node.Child(2), ast.New(ast.KindHash, span, stdio))

		return filter.Replace(execSync)
	case recv.Is(ast.KindGvar) && name == "puts" && !ctx.Excluded("puts"):
		return stdStream(node, recv)
	default:
		return filter.Keep(node)
	}
}

func fileCall(node *ast.Node) (filter.Result, error) {
	span := node.Span()
	name := node.NameAt(1)

	method, ok := fileMethods[name]
	if !ok {
		return filter.Keep(node)
	}

	args := filter.Args(node)
	fs := requireModule(span, "fs")

	switch name {
	case "read":
		args = append(args, filter.StrLit(span, "utf8"))
	case "readlines":
		read := filter.MethodCall(span, fs, method, append(args, filter.StrLit(span, "utf8"))...)

		return filter.Replace(filter.MethodCall(span, read, "split", filter.StrLit(span, "\n")))
	}

	return filter.Replace(filter.MethodCall(span, fs, method, args...))
}

func stdStream(node, stream *ast.Node) (filter.Result, error) {
	span := node.Span()

	switch stream.NameAt(0) {
	case "$stderr":
		return filter.Replace(filter.MethodCall(span, filter.Global(span, "console"), "error", filter.Args(node)...))
	case "$stdout":
		return filter.Replace(filter.MethodCall(span, filter.Global(span, "console"), "log", filter.Args(node)...))
	default:
		return filter.Keep(node)
	}
}

func handleConst(node *ast.Node, _ *filter.Context) (filter.Result, error) {
	span := node.Span()

	switch {
	case filter.IsConst(node, "ARGV"):
		argv := filter.Property(span, filter.Global(span, "process"), "argv")

		return filter.ReplaceNoDescend(filter.MethodCall(span, argv, "slice", filter.IntLit(span, 2)))
	case filter.IsConst(node, "ENV"):
		return filter.ReplaceNoDescend(filter.Property(span, filter.Global(span, "process"), "env"))
	default:
		return filter.Keep(node)
	}
}

func handleBackticks(node *ast.Node, _ *filter.Context) (filter.Result, error) {
	span := node.Span()
	command := node.Updated(ast.KindDstr, node.Children()...)
	encoding := ast.New(ast.KindPair, span, ast.New(ast.KindSym, span, ast.Name("encoding")), filter.StrLit(span, "utf8"))

	return filter.Replace(filter.MethodCall(span, requireModule(span, "child_process"), "execSync", command, ast.New(ast.KindHash, span, encoding)))
}
