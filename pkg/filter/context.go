package filter

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

// Context is the read-only view of the conversion a handler receives. One
// Context belongs to one traversal and must not be shared between goroutines.
type Context struct {
	ancestors []*ast.Node
	filter    string
	opts      options.Options
}

// NewContext creates a traversal context for opts.
func NewContext(opts options.Options) *Context {
	return &Context{opts: opts}
}

// Options returns the conversion options.
func (ctx *Context) Options() options.Options {
	return ctx.opts
}

// Level returns the configured target level.
func (ctx *Context) Level() es.Level {
	return ctx.opts.Level
}

// Filter returns the name of the filter whose handler is running.
func (ctx *Context) Filter() string {
	return ctx.filter
}

// Parent returns the already rewritten parent of the node being handled,
// or nil at the root.
func (ctx *Context) Parent() *ast.Node {
	if len(ctx.ancestors) == 0 {
		return nil
	}

	return ctx.ancestors[len(ctx.ancestors)-1]
}

// Depth returns the number of ancestors of the node being handled.
func (ctx *Context) Depth() int {
	return len(ctx.ancestors)
}

// Excluded reports whether the running filter must leave name alone,
// either through the global exclusion rules or its own exclusion list.
func (ctx *Context) Excluded(name string) bool {
	return ctx.opts.Excluded(name) || ctx.opts.ExcludedFor(ctx.filter, name)
}

// gated reports whether no handler may run on node at all.
func (ctx *Context) gated(node *ast.Node) bool {
	if ctx.opts.KindExcluded(node.Kind()) {
		return true
	}

	name := IdentifierOf(node)

	return name != "" && ctx.opts.Excluded(name)
}

func (ctx *Context) push(node *ast.Node) {
	ctx.ancestors = append(ctx.ancestors, node)
}

func (ctx *Context) pop() {
	ctx.ancestors = ctx.ancestors[:len(ctx.ancestors)-1]
}
