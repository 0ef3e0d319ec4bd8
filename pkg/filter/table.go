package filter

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/rb2js/internal/suggest"
	"github.com/Sumatoshi-tech/rb2js/internal/toposort"
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

type boundHandler struct {
	handler Handler
	filter  string
	id      int
}

// Table maps node kinds to the ordered handlers of the active filters. It
// is immutable after NewTable and safe for concurrent use.
type Table struct {
	handlers map[ast.Kind][]boundHandler
	filters  []string
}

// NewTable resolves activation against catalog. Filters named in Requires
// are activated too and ordered before the filters that need them; all
// other filters keep their activation order.
func NewTable(catalog *Catalog, activation []string) (*Table, error) {
	ordered, err := resolveOrder(catalog, activation)
	if err != nil {
		return nil, err
	}

	table := &Table{handlers: make(map[ast.Kind][]boundHandler), filters: ordered}
	nextID := 0

	for _, name := range ordered {
		flt, _ := catalog.Lookup(name)

		for _, registration := range flt.Handlers {
			table.handlers[registration.Kind] = append(table.handlers[registration.Kind], boundHandler{
				handler: registration.Handler,
				filter:  name,
				id:      nextID,
			})
			nextID++
		}
	}

	return table, nil
}

func resolveOrder(catalog *Catalog, activation []string) ([]string, error) {
	graph := toposort.NewGraph()
	visiting := make(map[string]bool)

	var visit func(name string, path []string) error

	visit = func(name string, path []string) error {
		flt, ok := catalog.Lookup(name)
		if !ok {
			if len(path) > 0 {
				return fmt.Errorf("%w: %q required by %q", ErrUnknownFilter, name, path[len(path)-1])
			}

			return fmt.Errorf("%w: %q%s", ErrUnknownFilter, name, suggest.Hint(name, catalog.Names()))
		}

		if visiting[name] {
			return nil
		}

		visiting[name] = true

		for _, required := range flt.Requires {
			if err := visit(required, append(path, name)); err != nil {
				return err
			}

			graph.AddEdge(required, name)
		}

		graph.AddNode(name)

		return nil
	}

	for _, name := range activation {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	ordered, err := graph.Sort()
	if err != nil {
		return nil, fmt.Errorf("filter requirements: %w", err)
	}

	return ordered, nil
}

// Filters returns the resolved filter order.
func (table *Table) Filters() []string {
	return slices.Clone(table.filters)
}

// Empty reports whether no handler is registered.
func (table *Table) Empty() bool {
	return len(table.handlers) == 0
}

// HandlerCount returns how many handlers are registered for kind.
func (table *Table) HandlerCount(kind ast.Kind) int {
	return len(table.handlers[kind])
}

// Apply rewrites the tree in a single depth-first traversal. Subtrees no
// handler changes are returned by identity.
func (table *Table) Apply(root *ast.Node, ctx *Context) (*ast.Node, error) {
	if root == nil || table.Empty() {
		return root, nil
	}

	return table.rewrite(root, ctx)
}

func (table *Table) rewrite(node *ast.Node, ctx *Context) (*ast.Node, error) {
	current, skipDescent, err := table.dispatch(node, ctx)
	if err != nil {
		return nil, err
	}

	if skipDescent || current.Len() == 0 {
		return current, nil
	}

	ctx.push(current)
	defer ctx.pop()

	var children []ast.Value

	for idx := range current.Len() {
		child := current.NodeAt(idx)
		if child == nil {
			continue
		}

		rewritten, err := table.rewrite(child, ctx)
		if err != nil {
			return nil, err
		}

		if rewritten == child {
			continue
		}

		if children == nil {
			children = current.Children()
		}

		children[idx] = rewritten
	}

	if children == nil {
		return current, nil
	}

	return current.WithChildren(children...), nil
}

// dispatch runs the handlers for the node's kind. When a handler changes the
// kind, the node is dispatched again against the new kind's handlers, but a
// registration never runs twice on the same position.
func (table *Table) dispatch(node *ast.Node, ctx *Context) (*ast.Node, bool, error) {
	if ctx.gated(node) {
		return node, false, nil
	}

	name := IdentifierOf(node)
	current := node
	skipDescent := false
	applied := make(map[int]bool)

	for {
		kindChanged := false

		for _, bound := range table.handlers[current.Kind()] {
			if applied[bound.id] {
				continue
			}

			applied[bound.id] = true

			if name != "" && ctx.opts.ExcludedFor(bound.filter, name) {
				continue
			}

			result, err := invoke(bound, current, ctx)
			if err != nil {
				return nil, false, err
			}

			skipDescent = skipDescent || result.SkipDescent

			if result.Node.Kind() != current.Kind() {
				current = result.Node
				kindChanged = true

				break
			}

			current = result.Node
		}

		if !kindChanged {
			return current, skipDescent, nil
		}
	}
}

func invoke(bound boundHandler, node *ast.Node, ctx *Context) (result Result, err error) {
	ctx.filter = bound.filter

	defer func() {
		ctx.filter = ""

		if recovered := recover(); recovered != nil {
			err = &FilterError{
				Filter: bound.filter,
				Kind:   node.Kind(),
				Span:   node.Span(),
				Err:    fmt.Errorf("%w: %v", ErrHandlerPanic, recovered),
			}
		}
	}()

	result, err = bound.handler(node, ctx)
	if err != nil {
		return Result{}, &FilterError{Filter: bound.filter, Kind: node.Kind(), Span: node.Span(), Err: err}
	}

	if result.Node == nil {
		return Result{}, &FilterError{Filter: bound.filter, Kind: node.Kind(), Span: node.Span(), Err: ErrNilResult}
	}

	return result, nil
}
