package filter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/internal/toposort"
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

func call(name string, args ...ast.Value) *ast.Node {
	return ast.S(ast.KindSend, append([]ast.Value{nil, ast.Name(name)}, args...)...)
}

// renameFilter rewrites calls named from into calls named to.
func renameFilter(filterName, from, to string) filter.Filter {
	return filter.Filter{
		Name: filterName,
		Handlers: []filter.Registration{{
			Kind: ast.KindSend,
			Handler: func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
				if node.NameAt(1) != ast.Name(from) {
					return filter.Keep(node)
				}

				return filter.Replace(node.WithChild(1, ast.Name(to)))
			},
		}},
	}
}

func newTable(t *testing.T, activation []string, filters ...filter.Filter) *filter.Table {
	t.Helper()

	catalog, err := filter.NewCatalog(filters...)
	require.NoError(t, err)

	table, err := filter.NewTable(catalog, activation)
	require.NoError(t, err)

	return table
}

func apply(t *testing.T, table *filter.Table, root *ast.Node, opts options.Options) *ast.Node {
	t.Helper()

	out, err := table.Apply(root, filter.NewContext(opts))
	require.NoError(t, err)

	return out
}

func TestApplyRewritesInSingleTraversal(t *testing.T) {
	t.Parallel()

	table := newTable(t, []string{"a", "b"}, renameFilter("a", "x", "y"), renameFilter("b", "y", "z"))

	root := ast.S(ast.KindBegin, call("x"), call("y"))
	out := apply(t, table, root, options.Default())

	assert.Equal(t, `(begin (send nil :z) (send nil :z))`, ast.Format(out))
}

func TestApplyKeepsUntouchedSubtreesIdentical(t *testing.T) {
	t.Parallel()

	table := newTable(t, []string{"a"}, renameFilter("a", "x", "y"))

	untouched := ast.S(ast.KindArray, ast.S(ast.KindInt, ast.Int(1)), ast.S(ast.KindStr, ast.Str("s")))
	root := ast.S(ast.KindBegin, untouched, call("x"))

	out := apply(t, table, root, options.Default())

	assert.NotSame(t, root, out)
	assert.Same(t, untouched, out.NodeAt(0))

	noMatch := ast.S(ast.KindBegin, untouched, call("other"))
	assert.Same(t, noMatch, apply(t, table, noMatch, options.Default()))
}

func TestConflictOrderRedispatchesWithoutReapplying(t *testing.T) {
	t.Parallel()

	var secondRan, lvarRuns int

	first := filter.Filter{
		Name: "first",
		Handlers: []filter.Registration{{
			Kind: ast.KindSend,
			Handler: func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
				return filter.Replace(node.Updated(ast.KindLvar, node.NameAt(1)))
			},
		}},
	}
	second := filter.Filter{
		Name: "second",
		Handlers: []filter.Registration{
			{
				Kind: ast.KindSend,
				Handler: func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
					secondRan++

					return filter.Keep(node)
				},
			},
			{
				Kind: ast.KindLvar,
				Handler: func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
					lvarRuns++

					return filter.Keep(node)
				},
			},
		},
	}

	table := newTable(t, []string{"first", "second"}, first, second)
	out := apply(t, table, call("value"), options.Default())

	assert.Equal(t, `(lvar :value)`, ast.Format(out))
	assert.Zero(t, secondRan)
	assert.Equal(t, 1, lvarRuns)
}

func TestRedispatchDoesNotLoop(t *testing.T) {
	t.Parallel()

	flip := func(to ast.Kind) filter.Handler {
		return func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
			return filter.Replace(node.Updated(to, node.Children()...))
		}
	}

	pingPong := filter.Filter{
		Name: "ping-pong",
		Handlers: []filter.Registration{
			{Kind: ast.KindTrue, Handler: flip(ast.KindFalse)},
			{Kind: ast.KindFalse, Handler: flip(ast.KindTrue)},
		},
	}

	table := newTable(t, []string{"ping-pong"}, pingPong)
	out := apply(t, table, ast.S(ast.KindTrue), options.Default())

	assert.Equal(t, ast.KindTrue, out.Kind())
}

func TestEscapeSuffixBypassesEveryFilter(t *testing.T) {
	t.Parallel()

	var seen []string

	spy := filter.Filter{
		Name: "spy",
		Handlers: []filter.Registration{{
			Kind: ast.KindSend,
			Handler: func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
				seen = append(seen, string(node.NameAt(1)))

				return filter.Keep(node)
			},
		}},
	}

	table := newTable(t, []string{"a", "spy"}, renameFilter("a", "puts", "log"), spy)

	escaped := call("puts_!", ast.S(ast.KindStr, ast.Str("hi")))
	out := apply(t, table, escaped, options.Default())

	assert.Same(t, escaped, out)
	assert.Empty(t, seen)
}

func TestGlobalAndKindExclusions(t *testing.T) {
	t.Parallel()

	table := newTable(t, []string{"a"}, renameFilter("a", "puts", "log"))

	opts := options.Default()
	opts.Exclusions.Identifiers = []string{"puts"}

	root := call("puts")
	assert.Same(t, root, apply(t, table, root, opts))

	opts = options.Default()
	opts.Exclusions.Kinds = []ast.Kind{ast.KindSend}
	assert.Same(t, root, apply(t, table, root, opts))
}

func TestPerFilterExclusion(t *testing.T) {
	t.Parallel()

	table := newTable(t, []string{"a", "b"}, renameFilter("a", "puts", "log"), renameFilter("b", "puts", "print"))

	opts := options.Default()
	opts.Exclusions.PerFilter = map[string][]string{"a": {"puts"}}

	out := apply(t, table, call("puts"), opts)

	assert.Equal(t, ast.Name("print"), out.NameAt(1))
}

func TestSkipDescent(t *testing.T) {
	t.Parallel()

	wrap := filter.Filter{
		Name: "wrap",
		Handlers: []filter.Registration{{
			Kind: ast.KindArray,
			Handler: func(node *ast.Node, _ *filter.Context) (filter.Result, error) {
				return filter.ReplaceNoDescend(node.Updated(ast.KindBegin, node.Children()...))
			},
		}},
	}

	table := newTable(t, []string{"wrap", "a"}, wrap, renameFilter("a", "x", "y"))

	out := apply(t, table, ast.S(ast.KindArray, call("x")), options.Default())

	assert.Equal(t, `(begin (send nil :x))`, ast.Format(out))
}

func TestParentIsVisible(t *testing.T) {
	t.Parallel()

	var parents []ast.Kind

	spy := filter.Filter{
		Name: "spy",
		Handlers: []filter.Registration{{
			Kind: ast.KindInt,
			Handler: func(node *ast.Node, ctx *filter.Context) (filter.Result, error) {
				parents = append(parents, ctx.Parent().Kind())
				assert.Equal(t, "spy", ctx.Filter())

				return filter.Keep(node)
			},
		}},
	}

	table := newTable(t, []string{"spy"}, spy)
	apply(t, table, ast.S(ast.KindArray, ast.S(ast.KindInt, ast.Int(1))), options.Default())

	assert.Equal(t, []ast.Kind{ast.KindArray}, parents)
}

func TestHandlerFailuresBecomeFilterErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	span := ast.Span{StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 9}

	tests := []struct {
		name    string
		handler filter.Handler
		wantErr error
	}{
		{
			name: "error",
			handler: func(*ast.Node, *filter.Context) (filter.Result, error) {
				return filter.Result{}, errBoom
			},
			wantErr: errBoom,
		},
		{
			name: "nil node",
			handler: func(*ast.Node, *filter.Context) (filter.Result, error) {
				return filter.Result{}, nil
			},
			wantErr: filter.ErrNilResult,
		},
		{
			name: "panic",
			handler: func(*ast.Node, *filter.Context) (filter.Result, error) {
				panic("unexpected shape")
			},
			wantErr: filter.ErrHandlerPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			broken := filter.Filter{
				Name:     "broken",
				Handlers: []filter.Registration{{Kind: ast.KindSend, Handler: tt.handler}},
			}

			table := newTable(t, []string{"broken"}, broken)
			root := ast.S(ast.KindBegin, ast.New(ast.KindSend, span, nil, ast.Name("x")))

			_, err := table.Apply(root, filter.NewContext(options.Default()))

			var filterErr *filter.FilterError

			require.ErrorAs(t, err, &filterErr)
			assert.Equal(t, "broken", filterErr.Filter)
			assert.Equal(t, ast.KindSend, filterErr.Kind)
			assert.Equal(t, span, filterErr.Span)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequiresAreOrderedFirst(t *testing.T) {
	t.Parallel()

	base := filter.Filter{Name: "base"}
	dependent := filter.Filter{Name: "dependent", Requires: []string{"base"}}
	other := filter.Filter{Name: "other"}

	table := newTable(t, []string{"other", "dependent"}, base, dependent, other)

	assert.Equal(t, []string{"other", "base", "dependent"}, table.Filters())
	assert.True(t, table.Empty())
}

func TestNewTableErrors(t *testing.T) {
	t.Parallel()

	loopA := filter.Filter{Name: "a", Requires: []string{"b"}}
	loopB := filter.Filter{Name: "b", Requires: []string{"a"}}
	orphan := filter.Filter{Name: "orphan", Requires: []string{"missing"}}

	catalog, err := filter.NewCatalog(loopA, loopB, orphan)
	require.NoError(t, err)

	_, err = filter.NewTable(catalog, []string{"nope"})
	require.ErrorIs(t, err, filter.ErrUnknownFilter)

	_, err = filter.NewTable(catalog, []string{"orphn"})
	require.ErrorIs(t, err, filter.ErrUnknownFilter)
	assert.Contains(t, err.Error(), `did you mean "orphan"`)

	_, err = filter.NewTable(catalog, []string{"orphan"})
	require.ErrorIs(t, err, filter.ErrUnknownFilter)

	_, err = filter.NewTable(catalog, []string{"a"})
	require.ErrorIs(t, err, toposort.ErrCycle)
}

func TestCatalogValidation(t *testing.T) {
	t.Parallel()

	_, err := filter.NewCatalog(filter.Filter{})
	require.ErrorIs(t, err, filter.ErrInvalidFilter)

	_, err = filter.NewCatalog(filter.Filter{Name: "x"}, filter.Filter{Name: "x"})
	require.ErrorIs(t, err, filter.ErrDuplicateFilter)

	_, err = filter.NewCatalog(filter.Filter{Name: "x", Handlers: []filter.Registration{{Kind: ast.KindSend}}})
	require.ErrorIs(t, err, filter.ErrInvalidFilter)

	catalog, err := filter.NewCatalog(filter.Filter{Name: "one"})
	require.NoError(t, err)

	extended, err := catalog.With(filter.Filter{Name: "two"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, extended.Names())
	assert.Equal(t, []string{"one"}, catalog.Names())
}

func TestIdentifierOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "puts", filter.IdentifierOf(call("puts")))
	assert.Equal(t, "each", filter.IdentifierOf(ast.S(ast.KindBlock, call("each"), ast.S(ast.KindArgs), nil)))
	assert.Equal(t, "a", filter.IdentifierOf(ast.S(ast.KindLvar, ast.Name("a"))))
	assert.Empty(t, filter.IdentifierOf(ast.S(ast.KindInt, ast.Int(1))))
}
