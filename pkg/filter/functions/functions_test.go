package functions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/functions"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

func send(recv ast.Value, name string, args ...ast.Value) *ast.Node {
	return ast.S(ast.KindSend, append([]ast.Value{recv, ast.Name(name)}, args...)...)
}

func lvar(name string) *ast.Node {
	return ast.S(ast.KindLvar, ast.Name(name))
}

func str(text string) *ast.Node {
	return ast.S(ast.KindStr, ast.Str(text))
}

func integer(value int64) *ast.Node {
	return ast.S(ast.KindInt, ast.Int(value))
}

func regexp(source string, flags ...ast.Value) *ast.Node {
	return ast.S(ast.KindRegexp, str(source), ast.S(ast.KindRegopt, flags...))
}

func apply(t *testing.T, opts options.Options, root *ast.Node) string {
	t.Helper()

	catalog, err := filter.NewCatalog(functions.Filter())
	require.NoError(t, err)

	table, err := filter.NewTable(catalog, []string{functions.Name})
	require.NoError(t, err)

	out, err := table.Apply(root, filter.NewContext(opts))
	require.NoError(t, err)

	return ast.Format(out)
}

func atLevel(level es.Level) options.Options {
	opts := options.Default()
	opts.Level = level

	return opts
}

func TestReceiverRewrites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input *ast.Node
		name  string
		want  string
		level es.Level
	}{
		{name: "to_i", level: es.ES2020, input: send(lvar("s"), "to_i"), want: `(call (const nil :parseInt) (lvar :s))`},
		{name: "to_s with radix", level: es.ES2020, input: send(lvar("n"), "to_s", integer(2)), want: `(send (lvar :n) :toString (int 2))`},
		{name: "empty", level: es.ES2020, input: send(lvar("a"), "empty?"), want: `(send (attr (lvar :a) :length) :== (int 0))`},
		{name: "first", level: es.ES2020, input: send(lvar("a"), "first"), want: `(send (lvar :a) :[] (int 0))`},
		{name: "first n", level: es.ES2020, input: send(lvar("a"), "first", integer(2)), want: `(send (lvar :a) :slice (int 0) (int 2))`},
		{name: "last n", level: es.ES2020, input: send(lvar("a"), "last", integer(2)), want: `(send (lvar :a) :slice (send (int 2) :-@))`},
		{name: "start_with modern", level: es.ES2015, input: send(lvar("s"), "start_with?", str("a")), want: `(send (lvar :s) :startsWith (str "a"))`},
		{
			name: "start_with legacy", level: es.ES5, input: send(lvar("s"), "start_with?", str("a")),
			want: `(send (send (lvar :s) :indexOf (str "a")) :== (int 0))`,
		},
		{name: "end_with legacy untouched", level: es.ES5, input: send(lvar("s"), "end_with?", str("a")), want: `(send (lvar :s) :end_with? (str "a"))`},
		{name: "keys", level: es.ES5, input: send(lvar("h"), "keys"), want: `(send (const nil :Object) :keys (lvar :h))`},
		{name: "values modern", level: es.ES2017, input: send(lvar("h"), "values"), want: `(send (const nil :Object) :values (lvar :h))`},
		{name: "values legacy untouched", level: es.ES2016, input: send(lvar("h"), "values"), want: `(send (lvar :h) :values)`},
		{name: "sub", level: es.ES2020, input: send(lvar("s"), "sub", str("a"), str("b")), want: `(send (lvar :s) :replace (str "a") (str "b"))`},
		{
			name: "gsub string legacy", level: es.ES2020, input: send(lvar("s"), "gsub", str("a"), str("b")),
			want: `(send (send (lvar :s) :split (str "a")) :join (str "b"))`,
		},
		{
			name: "gsub keeps an existing global flag", level: es.ES2020,
			input: send(lvar("s"), "gsub", regexp("a", ast.Name("g"), ast.Name("i")), str("b")),
			want:  `(send (lvar :s) :replace (regexp (str "a") (regopt :g :i)) (str "b"))`,
		},
		{
			name: "gsub adds the global flag after others", level: es.ES2020,
			input: send(lvar("s"), "gsub", regexp("a", ast.Name("i")), str("b")),
			want:  `(send (lvar :s) :replace (regexp (str "a") (regopt :i :g)) (str "b"))`,
		},
		{name: "chars", level: es.ES2020, input: send(lvar("s"), "chars"), want: `(send (lvar :s) :split (str ""))`},
		{name: "join", level: es.ES2020, input: send(lvar("a"), "join"), want: `(send (lvar :a) :join (str ""))`},
		{name: "inspect", level: es.ES2020, input: send(lvar("a"), "inspect"), want: `(send (const nil :JSON) :stringify (lvar :a))`},
		{name: "freeze", level: es.ES2020, input: send(lvar("a"), "freeze"), want: `(send (const nil :Object) :freeze (lvar :a))`},
		{name: "to_sym", level: es.ES2020, input: send(lvar("s"), "to_sym"), want: `(lvar :s)`},
		{name: "abs", level: es.ES2020, input: send(lvar("n"), "abs"), want: `(send (const nil :Math) :abs (lvar :n))`},
		{name: "wrong arity untouched", level: es.ES2020, input: send(lvar("a"), "size", integer(1)), want: `(send (lvar :a) :size (int 1))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, apply(t, atLevel(tt.level), tt.input))
		})
	}
}

func TestBareRewrites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"puts", `(send (const nil :console) :log (str "x"))`},
		{"p", `(send (const nil :console) :log (str "x"))`},
		{"print", `(send (const nil :console) :log (str "x"))`},
		{"warn", `(send nil :warn (str "x"))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, apply(t, atLevel(es.ES2020), send(nil, tt.name, str("x"))))
		})
	}
}

func TestBlockSafeRewrites(t *testing.T) {
	t.Parallel()

	selected := ast.S(ast.KindBlock,
		send(lvar("a"), "select"),
		ast.S(ast.KindArgs, ast.S(ast.KindArg, ast.Name("x"))),
		lvar("x"))

	assert.Equal(t,
		`(block (call (attr (lvar :a) :filter)) (args (arg :x)) (lvar :x))`,
		apply(t, atLevel(es.ES2020), selected))

	sized := ast.S(ast.KindBlock,
		send(lvar("a"), "size"),
		ast.S(ast.KindArgs),
		nil)

	assert.Equal(t, `(block (send (lvar :a) :size) (args) nil)`, apply(t, atLevel(es.ES2020), sized))
}

func TestTimesWithoutParameterUsesHiddenCounter(t *testing.T) {
	t.Parallel()

	times := ast.S(ast.KindBlock,
		send(integer(3), "times"),
		ast.S(ast.KindArgs),
		send(nil, "tick"))

	assert.Equal(t,
		`(for (lvasgn :_i) (erange (int 0) (int 3)) (send nil :tick))`,
		apply(t, atLevel(es.ES2020), times))
}

func TestRejectNegatesLastStatement(t *testing.T) {
	t.Parallel()

	reject := ast.S(ast.KindBlock,
		send(lvar("a"), "reject"),
		ast.S(ast.KindArgs, ast.S(ast.KindArg, ast.Name("x"))),
		ast.S(ast.KindBegin, send(nil, "log", lvar("x")), lvar("x")))

	assert.Equal(t,
		`(block (send (lvar :a) :filter) (args (arg :x)) (begin (send nil :log (lvar :x)) (send (lvar :x) :!)))`,
		apply(t, atLevel(es.ES2020), reject))
}

func TestExcludedMethodIsLeftAlone(t *testing.T) {
	t.Parallel()

	opts := atLevel(es.ES2020)
	opts.Exclusions.Identifiers = []string{"puts"}

	assert.Equal(t, `(send nil :puts (str "x"))`, apply(t, opts, send(nil, "puts", str("x"))))
}
