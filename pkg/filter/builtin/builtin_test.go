package builtin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/builtin"
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

func run(t *testing.T, activation []string, level es.Level, root *ast.Node) string {
	t.Helper()

	table, err := filter.NewTable(builtin.Catalog(), activation)
	require.NoError(t, err)

	opts := options.Default()
	opts.Level = level

	out, err := table.Apply(root, filter.NewContext(opts))
	require.NoError(t, err)

	return ast.Format(out)
}

func TestCatalogNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"functions", "return", "node"}, builtin.Catalog().Names())
}

func TestNodeRequiresFunctions(t *testing.T) {
	t.Parallel()

	table, err := filter.NewTable(builtin.Catalog(), []string{"node"})
	require.NoError(t, err)
	assert.Equal(t, []string{"functions", "node"}, table.Filters())
}

func TestFunctionsFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level es.Level
		input *ast.Node
		want  string
	}{
		{"puts", es.ES2020, send(nil, "puts", str("hi")), `(send (const nil :console) :log (str "hi"))`},
		{"length", es.ES2020, send(lvar("a"), "size"), `(attr (lvar :a) :length)`},
		{"include modern", es.ES2016, send(lvar("a"), "include?", lvar("x")), `(send (lvar :a) :includes (lvar :x))`},
		{
			"include legacy", es.ES2015, send(lvar("a"), "include?", lvar("x")),
			`(send (send (lvar :a) :indexOf (lvar :x)) :!= (int -1))`,
		},
		{"last modern", es.ES2022, send(lvar("a"), "last"), `(send (lvar :a) :at (int -1))`},
		{
			"last legacy", es.ES2021, send(lvar("a"), "last"),
			`(send (lvar :a) :[] (send (attr (lvar :a) :length) :- (int 1)))`,
		},
		{"upcase", es.ES2020, send(lvar("s"), "upcase"), `(call (attr (lvar :s) :toUpperCase))`},
		{"to_s", es.ES2020, send(lvar("n"), "to_s"), `(call (const nil :String) (lvar :n))`},
		{"max", es.ES2020, send(lvar("a"), "max"), `(send (const nil :Math) :max (splat (lvar :a)))`},
		{
			"merge modern", es.ES2018, send(lvar("a"), "merge", lvar("b")),
			`(hash (kwsplat (lvar :a)) (kwsplat (lvar :b)))`,
		},
		{
			"merge legacy", es.ES2017, send(lvar("a"), "merge", lvar("b")),
			`(send (const nil :Object) :assign (hash) (lvar :a) (lvar :b))`,
		},
		{"gsub string modern", es.ES2021, send(lvar("s"), "gsub", str("a"), str("b")), `(send (lvar :s) :replaceAll (str "a") (str "b"))`},
		{
			"gsub regexp", es.ES2020,
			send(lvar("s"), "gsub", ast.S(ast.KindRegexp, str("a+"), ast.S(ast.KindRegopt)), str("b")),
			`(send (lvar :s) :replace (regexp (str "a+") (regopt :g)) (str "b"))`,
		},
		{"call", es.ES2020, send(lvar("f"), "call", ast.S(ast.KindInt, ast.Int(1))), `(call (lvar :f) (int 1))`},
		{"nil?", es.ES2020, send(lvar("x"), "nil?"), `(send (lvar :x) :== (nil))`},
		{"untouched", es.ES2020, send(lvar("x"), "frobnicate"), `(send (lvar :x) :frobnicate)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, run(t, []string{"functions"}, tt.level, tt.input))
		})
	}
}

func TestFunctionsLeavesBlockCallsWithBlocks(t *testing.T) {
	t.Parallel()

	block := ast.S(ast.KindBlock,
		send(lvar("a"), "count"),
		ast.S(ast.KindArgs, ast.S(ast.KindArg, ast.Name("x"))),
		lvar("x"))

	assert.Equal(t, `(block (send (lvar :a) :count) (args (arg :x)) (lvar :x))`, run(t, []string{"functions"}, es.ES2020, block))
}

func TestFunctionsBlockRewrites(t *testing.T) {
	t.Parallel()

	reject := ast.S(ast.KindBlock,
		send(lvar("a"), "reject"),
		ast.S(ast.KindArgs, ast.S(ast.KindArg, ast.Name("x"))),
		lvar("x"))

	assert.Equal(t,
		`(block (send (lvar :a) :filter) (args (arg :x)) (send (lvar :x) :!))`,
		run(t, []string{"functions"}, es.ES2020, reject))

	times := ast.S(ast.KindBlock,
		send(lvar("n"), "times"),
		ast.S(ast.KindArgs, ast.S(ast.KindArg, ast.Name("i"))),
		send(nil, "puts", lvar("i")))

	assert.Equal(t,
		`(for (lvasgn :i) (erange (int 0) (lvar :n)) (send (const nil :console) :log (lvar :i)))`,
		run(t, []string{"functions"}, es.ES2020, times))
}

func TestReturnFilterWrapsBlockBodies(t *testing.T) {
	t.Parallel()

	block := ast.S(ast.KindBlock,
		send(lvar("a"), "map"),
		ast.S(ast.KindArgs, ast.S(ast.KindArg, ast.Name("x"))),
		ast.S(ast.KindBegin, send(nil, "puts", lvar("x")), lvar("x")))

	assert.Equal(t,
		`(block (send (lvar :a) :map) (args (arg :x)) (autoreturn (send nil :puts (lvar :x)) (lvar :x)))`,
		run(t, []string{"return"}, es.ES2020, block))

	empty := ast.S(ast.KindBlock, send(lvar("a"), "each"), ast.S(ast.KindArgs), nil)
	assert.Equal(t, `(block (send (lvar :a) :each) (args) nil)`, run(t, []string{"return"}, es.ES2020, empty))
}

func TestNodeFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input *ast.Node
		want  string
	}{
		{
			"file read",
			send(ast.S(ast.KindConst, nil, ast.Name("File")), "read", str("a.txt")),
			`(send (call (const nil :require) (str "fs")) :readFileSync (str "a.txt") (str "utf8"))`,
		},
		{
			"argv",
			ast.S(ast.KindConst, nil, ast.Name("ARGV")),
			`(send (attr (const nil :process) :argv) :slice (int 2))`,
		},
		{
			"env",
			send(ast.S(ast.KindConst, nil, ast.Name("ENV")), "[]", str("HOME")),
			`(send (attr (const nil :process) :env) :[] (str "HOME"))`,
		},
		{
			"exit",
			send(nil, "exit", ast.S(ast.KindInt, ast.Int(1))),
			`(send (const nil :process) :exit (int 1))`,
		},
		{
			"stderr",
			send(ast.S(ast.KindGvar, ast.Name("$stderr")), "puts", str("oops")),
			`(send (const nil :console) :error (str "oops"))`,
		},
		{
			"puts still handled by functions",
			send(nil, "puts", str("hi")),
			`(send (const nil :console) :log (str "hi"))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, run(t, []string{"node"}, es.ES2020, tt.input))
		})
	}
}
