package nodejs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/functions"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/nodejs"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

func send(recv ast.Value, name string, args ...ast.Value) *ast.Node {
	return ast.S(ast.KindSend, append([]ast.Value{recv, ast.Name(name)}, args...)...)
}

func constant(name string) *ast.Node {
	return ast.S(ast.KindConst, nil, ast.Name(name))
}

func str(text string) *ast.Node {
	return ast.S(ast.KindStr, ast.Str(text))
}

func apply(t *testing.T, opts options.Options, root *ast.Node) string {
	t.Helper()

	catalog, err := filter.NewCatalog(functions.Filter(), nodejs.Filter())
	require.NoError(t, err)

	table, err := filter.NewTable(catalog, []string{nodejs.Name})
	require.NoError(t, err)

	out, err := table.Apply(root, filter.NewContext(opts))
	require.NoError(t, err)

	return ast.Format(out)
}

func TestFilterRequiresFunctions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{functions.Name}, nodejs.Filter().Requires)

	catalog, err := filter.NewCatalog(nodejs.Filter())
	require.NoError(t, err)

	_, err = filter.NewTable(catalog, []string{nodejs.Name})
	assert.ErrorIs(t, err, filter.ErrUnknownFilter)
}

func TestNodeRewrites(t *testing.T) {
	t.Parallel()

	fs := `(call (const nil :require) (str "fs"))`

	tests := []struct {
		input *ast.Node
		name  string
		want  string
	}{
		{
			name:  "write",
			input: send(constant("File"), "write", str("a.txt"), str("x")),
			want:  `(send ` + fs + ` :writeFileSync (str "a.txt") (str "x"))`,
		},
		{
			name:  "exist",
			input: send(constant("File"), "exist?", str("a.txt")),
			want:  `(send ` + fs + ` :existsSync (str "a.txt"))`,
		},
		{
			name:  "readlines",
			input: send(constant("File"), "readlines", str("a.txt")),
			want:  `(send (send ` + fs + ` :readFileSync (str "a.txt") (str "utf8")) :split (str "\n"))`,
		},
		{
			name:  "unknown file method",
			input: send(constant("File"), "basename", str("a.txt")),
			want:  `(send (const nil :File) :basename (str "a.txt"))`,
		},
		{
			name:  "dir",
			input: send(nil, "__dir__"),
			want:  `(const nil :__dirname)`,
		},
		{
			name:  "system",
			input: send(nil, "system", str("ls")),
			want: `(send (call (const nil :require) (str "child_process")) :execSync (str "ls") ` +
				`(hash (pair (sym :stdio) (str "inherit"))))`,
		},
		{
			name:  "stdout",
			input: send(ast.S(ast.KindGvar, ast.Name("$stdout")), "puts", str("x")),
			want:  `(send (const nil :console) :log (str "x"))`,
		},
		{
			name:  "other stream",
			input: send(ast.S(ast.KindGvar, ast.Name("$log")), "puts", str("x")),
			want:  `(send (gvar :$log) :puts (str "x"))`,
		},
		{
			name:  "backticks",
			input: ast.S(ast.KindXstr, str("ls")),
			want: `(send (call (const nil :require) (str "child_process")) :execSync (dstr (str "ls")) ` +
				`(hash (pair (sym :encoding) (str "utf8"))))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, apply(t, options.Default(), tt.input))
		})
	}
}

func TestExcludedStreamPutsIsLeftAlone(t *testing.T) {
	t.Parallel()

	opts := options.Default()
	opts.Exclusions.PerFilter = map[string][]string{nodejs.Name: {"puts"}}

	input := send(ast.S(ast.KindGvar, ast.Name("$stderr")), "puts", str("x"))

	assert.Equal(t, `(send (gvar :$stderr) :puts (str "x"))`, apply(t, opts, input))
}
