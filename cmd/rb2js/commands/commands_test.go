package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/cmd/rb2js/commands"
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/rubyparse"
)

type output struct {
	stdout string
	stderr string
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (output, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	if cmd.Flags().Lookup("no-color") != nil {
		args = append(args, "--no-color")
	}

	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())

	return output{stdout: stdout.String(), stderr: stderr.String()}, err
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConvert_Stdin(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewConvertCommand(), "puts \"hi\"\n", "--filter", "functions")
	require.NoError(t, err)
	assert.Equal(t, "console.log(\"hi\");\n", out.stdout)
}

func TestConvert_File(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "math.rb", "a = 1\na += 1\n")

	out, err := execute(t, commands.NewConvertCommand(), "", "--level", "es2015", path)
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\na += 1;\n", out.stdout)
}

func TestConvert_ReportsFailure(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewConvertCommand(), "def (\n")
	require.ErrorIs(t, err, commands.ErrConversionFailed)
	assert.Empty(t, out.stdout)
	assert.Contains(t, out.stderr, "error: ")
	assert.Contains(t, out.stderr, "parse")
}

func TestConvert_InvalidFlag(t *testing.T) {
	t.Parallel()

	_, err := execute(t, commands.NewConvertCommand(), "puts 1\n", "--level", "es4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConvert_DirectoryNeedsOut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.rb", "puts 1\n")

	_, err := execute(t, commands.NewConvertCommand(), "", dir)
	require.ErrorIs(t, err, commands.ErrOutDirRequired)
}

func TestConvert_DirectoryTree(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, src, "main.rb", "puts \"hi\"\n")
	writeFile(t, src, "models/math.rb", "a = 1\na += 1\n")

	out := t.TempDir()

	result, err := execute(t, commands.NewConvertCommand(), "", src, "--out", out, "--filter", "functions", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, result.stderr, "2 files converted")

	written, err := os.ReadFile(filepath.Join(out, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log(\"hi\");\n", string(written))

	written, err = os.ReadFile(filepath.Join(out, "models", "math.js"))
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\na += 1;\n", string(written))
}

func TestConvert_DirectoryTreeFailure(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, src, "bad.rb", "def (\n")

	result, err := execute(t, commands.NewConvertCommand(), "", src, "--out", t.TempDir())
	require.ErrorIs(t, err, commands.ErrConversionFailed)
	assert.Contains(t, result.stderr, "1 failed")
}

func TestAST_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"sexp", "sexp", "(begin (send nil :puts (int 1)))\n"},
		{"json", "json", `"send"`},
		{"yaml", "yaml", "- send"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, commands.NewASTCommand(), "puts 1\n", "-f", tt.format)
			require.NoError(t, err)
			assert.Contains(t, out.stdout, tt.want)
		})
	}
}

func TestAST_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := execute(t, commands.NewASTCommand(), "puts 1\n", "-f", "xml")
	require.ErrorIs(t, err, commands.ErrUnknownFormat)
}

func TestAST_Rewrite(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewASTCommand(), "puts 1\n", "--rewrite", "--filter", "functions")
	require.NoError(t, err)
	assert.NotContains(t, out.stdout, ":puts")
	assert.Contains(t, out.stdout, ":log")
}

func treeJSON(t *testing.T, src string) string {
	t.Helper()

	tree, err := rubyparse.New().Parse(context.Background(), "in.rb", []byte(src))
	require.NoError(t, err)

	data, err := ast.EncodeJSON(tree, true)
	require.NoError(t, err)

	return string(data)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "tree.json", treeJSON(t, "a = 1\na += 1\n"))

	out, err := execute(t, commands.NewValidateCommand(), "", path)
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "valid")

	out, err = execute(t, commands.NewValidateCommand(), treeJSON(t, "a = 1\na += 1\n"), "--convert", "--level", "es2015", "-")
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\na += 1;\n", out.stdout)
}

func TestValidate_SchemaViolation(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewValidateCommand(), `{"kind": "send"}`, "-")
	require.ErrorIs(t, err, commands.ErrInvalidTree)
	assert.Contains(t, out.stderr, ast.ErrSchema.Error())
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := writeFile(t, dir, "math.rb", "a = 1\na += 1\n")
	same := writeFile(t, dir, "same.js", "let a = 1;\na += 1;\n")
	other := writeFile(t, dir, "other.js", "var a = 1;\na += 1;\n")

	out, err := execute(t, commands.NewCheckCommand(), "", "--level", "es2015", source, same)
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "ok")

	out, err = execute(t, commands.NewCheckCommand(), "", "--level", "es2015", source, other)
	require.ErrorIs(t, err, commands.ErrMismatch)
	assert.Contains(t, out.stdout, "-var a = 1;")
	assert.Contains(t, out.stdout, "+let a = 1;")
	assert.Contains(t, out.stdout, " a += 1;")
}

func TestFiltersAndLevels(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewFiltersCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "functions")
	assert.Contains(t, out.stdout, "Total: 3 filters")

	out, err = execute(t, commands.NewLevelsCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "es5")
	assert.Contains(t, out.stdout, "es2025")
	assert.Contains(t, out.stdout, "arrow functions")
}

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	flag := cmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewServeCommand()

	for _, name := range []string{"host", "port", "config", "level", "filter"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
