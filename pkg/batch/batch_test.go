package batch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/batch"
	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/rubyparse"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"app.rb":            "puts 1\n",
		"models/util.rb":    "x = 1\n",
		"tool":              "#!/usr/bin/env ruby\nputs 2\n",
		"README.md":         "# readme\n",
		"vendor/gem/g.rb":   "puts 3\n",
		".bundle/config.rb": "puts 4\n",
		"models/big.rb":     strings.Repeat("# pad\n", 100),
		"assets/app.js":     "console.log(1);\n",
	})

	files, skipped, err := batch.Discover(root, 100)
	require.NoError(t, err)

	rels := make([]string, 0, len(files))
	for _, file := range files {
		rels = append(rels, filepath.ToSlash(file.Rel))
	}

	assert.Equal(t, []string{"app.rb", "models/util.rb", "tool"}, rels)
	require.Len(t, skipped, 1)
	assert.Equal(t, "big.rb", filepath.Base(skipped[0].Rel))
}

func TestDiscover_SingleFile(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"one.txt": "puts 1\n"})

	files, skipped, err := batch.Discover(filepath.Join(root, "one.txt"), 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "one.txt", files[0].Rel)
	assert.Empty(t, skipped)

	_, _, err = batch.Discover(filepath.Join(root, "missing"), 0)
	require.Error(t, err)
}

func newTranspiler(t *testing.T) *transpile.Transpiler {
	t.Helper()

	opts := options.Default()
	opts.Filters = []string{"functions"}

	tr, err := transpile.New(opts, transpile.Deps{Parser: rubyparse.New()})
	require.NoError(t, err)

	return tr
}

func TestRunner_MirrorsTree(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"main.rb":        "puts \"hi\"\n",
		"models/math.rb": "a = 1\na += 1\n",
	})
	out := t.TempDir()

	outputs := cache.New(16)
	runner := batch.NewRunner(newTranspiler(t), outputs, nil, batch.Config{OutDir: out, Workers: 2})

	summary, err := runner.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Converted)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Cached)

	written, err := os.ReadFile(filepath.Join(out, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log(\"hi\");\n", string(written))

	written, err = os.ReadFile(filepath.Join(out, "models", "math.js"))
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\na += 1;\n", string(written))

	again, err := runner.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Cached)
	assert.Contains(t, again.String(), "2 files converted (2 cached)")
}

type stubConverter struct {
	calls atomic.Int64
}

var errBadFile = errors.New("bad file")

func (stub *stubConverter) ConvertSource(_ context.Context, name string, src []byte) (string, error) {
	stub.calls.Add(1)

	if strings.HasPrefix(name, "bad") {
		return "", errBadFile
	}

	return strings.ToUpper(string(src)), nil
}

func (stub *stubConverter) Options() options.Options {
	return options.Default()
}

func TestRunner_FailFastStopsAtFileBoundary(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.rb":   "a\n",
		"bad.rb": "b\n",
		"c.rb":   "c\n",
		"d.rb":   "d\n",
	})

	stub := &stubConverter{}
	runner := batch.NewRunner(stub, nil, nil, batch.Config{Workers: 1, FailFast: true})

	summary, err := runner.Run(context.Background(), root)
	require.ErrorIs(t, err, batch.ErrFailed)
	require.ErrorIs(t, err, errBadFile)

	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.NotStarted)
	assert.Equal(t, int64(2), stub.calls.Load())
	assert.Equal(t, "A\n", summary.Results[0].Output)
}

func TestRunner_ContinuesWithoutFailFast(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.rb":   "a\n",
		"bad.rb": "b\n",
		"c.rb":   "c\n",
	})

	runner := batch.NewRunner(&stubConverter{}, nil, nil, batch.Config{Workers: 2})

	summary, err := runner.Run(context.Background(), root)
	require.ErrorIs(t, err, batch.ErrFailed)

	assert.Equal(t, 2, summary.Converted)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.NotStarted)
	assert.Contains(t, summary.String(), "2 files converted, 1 failed")
}

func TestRunner_Cancelled(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.rb": "a\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := batch.NewRunner(&stubConverter{}, nil, nil, batch.Config{}).Run(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.NotStarted)
}

func TestRunner_OutputPath(t *testing.T) {
	t.Parallel()

	runner := batch.NewRunner(&stubConverter{}, nil, nil, batch.Config{OutDir: "out", Extension: ".mjs"})

	assert.Equal(t, filepath.Join("out", "lib", "a.mjs"), runner.OutputPath(batch.File{Rel: filepath.Join("lib", "a.rb")}))
	assert.Equal(t, filepath.Join("out", "tool.mjs"), runner.OutputPath(batch.File{Rel: "tool"}))
}
