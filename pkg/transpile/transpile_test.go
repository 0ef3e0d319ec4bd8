package transpile_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/convert"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

var errBoom = errors.New("boom")

func str(value string) *ast.Node {
	return ast.S(ast.KindStr, ast.Str(value))
}

func puts(arg ast.Value) *ast.Node {
	return ast.S(ast.KindSend, nil, ast.Name("puts"), arg)
}

func program(statements ...ast.Value) *ast.Node {
	return ast.S(ast.KindBegin, statements...)
}

type stubParser struct {
	tree *ast.Node
	err  error
}

func (parser stubParser) Parse(context.Context, string, []byte) (*ast.Node, error) {
	return parser.tree, parser.err
}

type locatedErr struct{ span ast.Span }

func (located locatedErr) Error() string       { return "unexpected token" }
func (located locatedErr) ErrorSpan() ast.Span { return located.span }

type recordedConversion struct {
	level string
	stage string
}

type stubRecorder struct {
	calls []recordedConversion
	mu    sync.Mutex
}

func (recorder *stubRecorder) RecordConversion(_ context.Context, level, failedStage string, _ time.Duration) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	recorder.calls = append(recorder.calls, recordedConversion{level: level, stage: failedStage})
}

func newTranspiler(t *testing.T, mutate func(opts *options.Options), deps transpile.Deps) *transpile.Transpiler {
	t.Helper()

	opts := options.Default()
	if mutate != nil {
		mutate(&opts)
	}

	tr, err := transpile.New(opts, deps)
	require.NoError(t, err)

	return tr
}

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		root    *ast.Node
		name    string
		want    string
		filters []string
	}{
		{
			name: "without filters",
			root: program(puts(str("hi"))),
			want: "puts(\"hi\");\n",
		},
		{
			name:    "functions filter",
			root:    program(puts(str("hi"))),
			filters: []string{"functions"},
			want:    "console.log(\"hi\");\n",
		},
		{
			name: "reassigned local",
			root: program(
				ast.S(ast.KindLvasgn, ast.Name("a"), ast.S(ast.KindInt, ast.Int(1))),
				ast.S(ast.KindOpAsgn, ast.S(ast.KindLvasgn, ast.Name("a")), ast.Name("+"), ast.S(ast.KindInt, ast.Int(1)))),
			want: "let a = 1;\na += 1;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := newTranspiler(t, func(opts *options.Options) { opts.Filters = tt.filters }, transpile.Deps{})

			out, err := tr.Convert(context.Background(), tt.root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	t.Parallel()

	tr := newTranspiler(t, func(opts *options.Options) { opts.Filters = []string{"functions"} }, transpile.Deps{})
	root := program(puts(str("a")), puts(str("b")))

	first, err := tr.Convert(context.Background(), root)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			again, convertErr := tr.Convert(context.Background(), root)
			assert.NoError(t, convertErr)
			assert.Equal(t, first, again)
		}()
	}

	wg.Wait()
}

func TestLayoutFollowsOptions(t *testing.T) {
	t.Parallel()

	tr := newTranspiler(t, func(opts *options.Options) {
		opts.UseTabs = true
		opts.Level = es.ES2015
	}, transpile.Deps{})

	root := program(ast.S(ast.KindIf, ast.S(ast.KindLvar, ast.Name("a")), puts(str("x")), nil))

	out, err := tr.Convert(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "if (a) {\n\tputs(\"x\");\n}\n", out)
}

func TestStageErrors(t *testing.T) {
	t.Parallel()

	span := ast.Span{StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 10, StartOffset: 20, EndOffset: 25}
	failing := filter.Filter{
		Name: "failing",
		Handlers: []filter.Registration{{Kind: ast.KindStr, Handler: func(*ast.Node, *filter.Context) (filter.Result, error) {
			return filter.Result{}, errBoom
		}}},
	}

	catalog, err := filter.NewCatalog(failing)
	require.NoError(t, err)

	tests := []struct {
		root   *ast.Node
		target error
		name   string
		stage  transpile.Stage
		kind   ast.Kind
	}{
		{
			name:   "malformed tree",
			root:   program(ast.New(ast.KindInt, span)),
			stage:  transpile.StageValidate,
			target: ast.ErrMalformedTree,
			kind:   ast.KindInt,
		},
		{
			name:   "filter failure",
			root:   program(puts(ast.New(ast.KindStr, span, ast.Str("x")))),
			stage:  transpile.StageFilter,
			target: errBoom,
			kind:   ast.KindStr,
		},
		{
			name:   "unsupported construct",
			root:   program(ast.New(ast.KindRetry, span)),
			stage:  transpile.StageConvert,
			target: convert.ErrNotImplemented,
			kind:   ast.KindRetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := newTranspiler(t, func(opts *options.Options) {
				if tt.stage == transpile.StageFilter {
					opts.Filters = []string{"failing"}
				}
			}, transpile.Deps{Catalog: catalog})

			out, convertErr := tr.Convert(context.Background(), tt.root)
			require.Error(t, convertErr)
			assert.Empty(t, out)
			require.ErrorIs(t, convertErr, tt.target)

			var stageErr *transpile.Error
			require.ErrorAs(t, convertErr, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.Equal(t, span, stageErr.Span)
			assert.Equal(t, tt.kind, stageErr.Kind)
		})
	}
}

func TestConvertSource(t *testing.T) {
	t.Parallel()

	span := ast.Span{StartLine: 1, StartCol: 4, EndLine: 1, EndCol: 5, StartOffset: 3, EndOffset: 4}

	tr := newTranspiler(t, nil, transpile.Deps{Parser: stubParser{tree: program(puts(str("ok")))}})

	out, err := tr.ConvertSource(context.Background(), "ok.rb", []byte("puts 'ok'"))
	require.NoError(t, err)
	assert.Equal(t, "puts(\"ok\");\n", out)

	failing := newTranspiler(t, nil, transpile.Deps{Parser: stubParser{err: locatedErr{span: span}}})

	_, err = failing.ConvertSource(context.Background(), "bad.rb", []byte("puts )"))

	var stageErr *transpile.Error
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, transpile.StageParse, stageErr.Stage)
	assert.Equal(t, "bad.rb", stageErr.File)
	assert.Equal(t, span, stageErr.Span)
	assert.Equal(t, "bad.rb: parse: unexpected token", err.Error())
}

func TestConvertSourceWithoutParser(t *testing.T) {
	t.Parallel()

	tr := newTranspiler(t, nil, transpile.Deps{})

	_, err := tr.ConvertSource(context.Background(), "a.rb", nil)
	require.ErrorIs(t, err, transpile.ErrNoParser)
}

func TestCancelledContextStopsPipeline(t *testing.T) {
	t.Parallel()

	tr := newTranspiler(t, nil, transpile.Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Convert(ctx, program(puts(str("x"))))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	opts := options.Default()
	opts.IndentWidth = -1

	_, err := transpile.New(opts, transpile.Deps{})
	require.ErrorIs(t, err, options.ErrInvalidIndent)

	opts = options.Default()
	opts.Filters = []string{"missing"}

	_, err = transpile.New(opts, transpile.Deps{})
	require.ErrorIs(t, err, filter.ErrUnknownFilter)
}

func TestMetricsAndSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	recorder := &stubRecorder{}
	tr := newTranspiler(t, nil, transpile.Deps{Tracer: tp.Tracer("test"), Metrics: recorder})

	_, err := tr.Convert(context.Background(), program(puts(str("x"))))
	require.NoError(t, err)

	_, err = tr.Convert(context.Background(), program(ast.S(ast.KindRetry)))
	require.Error(t, err)

	assert.Equal(t, []recordedConversion{
		{level: es.Default.String(), stage: ""},
		{level: es.Default.String(), stage: string(transpile.StageConvert)},
	}, recorder.calls)

	names := make(map[string]int)
	for _, span := range exporter.GetSpans() {
		names[span.Name]++
	}

	assert.Equal(t, 2, names["rb2js.convert"])
	assert.Equal(t, 2, names["rb2js.stage.convert"])
	assert.Equal(t, 1, names["rb2js.stage.serialize"])
}

func TestLogsCarryConversionLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewConversionHandler(inner, observability.DefaultConfig()))

	tr := newTranspiler(t, nil, transpile.Deps{
		Parser: stubParser{tree: program(puts(str("ok")))},
		Logger: logger,
	})

	_, err := tr.ConvertSource(context.Background(), "ok.rb", []byte("puts 'ok'"))
	require.NoError(t, err)

	var record map[string]any

	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "conversion finished", record["msg"])
	assert.Equal(t, "ok.rb", record[observability.LogKeyFile])
	assert.Equal(t, es.Default.String(), record[observability.LogKeyLevel])
	assert.NotContains(t, record, observability.LogKeyStage)
}

func TestStages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, transpile.StageParse, transpile.Stages()[0])
	assert.Len(t, transpile.Stages(), 5)
}
