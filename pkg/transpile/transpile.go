// Package transpile wires the conversion stages into one call: validate,
// filter, convert and serialize, optionally preceded by a parser.
package transpile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/convert"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/builtin"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/serialize"
)

// ErrNoParser is returned by ConvertSource when no front end is configured.
var ErrNoParser = errors.New("no parser configured")

// Parser turns source text into a syntax tree.
type Parser interface {
	Parse(ctx context.Context, name string, src []byte) (*ast.Node, error)
}

// Recorder receives one call per finished conversion. failedStage is empty
// on success.
type Recorder interface {
	RecordConversion(ctx context.Context, level, failedStage string, duration time.Duration)
}

// Deps are the collaborators of a Transpiler. Every field is optional.
type Deps struct {
	Parser  Parser
	Tracer  trace.Tracer
	Metrics Recorder
	Catalog *filter.Catalog
	Rules   *convert.RuleSet
	Logger  *slog.Logger
}

// Transpiler holds the filter table and rule set built for one set of
// options. It keeps no per-conversion state and is safe for concurrent use.
type Transpiler struct {
	parser    Parser
	tracer    trace.Tracer
	metrics   Recorder
	table     *filter.Table
	converter *convert.Converter
	logger    *slog.Logger
	opts      options.Options
	layout    serialize.Options
}

// New validates opts and builds the filter table and the converter.
func New(opts options.Options, deps Deps) (*Transpiler, error) {
	err := opts.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	catalog := deps.Catalog
	if catalog == nil {
		catalog = builtin.Catalog()
	}

	table, err := filter.NewTable(catalog, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("build filter table: %w", err)
	}

	discard := observability.Discard()

	transpiler := &Transpiler{
		parser:    deps.Parser,
		tracer:    deps.Tracer,
		metrics:   deps.Metrics,
		table:     table,
		converter: convert.New(deps.Rules, opts),
		logger:    deps.Logger,
		opts:      opts,
		layout:    Layout(opts),
	}

	if transpiler.tracer == nil {
		transpiler.tracer = discard.Tracer
	}

	if transpiler.logger == nil {
		transpiler.logger = discard.Logger
	}

	return transpiler, nil
}

// Layout maps conversion options to serializer options.
func Layout(opts options.Options) serialize.Options {
	return serialize.Options{
		IndentWidth:   opts.IndentWidth,
		MaxBlankLines: opts.MaxBlankLines,
		UseTabs:       opts.UseTabs,
		Semicolons:    opts.Semicolons,
		FinalNewline:  true,
	}
}

// Options returns the options the transpiler was built with.
func (tr *Transpiler) Options() options.Options {
	return tr.opts
}

// Filters returns the active filters in application order.
func (tr *Transpiler) Filters() []string {
	return tr.table.Filters()
}

// Convert translates tree to JavaScript. Conversion is all-or-nothing: on
// error no partial output is returned.
func (tr *Transpiler) Convert(ctx context.Context, tree *ast.Node) (string, error) {
	return tr.observe(ctx, "", func(ctx context.Context) (string, error) {
		return tr.convertTree(ctx, tree)
	})
}

// ConvertSource parses src with the configured parser and converts it.
// name is used in error messages and spans only.
func (tr *Transpiler) ConvertSource(ctx context.Context, name string, src []byte) (string, error) {
	return tr.observe(ctx, name, func(ctx context.Context) (string, error) {
		tree, err := tr.Parse(ctx, name, src)
		if err != nil {
			return "", err
		}

		return tr.convertTree(ctx, tree)
	})
}

// Parse runs only the front end.
func (tr *Transpiler) Parse(ctx context.Context, name string, src []byte) (*ast.Node, error) {
	if tr.parser == nil {
		return nil, &Error{Stage: StageParse, File: name, Err: ErrNoParser}
	}

	var tree *ast.Node

	err := tr.stage(ctx, StageParse, func(ctx context.Context) error {
		var parseErr error

		tree, parseErr = tr.parser.Parse(ctx, name, src)

		return parseErr
	})
	if err != nil {
		return nil, withFile(err, name)
	}

	return tree, nil
}

// Rewrite validates tree and applies the active filters without rendering.
func (tr *Transpiler) Rewrite(ctx context.Context, tree *ast.Node) (*ast.Node, error) {
	err := tr.stage(ctx, StageValidate, func(context.Context) error {
		return ast.Validate(tree)
	})
	if err != nil {
		return nil, err
	}

	var rewritten *ast.Node

	err = tr.stage(ctx, StageFilter, func(context.Context) error {
		var filterErr error

		rewritten, filterErr = tr.table.Apply(tree, filter.NewContext(tr.opts))

		return filterErr
	})
	if err != nil {
		return nil, err
	}

	return rewritten, nil
}

func (tr *Transpiler) convertTree(ctx context.Context, tree *ast.Node) (string, error) {
	rewritten, err := tr.Rewrite(ctx, tree)
	if err != nil {
		return "", err
	}

	var frag fragment.Group

	err = tr.stage(ctx, StageConvert, func(context.Context) error {
		var convertErr error

		frag, convertErr = tr.converter.Convert(rewritten)

		return convertErr
	})
	if err != nil {
		return "", err
	}

	var text string

	err = tr.stage(ctx, StageSerialize, func(context.Context) error {
		var renderErr error

		text, renderErr = serialize.Render(frag, tr.layout)

		return renderErr
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// stage runs one pipeline step in its own span. A cancelled context stops
// the pipeline before the step starts.
func (tr *Transpiler) stage(ctx context.Context, stage Stage, run func(ctx context.Context) error) error {
	err := ctx.Err()
	if err != nil {
		return &Error{Stage: stage, Err: err}
	}

	ctx, span := tr.tracer.Start(observability.WithStage(ctx, string(stage)), observability.StageSpanPrefix+string(stage))
	defer span.End()

	err = run(ctx)
	if err != nil {
		wrapped := wrap(stage, err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, string(stage))

		return wrapped
	}

	return nil
}

func (tr *Transpiler) observe(
	ctx context.Context, name string, run func(ctx context.Context) (string, error),
) (string, error) {
	start := time.Now()
	level := tr.opts.Level.String()

	ctx, span := tr.tracer.Start(observability.WithConversion(ctx, name, level), "rb2js.convert", trace.WithAttributes(
		attribute.String("rb2js.level", level),
		attribute.String("file.name", name),
	))
	defer span.End()

	text, err := run(ctx)
	elapsed := time.Since(start)

	failedStage := ""

	if err != nil {
		err = withFile(err, name)

		var stageErr *Error
		if errors.As(err, &stageErr) {
			failedStage = string(stageErr.Stage)
		}

		span.SetAttributes(attribute.String("error.type", failedStage))
		span.SetStatus(codes.Error, err.Error())
		tr.logger.DebugContext(ctx, "conversion failed", "failed_stage", failedStage, "error", err)
	} else {
		span.SetAttributes(attribute.Int("rb2js.output_bytes", len(text)))
		tr.logger.DebugContext(ctx, "conversion finished", "bytes", len(text), "duration", elapsed)
	}

	if tr.metrics != nil {
		tr.metrics.RecordConversion(ctx, level, failedStage, elapsed)
	}

	if err != nil {
		return "", err
	}

	return text, nil
}
