package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log keys attached by ConversionHandler.
const (
	LogKeyTraceID = "trace_id"
	LogKeySpanID  = "span_id"
	LogKeyFile    = "file"
	LogKeyLevel   = "level"
	LogKeyStage   = "stage"

	logKeyService = "service"
	logKeyMode    = "mode"
	logKeyEnv     = "env"
	logKeyTarget  = "target"
)

type conversionKey struct{}

// conversion labels the records logged while one source file converts.
type conversion struct {
	file  string
	level string
	stage string
}

// WithConversion returns ctx labelled with the file being converted and
// the ES level it is converted to.
func WithConversion(ctx context.Context, file, level string) context.Context {
	scope := conversionFrom(ctx)
	scope.file = file
	scope.level = level
	scope.stage = ""

	return context.WithValue(ctx, conversionKey{}, scope)
}

// WithStage returns ctx labelled with the pipeline stage running in it.
func WithStage(ctx context.Context, stage string) context.Context {
	scope := conversionFrom(ctx)
	scope.stage = stage

	return context.WithValue(ctx, conversionKey{}, scope)
}

func conversionFrom(ctx context.Context) conversion {
	scope, _ := ctx.Value(conversionKey{}).(conversion)

	return scope
}

func (scope conversion) attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)

	if scope.file != "" {
		attrs = append(attrs, slog.String(LogKeyFile, scope.file))
	}

	if scope.level != "" {
		attrs = append(attrs, slog.String(LogKeyLevel, scope.level))
	}

	if scope.stage != "" {
		attrs = append(attrs, slog.String(LogKeyStage, scope.stage))
	}

	return attrs
}

// ConversionHandler is an [slog.Handler] that labels each record with the
// conversion and span carried by its context. The invocation labels from
// Config are attached once so they stay top-level under WithGroup.
type ConversionHandler struct {
	inner  slog.Handler
	groups int
}

// NewConversionHandler wraps inner with the invocation labels of cfg.
func NewConversionHandler(inner slog.Handler, cfg Config) *ConversionHandler {
	labels := []slog.Attr{
		slog.String(logKeyService, cfg.ServiceName),
		slog.String(logKeyMode, string(cfg.Mode)),
	}

	if cfg.Environment != "" {
		labels = append(labels, slog.String(logKeyEnv, cfg.Environment))
	}

	if cfg.TargetLevel != "" {
		labels = append(labels, slog.String(logKeyTarget, cfg.TargetLevel))
	}

	return &ConversionHandler{inner: inner.WithAttrs(labels)}
}

// Enabled reports whether the inner handler takes records at level.
func (ch *ConversionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return ch.inner.Enabled(ctx, level)
}

// Handle adds the conversion and span labels of ctx to record. Inside a
// group the labels land in that group, so only ungrouped loggers get them.
func (ch *ConversionHandler) Handle(ctx context.Context, record slog.Record) error {
	if ch.groups == 0 {
		record.AddAttrs(conversionFrom(ctx).attrs()...)

		sc := trace.SpanContextFromContext(ctx)
		if sc.IsValid() {
			record.AddAttrs(
				slog.String(LogKeyTraceID, sc.TraceID().String()),
				slog.String(LogKeySpanID, sc.SpanID().String()),
			)
		}
	}

	err := ch.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("conversion log handler: %w", err)
	}

	return nil
}

// WithAttrs returns a handler whose inner handler carries attrs.
func (ch *ConversionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConversionHandler{inner: ch.inner.WithAttrs(attrs), groups: ch.groups}
}

// WithGroup returns a handler whose inner handler nests under name.
func (ch *ConversionHandler) WithGroup(name string) slog.Handler {
	return &ConversionHandler{inner: ch.inner.WithGroup(name), groups: ch.groups + 1}
}
