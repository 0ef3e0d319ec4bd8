package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

func spanAttrMap(span tracetest.SpanStub) map[string]any {
	result := make(map[string]any, len(span.Attributes))
	for _, kv := range span.Attributes {
		result[string(kv.Key)] = kv.Value.AsInterface()
	}

	return result
}

func TestAttributeFilter(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	exporter := tracetest.NewInMemoryExporter()
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(
		attribute.String("rb2js.level", "ES2020"),
		attribute.Int("file.bytes", 120),
		attribute.String("error.type", "convert"),
		attribute.String("rb2js.source", "puts 1"),
		attribute.String("hostname", "box"),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := spanAttrMap(spans[0])
	assert.Equal(t, "ES2020", attrs["rb2js.level"])
	assert.Equal(t, int64(120), attrs["file.bytes"])
	assert.Equal(t, "convert", attrs["error.type"])
	assert.NotContains(t, attrs, "rb2js.source")
	assert.NotContains(t, attrs, "hostname")
	assert.Contains(t, logs.String(), "hostname")
}

func TestFilteringTracerProvider(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	tracer := observability.NewFilteringTracerProvider(tp).Tracer(observability.TracerName)

	ctx, file := tracer.Start(context.Background(), "rb2js.convert")
	_, stage := tracer.Start(ctx, observability.StageSpanPrefix+"filter")
	stage.End()
	file.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "rb2js.convert", spans[0].Name)
}
