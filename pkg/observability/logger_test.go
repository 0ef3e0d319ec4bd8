package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

func newJSONLogger(buf *bytes.Buffer, cfg observability.Config) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewConversionHandler(inner, cfg))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestConversionHandler_Labels(t *testing.T) {
	t.Parallel()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	spanCtx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	tests := []struct {
		ctx    context.Context
		want   map[string]string
		absent []string
		name   string
	}{
		{
			name:   "no conversion",
			ctx:    context.Background(),
			absent: []string{observability.LogKeyFile, observability.LogKeyStage, observability.LogKeyTraceID},
		},
		{
			name: "conversion without stage",
			ctx:  observability.WithConversion(context.Background(), "app.rb", "es2020"),
			want: map[string]string{
				observability.LogKeyFile:  "app.rb",
				observability.LogKeyLevel: "es2020",
			},
			absent: []string{observability.LogKeyStage},
		},
		{
			name: "stage inside conversion",
			ctx: observability.WithStage(
				observability.WithConversion(context.Background(), "app.rb", "es5"), "convert"),
			want: map[string]string{
				observability.LogKeyFile:  "app.rb",
				observability.LogKeyLevel: "es5",
				observability.LogKeyStage: "convert",
			},
		},
		{
			name: "new conversion clears the stage",
			ctx: observability.WithConversion(
				observability.WithStage(context.Background(), "parse"), "b.rb", "es2015"),
			want:   map[string]string{observability.LogKeyFile: "b.rb"},
			absent: []string{observability.LogKeyStage},
		},
		{
			name: "span context",
			ctx:  observability.WithConversion(spanCtx, "app.rb", "es2020"),
			want: map[string]string{
				observability.LogKeyTraceID: "0102030405060708090a0b0c0d0e0f10",
				observability.LogKeySpanID:  "0102030405060708",
				observability.LogKeyFile:    "app.rb",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			newJSONLogger(&buf, observability.DefaultConfig()).InfoContext(tt.ctx, "converted")

			record := decodeRecord(t, &buf)

			for key, value := range tt.want {
				assert.Equal(t, value, record[key], key)
			}

			for _, key := range tt.absent {
				assert.NotContains(t, record, key)
			}
		})
	}
}

func TestConversionHandler_InvocationLabels(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Environment = "test"
	cfg.Mode = observability.ModeServe
	cfg.TargetLevel = "es2015"

	var buf bytes.Buffer

	newJSONLogger(&buf, cfg).Info("listening")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "rb2js", record["service"])
	assert.Equal(t, "serve", record["mode"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "es2015", record["target"])
}

func TestConversionHandler_GroupedRecordsSkipConversionLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := observability.WithConversion(context.Background(), "a.rb", "es2020")
	newJSONLogger(&buf, observability.DefaultConfig()).WithGroup("cache").InfoContext(ctx, "stored", "key", "abc")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "rb2js", record["service"])
	assert.NotContains(t, record, observability.LogKeyFile)

	group, ok := record["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", group["key"])
	assert.NotContains(t, group, observability.LogKeyFile)
}
