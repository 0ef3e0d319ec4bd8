package observability_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_NoopSpanIsValid(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	ctx, span := providers.Tracer.Start(context.Background(), "rb2js.convert")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
}

func TestInit_WithResourceAttributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "test"
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true
	cfg.TargetLevel = "es2020"

	providers, err := observability.Init(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.IsType(t, &observability.ConversionHandler{}, providers.Logger.Handler())

	attrs := make(map[attribute.Key]string)
	for _, kv := range observability.ResourceAttributes(cfg) {
		attrs[kv.Key] = kv.Value.Emit()
	}

	assert.Equal(t, "rb2js", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "mcp", attrs["rb2js.mode"])
	assert.Equal(t, "es2020", attrs["rb2js.target_level"])
}

func TestEnvSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sampler string
		arg     string
		want    string
	}{
		{name: "always on", sampler: "always_on", want: "AlwaysOnSampler"},
		{name: "always off", sampler: "always_off", want: "AlwaysOffSampler"},
		{name: "ratio", sampler: "traceidratio", arg: "0.25", want: "TraceIDRatioBased{0.25}"},
		{name: "bad ratio samples everything", sampler: "traceidratio", arg: "many", want: "AlwaysOnSampler"},
		{name: "parent based ratio", sampler: "parentbased_traceidratio", arg: "0.5", want: "ParentBased{root:TraceIDRatioBased{0.5}"},
		{name: "parent based off", sampler: "parentbased_always_off", want: "ParentBased{root:AlwaysOffSampler"},
		{name: "unknown falls back", sampler: "jaeger_remote", want: "ParentBased{root:AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, strings.HasPrefix(observability.EnvSampler(tt.sampler, tt.arg).Description(), tt.want),
				observability.EnvSampler(tt.sampler, tt.arg).Description())
		})
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	providers := observability.Discard()

	providers.Logger.Info("dropped")

	_, span := providers.Tracer.Start(context.Background(), "op")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "api-key=secret", want: map[string]string{"api-key": "secret"}},
		{name: "multiple with spaces", raw: " a = 1 , b=2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "no pairs", raw: "garbage,,", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}
