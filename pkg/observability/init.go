package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the instrumentation scope of every rb2js span.
	TracerName = "rb2js"
	// MeterName is the instrumentation scope of every rb2js instrument.
	MeterName = "rb2js"

	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"

	resourceMode        = "rb2js.mode"
	resourceTargetLevel = "rb2js.target_level"
)

// envSamplers maps OTEL_TRACES_SAMPLER values to samplers built from the
// OTEL_TRACES_SAMPLER_ARG ratio.
//
//nolint:gochecknoglobals // sampler table.
var envSamplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(ratio)
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	},
}

// Providers holds the telemetry handles shared by one rb2js invocation.
type Providers struct {
	// Tracer starts the per-file, per-stage and per-request spans.
	Tracer trace.Tracer

	// Meter creates the conversion instruments.
	Meter metric.Meter

	// Logger labels records with the conversion carried by their context.
	Logger *slog.Logger

	// Shutdown flushes pending telemetry. Call it before the process exits.
	Shutdown func(ctx context.Context) error
}

// Init starts tracing, metrics and logging for one invocation. Without an
// OTLP endpoint only the logger does any work.
func Init(ctx context.Context, cfg Config) (Providers, error) {
	logger := slog.New(NewConversionHandler(logHandler(cfg, os.Stderr), cfg))

	if cfg.OTLPEndpoint == "" {
		providers := Discard()
		providers.Logger = logger

		return providers, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return Providers{}, fmt.Errorf("build otel resource: %w", err)
	}

	target := exportTarget{endpoint: cfg.OTLPEndpoint, insecure: cfg.OTLPInsecure, headers: cfg.OTLPHeaders}

	tp, err := target.tracerProvider(ctx, res, selectSampler(cfg), cfg.DebugTrace)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, err := target.meterProvider(ctx, res)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), tp.Shutdown(ctx))
	}

	var tracerProvider trace.TracerProvider = tp
	if !cfg.TraceVerbose {
		tracerProvider = NewFilteringTracerProvider(tp)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	timeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(defaultShutdownTimeoutSec) * time.Second
	}

	return Providers{
		Tracer: tracerProvider.Tracer(TracerName),
		Meter:  mp.Meter(MeterName),
		Logger: logger,
		Shutdown: func(shutdownCtx context.Context) error {
			deadlineCtx, cancel := context.WithTimeout(shutdownCtx, timeout)
			defer cancel()

			return errors.Join(tp.Shutdown(deadlineCtx), mp.Shutdown(deadlineCtx))
		},
	}, nil
}

// Discard returns no-op providers with a logger that drops every record.
// Library callers that do not care about telemetry start from it.
func Discard() Providers {
	return Providers{
		Tracer:   nooptrace.NewTracerProvider().Tracer(TracerName),
		Meter:    noopmetric.NewMeterProvider().Meter(MeterName),
		Logger:   slog.New(slog.DiscardHandler),
		Shutdown: func(context.Context) error { return nil },
	}
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		attribute.String(resourceMode, string(cfg.Mode)),
	}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.TargetLevel != "" {
		attrs = append(attrs, attribute.String(resourceTargetLevel, cfg.TargetLevel))
	}

	return attrs
}

func logHandler(cfg Config, out io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	if cfg.LogJSON {
		return slog.NewJSONHandler(out, opts)
	}

	return slog.NewTextHandler(out, opts)
}

// exportTarget is the OTLP gRPC collector both exporters send to.
type exportTarget struct {
	headers  map[string]string
	endpoint string
	insecure bool
}

func (target exportTarget) tracerProvider(
	ctx context.Context, res *resource.Resource, sampler sdktrace.Sampler, warnDropped bool,
) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target.endpoint)}

	if target.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(target.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(target.headers))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	var filterLogger *slog.Logger
	if warnDropped {
		filterLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewAttributeFilter(sdktrace.NewBatchSpanProcessor(exporter), filterLogger)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	), nil
}

func (target exportTarget) meterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target.endpoint)}

	if target.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(target.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(target.headers))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

// selectSampler picks the trace sampler. Debug tracing samples everything,
// then the standard OTel environment wins over the configured ratio.
func selectSampler(cfg Config) sdktrace.Sampler {
	if cfg.DebugTrace {
		return sdktrace.AlwaysSample()
	}

	if name := os.Getenv(envTracesSampler); name != "" {
		return envSampler(name, os.Getenv(envTracesSamplerArg))
	}

	if cfg.SampleRatio > 0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func envSampler(name, arg string) sdktrace.Sampler {
	build, ok := envSamplers[name]
	if !ok {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		ratio = 1
	}

	return build(ratio)
}

// ParseOTLPHeaders parses an OTLP headers string in "key=value,key=value"
// format. Returns nil for empty or invalid input.
func ParseOTLPHeaders(raw string) map[string]string {
	result := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}

		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
