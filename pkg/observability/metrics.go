package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricConversionsTotal   = "rb2js.conversions.total"
	metricConversionDuration = "rb2js.conversion.duration.seconds"
	metricErrorsTotal        = "rb2js.errors.total"
	metricCacheHits          = "rb2js.cache.hits.total"
	metricCacheMisses        = "rb2js.cache.misses.total"
	metricRequestsTotal      = "rb2js.requests.total"
	metricInflight           = "rb2js.inflight.requests"

	attrLevel  = "rb2js.level"
	attrStatus = "rb2js.status"
	attrStage  = "rb2js.stage"
	attrOp     = "rb2js.op"

	// StatusOK and StatusError are the values of the status attribute.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 100µs to 10s: a single file converts in
// well under a millisecond, large generated sources take seconds.
//
//nolint:gochecknoglobals // histogram layout.
var durationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 10}

// ConversionMetrics holds the OTel instruments recorded by the conversion
// pipeline and the surfaces that drive it.
type ConversionMetrics struct {
	conversions metric.Int64Counter
	duration    metric.Float64Histogram
	errors      metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	requests    metric.Int64Counter
	inflight    metric.Int64UpDownCounter
}

// NewConversionMetrics creates the conversion instruments from mt.
func NewConversionMetrics(mt metric.Meter) (*ConversionMetrics, error) {
	conversions, err := mt.Int64Counter(metricConversionsTotal,
		metric.WithDescription("Total number of conversions"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricConversionsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricConversionDuration,
		metric.WithDescription("Conversion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricConversionDuration, err)
	}

	errs, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Failed conversions by pipeline stage"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	hits, err := mt.Int64Counter(metricCacheHits,
		metric.WithDescription("Output cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHits, err)
	}

	misses, err := mt.Int64Counter(metricCacheMisses,
		metric.WithDescription("Output cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMisses, err)
	}

	requests, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of HTTP and MCP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflight,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflight, err)
	}

	return &ConversionMetrics{
		conversions: conversions,
		duration:    duration,
		errors:      errs,
		cacheHits:   hits,
		cacheMisses: misses,
		requests:    requests,
		inflight:    inflight,
	}, nil
}

// RecordConversion records one finished conversion at level. A non-empty
// failedStage marks the conversion as failed in that stage.
func (cm *ConversionMetrics) RecordConversion(ctx context.Context, level, failedStage string, duration time.Duration) {
	status := StatusOK
	if failedStage != "" {
		status = StatusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrLevel, level),
		attribute.String(attrStatus, status),
	)

	cm.conversions.Add(ctx, 1, attrs)
	cm.duration.Record(ctx, duration.Seconds(), attrs)

	if failedStage != "" {
		cm.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStage, failedStage)))
	}
}

// RecordCache records an output cache lookup.
func (cm *ConversionMetrics) RecordCache(ctx context.Context, hit bool) {
	if hit {
		cm.cacheHits.Add(ctx, 1)

		return
	}

	cm.cacheMisses.Add(ctx, 1)
}

// RecordRequest records a served request with its operation and status.
func (cm *ConversionMetrics) RecordRequest(ctx context.Context, op, status string) {
	cm.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	))
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (cm *ConversionMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	cm.inflight.Add(ctx, 1, attrs)

	return func() {
		cm.inflight.Add(ctx, -1, attrs)
	}
}
