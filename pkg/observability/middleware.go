package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// responseRecorder remembers the status and size of a response.
type responseRecorder struct {
	http.ResponseWriter

	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}

	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(buf []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}

	n, err := rr.ResponseWriter.Write(buf)
	rr.bytes += n

	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// RequestTracing wraps an API mux so every conversion request runs in a
// server span that continues the caller's W3C trace context. Once the mux
// has routed the request the span is renamed to the matched pattern, so
// spans for "POST /v1/convert" group together whatever the path. Server
// errors mark the span as failed.
func RequestTracing(tracer trace.Tracer, mux http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parent, hr.Method+" "+hr.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				semconv.URLPath(hr.URL.Path),
			),
		)
		defer span.End()

		if hr.ContentLength > 0 {
			span.SetAttributes(semconv.HTTPRequestBodySize(int(hr.ContentLength)))
		}

		routed := hr.WithContext(ctx)
		recorder := &responseRecorder{ResponseWriter: rw}
		mux.ServeHTTP(recorder, routed)

		if routed.Pattern != "" {
			span.SetName(routed.Pattern)
			span.SetAttributes(semconv.HTTPRoute(routed.Pattern))
		}

		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		span.SetAttributes(
			semconv.HTTPResponseStatusCode(recorder.status),
			semconv.HTTPResponseBodySize(recorder.bytes),
		)

		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
	})
}
