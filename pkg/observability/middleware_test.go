package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

func newTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	return tp.Tracer("test"), exporter
}

func spanAttributes(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}

	return attrs
}

func newAPIMux(sawSpan *bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/convert", func(rw http.ResponseWriter, hr *http.Request) {
		*sawSpan = trace.SpanContextFromContext(hr.Context()).IsValid()

		_, _ = rw.Write([]byte(`{"output":"x;"}`))
	})
	mux.HandleFunc("GET /v1/filters", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	return mux
}

func TestRequestTracing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body       string
		name       string
		method     string
		path       string
		wantName   string
		wantRoute  string
		wantStatus int
		wantError  bool
	}{
		{
			name:       "routed conversion",
			method:     http.MethodPost,
			path:       "/v1/convert",
			body:       "puts 1",
			wantName:   "POST /v1/convert",
			wantRoute:  "POST /v1/convert",
			wantStatus: http.StatusOK,
		},
		{
			name:       "server error",
			method:     http.MethodGet,
			path:       "/v1/filters",
			wantName:   "GET /v1/filters",
			wantRoute:  "GET /v1/filters",
			wantStatus: http.StatusInternalServerError,
			wantError:  true,
		},
		{
			name:       "unrouted path keeps the request path",
			method:     http.MethodGet,
			path:       "/v1/unknown",
			wantName:   "GET /v1/unknown",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tracer, exporter := newTestTracer(t)

			var sawSpan bool

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			observability.RequestTracing(tracer, newAPIMux(&sawSpan)).ServeHTTP(httptest.NewRecorder(), req)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantName, spans[0].Name)
			assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)

			attrs := spanAttributes(spans[0])
			assert.Equal(t, int64(tt.wantStatus), attrs["http.response.status_code"].AsInt64())
			assert.Equal(t, tt.path, attrs["url.path"].AsString())

			route, routed := attrs["http.route"]
			assert.Equal(t, tt.wantRoute != "", routed)

			if routed {
				assert.Equal(t, tt.wantRoute, route.AsString())
			}

			if tt.wantError {
				assert.Equal(t, codes.Error, spans[0].Status.Code)
			} else {
				assert.NotEqual(t, codes.Error, spans[0].Status.Code)
			}
		})
	}
}

func TestRequestTracing_RecordsBodySizes(t *testing.T) {
	t.Parallel()

	tracer, exporter := newTestTracer(t)

	var sawSpan bool

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader("puts 1"))
	observability.RequestTracing(tracer, newAPIMux(&sawSpan)).ServeHTTP(rec, req)

	assert.True(t, sawSpan)
	assert.JSONEq(t, `{"output":"x;"}`, rec.Body.String())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := spanAttributes(spans[0])
	assert.Equal(t, int64(len("puts 1")), attrs["http.request.body.size"].AsInt64())
	assert.Equal(t, int64(rec.Body.Len()), attrs["http.response.body.size"].AsInt64())
}
