package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/builtin"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/rubyparse"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

// Server constants.
const (
	serverIdleTimeout = 120 * time.Second
	shutdownGrace     = 10 * time.Second

	// opConvert labels convert requests in metrics.
	opConvert = "http.convert"
	// requestName labels request code in diagnostics.
	requestName = "request.rb"
)

// Request errors.
var (
	errEmptyCode    = errors.New("code is required")
	errBodyTooLarge = errors.New("request body too large")
)

// ConvertRequest is the body of POST /v1/convert.
type ConvertRequest struct {
	Code       string   `json:"code"`
	Level      string   `json:"level,omitempty"`
	Comparison string   `json:"comparison,omitempty"`
	Filters    []string `json:"filters,omitempty"`
}

// ConvertResponse is the reply of POST /v1/convert.
type ConvertResponse struct {
	Error      *ErrorBody `json:"error,omitempty"`
	JavaScript string     `json:"javascript,omitempty"`
	Level      string     `json:"level,omitempty"`
	Cached     bool       `json:"cached"`
}

// ErrorBody describes a failed request. Stage and the position are set for
// conversion failures that carry a location.
type ErrorBody struct {
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Start an HTTP server exposing the converter.

Endpoints:
  POST /v1/convert   {"code": "...", "level": "es2015", "filters": ["functions"]}
  GET  /v1/filters   available filters
  GET  /healthz      liveness check
  GET  /metrics      Prometheus metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, configPath, observability.ModeServe)
			if err != nil {
				return err
			}
			defer rt.close()

			if cmd.Flags().Changed("host") {
				rt.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				rt.cfg.Server.Port = port
			}

			return serve(cmd.Context(), rt)
		},
	}

	addConfigFlag(cmd, &configPath)
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&host, "host", config.DefaultServerHost, "address to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "port to listen on")

	return cmd
}

func serve(ctx context.Context, rt *runtime) error {
	metricsHandler, meterProvider, err := observability.PrometheusHandler()
	if err != nil {
		return err
	}

	metrics, err := observability.NewConversionMetrics(meterProvider.Meter(observability.MeterName))
	if err != nil {
		return err
	}

	rt.metrics = metrics

	base, err := rt.cfg.ToOptions()
	if err != nil {
		return err
	}

	outputs, err := rt.cache()
	if err != nil {
		return err
	}

	handler := newServeHandler(&convertServer{
		pool: transpile.NewPool(transpile.Deps{
			Parser:  rubyparse.New(),
			Tracer:  rt.providers.Tracer,
			Metrics: metrics,
			Logger:  rt.providers.Logger,
		}),
		base:    base,
		cache:   outputs,
		metrics: metrics,
		logger:  rt.providers.Logger,
		maxBody: int64(rt.cfg.MaxBodySize()), //nolint:gosec // validated size.
	}, rt.providers.Tracer, metricsHandler)

	server := &http.Server{
		Addr:         net.JoinHostPort(rt.cfg.Server.Host, strconv.Itoa(rt.cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  rt.cfg.Server.ReadTimeout,
		WriteTimeout: rt.cfg.Server.WriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		rt.providers.Logger.Info("rb2js server starting", "addr", "http://"+server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		rt.providers.Logger.Info("rb2js server stopping")

		return server.Shutdown(shutdownCtx)
	}
}

// convertServer answers conversion requests.
type convertServer struct {
	pool    *transpile.Pool
	cache   *cache.Cache
	metrics *observability.ConversionMetrics
	logger  *slog.Logger
	base    options.Options
	maxBody int64
}

// newServeHandler creates the HTTP mux with the API routes wrapped in
// tracing middleware.
func newServeHandler(srv *convertServer, tracer trace.Tracer, metricsHandler http.Handler) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/convert", srv.handleConvert)
	api.HandleFunc("GET /v1/filters", srv.handleFilters)

	mux := http.NewServeMux()
	mux.Handle("/v1/", observability.RequestTracing(tracer, api))
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return mux
}

func (srv *convertServer) handleConvert(rw http.ResponseWriter, hr *http.Request) {
	ctx := hr.Context()

	if srv.metrics != nil {
		defer srv.metrics.TrackInflight(ctx, opConvert)()
	}

	status, response := srv.convert(ctx, rw, hr)

	if srv.metrics != nil {
		label := observability.StatusOK
		if response.Error != nil {
			label = observability.StatusError
		}

		srv.metrics.RecordRequest(ctx, opConvert, label)
	}

	writeJSON(ctx, srv.logger, rw, status, response)
}

func (srv *convertServer) convert(ctx context.Context, rw http.ResponseWriter, hr *http.Request) (int, ConvertResponse) {
	if srv.maxBody > 0 {
		hr.Body = http.MaxBytesReader(rw, hr.Body, srv.maxBody)
	}

	var req ConvertRequest

	err := json.NewDecoder(hr.Body).Decode(&req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, failure(fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, tooLarge.Limit))
		}

		return http.StatusBadRequest, failure(fmt.Errorf("invalid request body: %w", err))
	}

	if req.Code == "" {
		return http.StatusBadRequest, failure(errEmptyCode)
	}

	opts, err := srv.base.Override(options.Overrides{Level: req.Level, Comparison: req.Comparison, Filters: req.Filters})
	if err != nil {
		return http.StatusBadRequest, failure(err)
	}

	tr, err := srv.pool.Get(opts)
	if err != nil {
		return http.StatusBadRequest, failure(err)
	}

	src := []byte(req.Code)
	compute := func() (string, error) { return tr.ConvertSource(ctx, requestName, src) }

	var (
		output string
		cached bool
	)

	if srv.cache != nil {
		output, cached, err = srv.cache.GetOrCompute(ctx, cache.NewKey(opts.Fingerprint(), src), compute)
	} else {
		output, err = compute()
	}

	if err != nil {
		return http.StatusUnprocessableEntity, failure(err)
	}

	return http.StatusOK, ConvertResponse{JavaScript: output, Level: opts.Level.String(), Cached: cached}
}

// failure builds an error response, locating conversion failures.
func failure(err error) ConvertResponse {
	body := &ErrorBody{Message: err.Error()}

	var stageErr *transpile.Error
	if errors.As(err, &stageErr) {
		body.Stage = string(stageErr.Stage)
	}

	if span := errorSpan(err); !span.IsZero() {
		body.Line, body.Column = span.StartLine, span.StartCol
	}

	return ConvertResponse{Error: body}
}

func (srv *convertServer) handleFilters(rw http.ResponseWriter, hr *http.Request) {
	type filterInfo struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Requires    []string `json:"requires,omitempty"`
	}

	filters := builtin.Filters()
	infos := make([]filterInfo, 0, len(filters))

	for _, flt := range filters {
		infos = append(infos, filterInfo{Name: flt.Name, Description: flt.Description, Requires: flt.Requires})
	}

	writeJSON(hr.Context(), srv.logger, rw, http.StatusOK, infos)
}

// writeJSON encodes value as the JSON response body.
func writeJSON(ctx context.Context, logger *slog.Logger, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		logger.ErrorContext(ctx, "failed to encode JSON response", "error", encodeErr)
	}
}
