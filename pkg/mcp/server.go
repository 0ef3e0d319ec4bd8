// Package mcp implements a Model Context Protocol server exposing rb2js
// conversion as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/rubyparse"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "rb2js"

	// toolCount is the expected number of registered tools.
	toolCount = 3
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional recorder. Nil disables per-tool metrics.
	Metrics *observability.ConversionMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Cache is an optional output cache shared by all calls.
	Cache *cache.Cache

	// Parser is the Ruby front end. Nil uses rubyparse.
	Parser transpile.Parser

	// Options seed every conversion; tool arguments override them.
	Options options.Options

	// Version is reported in the server implementation info.
	Version string
}

// Server wraps the MCP SDK server with rb2js tool registrations.
type Server struct {
	inner *mcpsdk.Server
	pool  *transpile.Pool
	deps  ServerDeps
	mu    sync.RWMutex
	tools []string
}

// NewServer creates a new MCP server with all rb2js tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	if deps.Parser == nil {
		deps.Parser = rubyparse.New()
	}

	if deps.Options.Level == 0 {
		deps.Options = options.Default()
	}

	if deps.Version == "" {
		deps.Version = "dev"
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: deps.Version,
		},
		opts,
	)

	srv := &Server{
		inner: inner,
		deps:  deps,
		tools: make([]string, 0, toolCount),
		pool: transpile.NewPool(transpile.Deps{
			Parser:  deps.Parser,
			Tracer:  deps.Tracer,
			Metrics: recorderOrNil(deps.Metrics),
			Logger:  deps.Logger,
		}),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all rb2js MCP tools to the server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameConvert,
		Description: convertToolDescription,
	}, withMetrics(s.deps.Metrics, ToolNameConvert, withTracing(s.deps.Tracer, ToolNameConvert, s.handleConvert)))
	s.trackTool(ToolNameConvert)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAST,
		Description: astToolDescription,
	}, withMetrics(s.deps.Metrics, ToolNameAST, withTracing(s.deps.Tracer, ToolNameAST, s.handleAST)))
	s.trackTool(ToolNameAST)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameFilters,
		Description: filtersToolDescription,
	}, withMetrics(s.deps.Metrics, ToolNameFilters, withTracing(s.deps.Tracer, ToolNameFilters, s.handleFilters)))
	s.trackTool(ToolNameFilters)
}

// recorderOrNil keeps a nil *ConversionMetrics from becoming a non-nil
// interface.
func recorderOrNil(metrics *observability.ConversionMetrics) transpile.Recorder {
	if metrics == nil {
		return nil
	}

	return metrics
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to count requests per tool.
func withMetrics[Input any](
	metrics *observability.ConversionMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		decInflight := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, mcpSpanPrefix+toolName, status)

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	convertToolDescription = "Convert Ruby source code to JavaScript. " +
		"Optional level (es5, es2015 ... es2025), filters (e.g. functions, return) and comparison (loose, strict)."

	astToolDescription = "Parse Ruby source code into the parser-gem style syntax tree. " +
		"Returns an s-expression or, with format=json, the JSON interchange form."

	filtersToolDescription = "List the available rewrite filters with their descriptions and dependencies."
)
