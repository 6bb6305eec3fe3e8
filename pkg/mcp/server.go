// Package mcp implements a Model Context Protocol server exposing regmetal
// generation, inspection and shape checks as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/regmetal/pkg/generate"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
	"github.com/Sumatoshi-tech/regmetal/pkg/version"
)

const (
	serverName = "regmetal"
	toolCount  = 3

	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// ServerDeps holds injectable dependencies. Zero-value fields disable the
// respective concern.
type ServerDeps struct {
	Logger  *slog.Logger
	Metrics *observability.GenerationMetrics
	Tracer  trace.Tracer
	// MaxInputSize bounds documents read from disk (0 disables).
	MaxInputSize uint64
}

// Server wraps the MCP SDK server with the regmetal tools.
type Server struct {
	inner    *mcpsdk.Server
	pipeline *generate.Pipeline
	logger   *slog.Logger
	metrics  *observability.GenerationMetrics
	tracer   trace.Tracer
	maxInput uint64

	mu    sync.RWMutex
	tools []string
}

// NewServer creates a server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	srv := &Server{
		inner:    mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version.Version}, opts),
		pipeline: generate.NewPipeline(logger, deps.Tracer, nil),
		logger:   logger,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		maxInput: deps.MaxInputSize,
		tools:    make([]string, 0, toolCount),
	}

	addTool(srv, ToolNameRender, renderToolDescription, srv.handleRender)
	addTool(srv, ToolNameInspect, inspectToolDescription, srv.handleInspect)
	addTool(srv, ToolNameValidate, validateToolDescription, srv.handleValidate)

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

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

type toolHandler[Input any] func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error)

func addTool[Input any](s *Server, name, description string, handler toolHandler[Input]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{Name: name, Description: description},
		mcpsdk.ToolHandlerFor[Input, ToolOutput](withMetrics(s.metrics, name, withTracing(s.tracer, name, handler))))

	s.mu.Lock()
	s.tools = append(s.tools, name)
	s.mu.Unlock()
}

// withTracing opens a span per call and appends the trace id to sampled results.
func withTracing[Input any](tracer trace.Tracer, toolName string, handler toolHandler[Input]) toolHandler[Input] {
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

		if sc := span.SpanContext(); sc.IsSampled() && result != nil {
			result.Content = append(result.Content,
				&mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())})
		}

		return result, output, err
	}
}

// withMetrics records one run per call.
func withMetrics[Input any](metrics *observability.GenerationMetrics, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()
		op := mcpSpanPrefix + toolName

		defer metrics.TrackInflight(ctx, op)()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRun(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

const (
	renderToolDescription = "Render C register headers and driver sources from a DUH document " +
		"and/or an object model. Mode header needs the object model, driver needs the DUH document, " +
		"generate needs both."

	inspectToolDescription = "Extract the normalized register model (instances, address blocks, " +
		"fields with macro names, flat registers) and report macro name collisions."

	validateToolDescription = "Check that a DUH document or object model has the expected shape."
)
