// Package mcp implements a Model Context Protocol server exposing file
// creation-date resolution as MCP tools over stdio transport.
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

	"github.com/Sumatoshi-tech/gitorigin/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/observability"
	"github.com/Sumatoshi-tech/gitorigin/pkg/version"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "gitorigin"

	// toolCount is the expected number of registered tools.
	toolCount = 2
)

// QuerierOpener opens a history backend for the repository at repoPath.
// The returned function releases it.
type QuerierOpener func(repoPath string) (history.Querier, func(), error)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional tool call recorder. Nil disables per-tool metrics.
	Metrics *observability.ToolMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// OpenQuerier opens the backend for each call. Nil uses libgit2.
	OpenQuerier QuerierOpener

	// Resolver holds defaults for every resolution; DateFormat is overridden
	// per call when the input sets one.
	Resolver history.Options
}

// Server wraps the MCP SDK server with gitorigin tool registrations.
type Server struct {
	inner       *mcpsdk.Server
	mu          sync.RWMutex
	tools       []string
	metrics     *observability.ToolMetrics
	tracer      trace.Tracer
	openQuerier QuerierOpener
	resolver    history.Options
}

// NewServer creates a new MCP server with all gitorigin tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	openQuerier := deps.OpenQuerier
	if openQuerier == nil {
		openQuerier = OpenLibgit2Querier
	}

	srv := &Server{
		inner:       inner,
		tools:       make([]string, 0, toolCount),
		metrics:     deps.Metrics,
		tracer:      deps.Tracer,
		openQuerier: openQuerier,
		resolver:    deps.Resolver,
	}

	srv.registerTools()

	return srv
}

// OpenLibgit2Querier opens repoPath with libgit2.
func OpenLibgit2Querier(repoPath string) (history.Querier, func(), error) {
	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return nil, nil, err
	}

	return gitlib.NewQuerier(repo), repo.Free, nil
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

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameCreationDate,
		Description: creationDateToolDescription,
	}, withMetrics(s.metrics, ToolNameCreationDate,
		withTracing(s.tracer, ToolNameCreationDate, s.handleCreationDate)))

	s.trackTool(ToolNameCreationDate)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameCreationDates,
		Description: creationDatesToolDescription,
	}, withMetrics(s.metrics, ToolNameCreationDates,
		withTracing(s.tracer, ToolNameCreationDates, s.handleCreationDates)))

	s.trackTool(ToolNameCreationDates)
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

// withMetrics wraps an MCP tool handler to count calls and their outcome.
func withMetrics[Input any](
	metrics *observability.ToolMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		finish := metrics.StartCall(ctx, toolName)

		result, output, err := handler(ctx, req, input)
		finish(err != nil || (result != nil && result.IsError))

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
	creationDateToolDescription = "Find when a file was first added to a Git repository, " +
		"following it back through renames. Returns the formatted date of the commit " +
		"that introduced the file, its original path and the renames followed."

	creationDatesToolDescription = "Resolve creation dates for many files of one Git repository " +
		"in parallel. Returns one entry per path in input order."
)
