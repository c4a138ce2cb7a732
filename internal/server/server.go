// Package server provides the MCP server wrapper with lifecycle management.
package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/metrics"
)

// Server wraps the MCP server with dependencies and lifecycle management.
type Server struct {
	mcp     *mcp.Server
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a new MCP server. The collector is shared with the engine so
// transport-level timings land in the same snapshot as engine operations;
// passing nil allocates a private one.
func New(version string, logger *slog.Logger, collector *metrics.Collector) *Server {
	if collector == nil {
		collector = metrics.NewCollector()
	}

	impl := &mcp.Implementation{
		Name:    "timepivot",
		Version: version,
	}

	return &Server{
		mcp:     mcp.NewServer(impl, nil),
		logger:  logger,
		metrics: collector,
	}
}

// Run starts the server on stdio transport and blocks until disconnect or context cancellation.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server for tool registration.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Setup installs the request middleware.
func (s *Server) Setup() {
	s.mcp.AddReceivingMiddleware(ObservabilityMiddleware(s.logger, s.metrics))
}
