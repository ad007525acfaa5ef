package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/mcp/tools"
	"github.com/ekaya-inc/campus-er/pkg/services"
)

// Server wraps the mcp-go MCPServer with the campus-er tool set.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// ToolDeps are the services exposed as tools. Timeline may be nil when the
// canonical timeline database is disabled; Database may be nil in tests.
type ToolDeps struct {
	Activity services.ActivityService
	Timeline services.TimelineService
	Database tools.Pinger
}

// NewServer creates a new MCP server instance with tool call logging.
func NewServer(name, version string, logger *zap.Logger) *Server {
	calls := NewCallLogger(logger)
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(calls.Hooks()),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTools registers the health, activity and canonical timeline tools.
func (s *Server) RegisterTools(version string, deps ToolDeps) {
	tools.RegisterHealthTool(s.mcp, version, deps.Database)
	tools.RegisterActivityTools(s.mcp, &tools.ActivityToolDeps{Activity: deps.Activity})
	if deps.Timeline != nil {
		tools.RegisterCanonicalTimelineTool(s.mcp, deps.Timeline)
	} else {
		s.logger.Info("Canonical timeline tool disabled")
	}
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
