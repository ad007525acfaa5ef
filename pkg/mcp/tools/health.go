package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Pinger reports whether a backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResult struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and activity database reachability.
// db may be nil, in which case the database is reported as "unknown".
func RegisterHealthTool(s *server.MCPServer, version string, db Pinger) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version, Database: "unknown"}
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				result.Status = "degraded"
				result.Database = "unreachable"
			} else {
				result.Database = "ok"
			}
		}
		return jsonResult(result)
	})
}
