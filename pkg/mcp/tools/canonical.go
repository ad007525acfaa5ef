package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/campus-er/pkg/services"
)

// RegisterCanonicalTimelineTool adds the canonical_timeline tool.
func RegisterCanonicalTimelineTool(s *server.MCPServer, timelines services.TimelineService) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Returns the resolved cross-source event history of a canonical entity, oldest first, " +
				"with the provenance of each identity match.",
		),
		mcp.WithString("canonical_id", mcp.Required(), mcp.Description("Canonical entity ID from entity resolution")),
	}
	tool := mcp.NewTool(services.OpCanonicalTimeline, append(opts, readOnlyHints()...)...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		timeline, err := timelines.GetCanonicalTimeline(ctx, stringParam(req.GetArguments(), "canonical_id"))
		if err != nil {
			return resultForError(err)
		}
		return jsonResult(timeline)
	})
}
