// Package tools provides the campus-er MCP tools.
package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/campus-er/pkg/models"
	"github.com/ekaya-inc/campus-er/pkg/services"
)

// ActivityToolDeps contains dependencies for activity-log tools.
type ActivityToolDeps struct {
	Activity services.ActivityService
}

// rowsResult wraps record lists so clients see the row count without counting.
type rowsResult struct {
	Rows     []models.Record `json:"rows"`
	RowCount int             `json:"row_count"`
}

func newRowsResult(rows []models.Record) rowsResult {
	if rows == nil {
		rows = []models.Record{}
	}
	return rowsResult{Rows: rows, RowCount: len(rows)}
}

// RegisterActivityTools registers the activity-log read tools.
func RegisterActivityTools(s *server.MCPServer, deps *ActivityToolDeps) {
	registerListAlertsTool(s, deps)
	registerEntityTimelineTool(s, deps)
	registerSearchEntitiesTool(s, deps)
	registerPredictStateTool(s, deps)
	registerSchemaSummaryTool(s, deps)
}

func registerListAlertsTool(s *server.MCPServer, deps *ActivityToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Lists recent alerts, newest first (max 500). " +
				"Returns an empty list when the database has no alerts table.",
		),
		mcp.WithString("entity_id", mcp.Description("Only alerts for this entity")),
		mcp.WithNumber("hours", mcp.Description(
			fmt.Sprintf("Look-back window in hours (default %d, %d-%d)",
				services.DefaultAlertHours, services.MinAlertHours, services.MaxAlertHours))),
	}
	tool := mcp.NewTool(services.OpListAlerts, append(opts, readOnlyHints()...)...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		hours, err := intParam(args, "hours", services.DefaultAlertHours)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		rows, err := deps.Activity.ListAlerts(ctx, stringParam(args, "entity_id"), hours)
		if err != nil {
			return resultForError(err)
		}
		return jsonResult(newRowsResult(rows))
	})
}

func registerEntityTimelineTool(s *server.MCPServer, deps *ActivityToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Merges swipe, wifi, library, booking and event activity for one entity " +
				"into a single timeline, oldest first (max 2000). Each row carries a 'source' label.",
		),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity to trace")),
		mcp.WithString("from", mcp.Description("Inclusive lower timestamp bound (ISO-8601)")),
		mcp.WithString("to", mcp.Description("Inclusive upper timestamp bound (ISO-8601)")),
	}
	tool := mcp.NewTool(services.OpEntityTimeline, append(opts, readOnlyHints()...)...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		rows, err := deps.Activity.Timeline(ctx,
			stringParam(args, "entity_id"), stringParam(args, "from"), stringParam(args, "to"))
		if err != nil {
			return resultForError(err)
		}
		return jsonResult(newRowsResult(rows))
	})
}

func registerSearchEntitiesTool(s *server.MCPServer, deps *ActivityToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Case-insensitive substring search over identity tables " +
				"(entities, profiles, students, staff; first table with a match wins). " +
				"Matches name, email, card_id and device_hash. Max 50 rows.",
		),
		mcp.WithString("q", mcp.Required(), mcp.Description(
			fmt.Sprintf("Search text, 1-%d characters", services.MaxSearchLength))),
	}
	tool := mcp.NewTool(services.OpSearchEntities, append(opts, readOnlyHints()...)...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, _ := req.GetArguments()["q"].(string)
		rows, err := deps.Activity.SearchEntities(ctx, q)
		if err != nil {
			return resultForError(err)
		}
		return jsonResult(newRowsResult(rows))
	})
}

func registerPredictStateTool(s *server.MCPServer, deps *ActivityToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Predicts where an entity is from its most recent swipe, wifi or booking " +
				"activity at or before the given time.",
		),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity to locate")),
		mcp.WithString("timestamp", mcp.Description("Point in time (ISO-8601); defaults to latest activity")),
	}
	tool := mcp.NewTool(services.OpPredictState, append(opts, readOnlyHints()...)...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		prediction, err := deps.Activity.PredictState(ctx, stringParam(args, "entity_id"), stringParam(args, "timestamp"))
		if err != nil {
			return resultForError(err)
		}
		return jsonResult(prediction)
	})
}

func registerSchemaSummaryTool(s *server.MCPServer, deps *ActivityToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Lists every table with its columns, row count and a few sample rows."),
		mcp.WithNumber("sample_rows", mcp.Description(
			fmt.Sprintf("Sample rows per table (default %d, max %d)", services.DefaultSampleRows, services.MaxSampleRows))),
	}
	tool := mcp.NewTool(services.OpSchemaSummary, append(opts, readOnlyHints()...)...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := intParam(req.GetArguments(), "sample_rows", services.DefaultSampleRows)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		summary, err := deps.Activity.SchemaSummary(ctx, n)
		if err != nil {
			return resultForError(err)
		}
		return jsonResult(summary)
	})
}
