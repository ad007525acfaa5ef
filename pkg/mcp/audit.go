package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/logging"
	"github.com/ekaya-inc/campus-er/pkg/metrics"
)

// maxParamSize is the longest string argument written to the call log.
const maxParamSize = 256

// CallLogger logs MCP tool calls and records per-tool metrics.
type CallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewCallLogger creates a CallLogger.
func NewCallLogger(logger *zap.Logger) *CallLogger {
	return &CallLogger{logger: logger.Named("mcp-calls")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *CallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *CallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *CallLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	startTime, _ := a.loadAndDeleteStart(id)
	summary := summarizeResult(result)

	outcome := "success"
	if result != nil && result.IsError {
		outcome = "tool_error"
	}
	metrics.RecordToolCall(req.Params.Name, outcome)

	a.logger.Info("MCP tool call",
		zap.String("tool", req.Params.Name),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(startTime)),
		zap.String("request_id", logging.RequestIDFromContext(ctx)),
		zap.Any("params", sanitizeParams(req.Params.Arguments)),
		zap.Any("result", summary))
}

func (a *CallLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}

	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	startTime, _ := a.loadAndDeleteStart(id)
	metrics.RecordToolCall(req.Params.Name, "error")

	a.logger.Error("MCP tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", time.Since(startTime)),
		zap.String("request_id", logging.RequestIDFromContext(ctx)),
		zap.Any("params", sanitizeParams(req.Params.Arguments)),
		zap.String("error", logging.SanitizeError(err)))
}

func (a *CallLogger) loadAndDeleteStart(id any) (time.Time, bool) {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time), true
	}
	return time.Now(), false
}

// sanitizeParams truncates long string arguments before they are logged.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			sanitized[k] = logging.TruncateString(s, maxParamSize)
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

// summarizeResult creates a compact summary of the tool result.
func summarizeResult(result *mcplib.CallToolResult) map[string]any {
	if result == nil {
		return nil
	}

	summary := map[string]any{
		"is_error": result.IsError,
	}

	if len(result.Content) > 0 {
		summary["content_count"] = len(result.Content)
		for _, c := range result.Content {
			if tc, ok := c.(mcplib.TextContent); ok {
				extractRowCount(tc.Text, summary)
				if result.IsError {
					summary["preview"] = logging.TruncateString(tc.Text, 200)
				}
				break
			}
		}
	}

	return summary
}

// extractRowCount copies row_count from a JSON tool response into summary.
func extractRowCount(text string, summary map[string]any) {
	var partial struct {
		RowCount *int `json:"row_count"`
	}
	if err := json.Unmarshal([]byte(text), &partial); err == nil && partial.RowCount != nil {
		summary["row_count"] = *partial.RowCount
	}
}
