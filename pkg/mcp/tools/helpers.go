package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// readOnlyHints marks a tool as a safe, repeatable read.
func readOnlyHints() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	}
}

// intParam reads an integer argument. Clients sometimes send numbers as
// strings, so numeric strings are accepted too. Absent keys yield def.
func intParam(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("parameter %q must be an integer, got %v", key, n)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer, got %s", key, n)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("parameter %q must be an integer, got %q", key, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("parameter %q must be an integer, got %T", key, v)
	}
}

// stringParam reads an optional trimmed string argument.
func stringParam(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return trimString(s)
	}
	return ""
}
