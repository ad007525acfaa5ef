package tools

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Caller mistakes are returned as a successful tool result carrying this
// payload so the client can see and correct them.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable errors (invalid parameters, unknown entity).
// Database failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// resultForError converts service errors into tool results.
// Invalid arguments and unknown entities become error results; anything else
// is returned as a Go error and surfaces as a JSON-RPC error.
func resultForError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return NewErrorResult("invalid_parameters", cleanMessage(err, apperrors.ErrInvalidArgument)), nil
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error()), nil
	default:
		return nil, err
	}
}

// cleanMessage drops the sentinel prefix added by fmt.Errorf("%w: ...").
func cleanMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
