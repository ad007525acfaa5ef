package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/logging"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps a service error onto an HTTP error response:
// invalid arguments are 400, missing resources 404 and everything else 500.
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("error", logging.SanitizeError(err)))
	}
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", trimSentinel(err, apperrors.ErrInvalidArgument)
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, apperrors.ErrConnection):
		return http.StatusInternalServerError, "database_connection_error",
			"Database connection error: " + connectionCause(err)
	default:
		return http.StatusInternalServerError, "internal_error", logging.SanitizeError(err)
	}
}

// trimSentinel drops the sentinel prefix added by fmt.Errorf("%w: ...").
func trimSentinel(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// connectionCause returns the text after the connection sentinel, which may
// sit anywhere in a wrapped error chain.
func connectionCause(err error) string {
	msg := logging.SanitizeError(err)
	marker := apperrors.ErrConnection.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
