package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in messages come
// from json or query tags.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// validateRequest validates v and writes a 400 response on failure.
func validateRequest(w http.ResponseWriter, v any, logger *zap.Logger) bool {
	err := getValidator().Struct(v)
	if err == nil {
		return true
	}
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_argument", validationMessage(err)); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
	return false
}

// validationMessage renders validator errors as "field: reason; ...".
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

// parseIntQuery reads an optional integer query parameter.
// Returns def when absent, or false after writing a 400 response when malformed.
func parseIntQuery(w http.ResponseWriter, r *http.Request, name string, def int, logger *zap.Logger) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		msg := fmt.Sprintf("%s must be an integer", name)
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_argument", msg); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return n, true
}
