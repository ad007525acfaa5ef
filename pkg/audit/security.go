// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/logging"
	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a free-text input.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventParameterValidation is logged when request validation fails.
	EventParameterValidation SecurityEventType = "parameter_validation_failure"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Operation string            `json:"operation"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a flagged input.
type SQLInjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// Input is a named free-text value received from a caller.
type Input struct {
	Name  string
	Value string
}

// Auditor is the subset of SecurityAuditor used by services.
type Auditor interface {
	InspectInputs(ctx context.Context, operation string, inputs ...Input) int
	LogParameterValidation(ctx context.Context, operation, errorMessage string)
}

// SecurityAuditor logs security events under the "security_audit" logger.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// InspectInputs fingerprints each input with libinjection and logs every hit.
// Inputs are always bound as query parameters, so nothing is rejected.
// Returns the number of flagged inputs.
func (a *SecurityAuditor) InspectInputs(ctx context.Context, operation string, inputs ...Input) int {
	hits := 0
	for _, in := range inputs {
		result := sqlpkg.CheckParameterForInjection(in.Name, in.Value)
		if result == nil {
			continue
		}
		hits++
		a.LogInjectionAttempt(ctx, operation, SQLInjectionDetails{
			ParamName:   result.ParamName,
			ParamValue:  logging.TruncateString(result.ParamValue, 256),
			Fingerprint: result.Fingerprint,
		})
	}
	return hits
}

// LogInjectionAttempt records a flagged input at ERROR level with "critical" severity.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, operation string, details SQLInjectionDetails) {
	requestID := logging.RequestIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSQLInjectionAttempt,
		RequestID: requestID,
		Operation: operation,
		Details:   details,
		Severity:  "critical",
	}

	// Marshaling known types cannot fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection pattern in request input",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID),
		zap.String("operation", operation),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "critical"),
	)
}

// LogParameterValidation records a rejected request at WARN level.
func (a *SecurityAuditor) LogParameterValidation(ctx context.Context, operation, errorMessage string) {
	requestID := logging.RequestIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventParameterValidation,
		RequestID: requestID,
		Operation: operation,
		Details: map[string]string{
			"error": errorMessage,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Parameter validation failed",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", requestID),
		zap.String("operation", operation),
		zap.String("error", errorMessage),
		zap.String("severity", "warning"),
	)
}

// NopAuditor discards all events.
type NopAuditor struct{}

func (NopAuditor) InspectInputs(context.Context, string, ...Input) int { return 0 }

func (NopAuditor) LogParameterValidation(context.Context, string, string) {}

var (
	_ Auditor = (*SecurityAuditor)(nil)
	_ Auditor = NopAuditor{}
)
