package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a built query to log
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in key/value and ADO-style DSNs
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host in URL-style DSNs (postgresql://, sqlserver://)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?]+`)
)

// SanitizeDSN removes credentials from a data source name.
// Use this before logging any activity or timeline DSN.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes driver error messages that may echo a DSN.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeDSN(err.Error())
}

// SanitizeQuery truncates a built SQL statement for debug logging.
// Values are bound separately and never appear in the text.
func SanitizeQuery(query string) string {
	return TruncateString(query, MaxQueryLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
