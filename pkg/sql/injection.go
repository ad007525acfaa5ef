package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a free-text input that looks like SQL injection.
// Inputs are always bound as parameters, so a hit is only reported, never rejected.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the input that matched
	ParamValue  string // The value that was checked
}

// CheckParameterForInjection runs libinjection over a single input value.
// Returns nil when the value is clean or empty.
func CheckParameterForInjection(paramName, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
		ParamValue:  value,
	}
}

// CheckAllParameters checks every named input and returns the hits, ordered
// by the order of names.
func CheckAllParameters(names []string, values map[string]string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, name := range names {
		if result := CheckParameterForInjection(name, values[name]); result != nil {
			results = append(results, result)
		}
	}
	return results
}
