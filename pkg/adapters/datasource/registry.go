package datasource

import (
	"sort"
	"sync"
)

// DialectInfo describes a registered dialect.
type DialectInfo struct {
	Type        string `json:"type"`         // "sqlite", "postgres", "sqlserver"
	DisplayName string `json:"display_name"` // "SQLite", "PostgreSQL"
	DriverName  string `json:"driver_name"`  // database/sql driver passed to sql.Open
}

// DialectRegistration pairs a dialect with the database/sql driver that serves it.
type DialectRegistration struct {
	Info    DialectInfo
	Dialect Dialect
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DialectRegistration)
)

// Register is called by each dialect's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DialectRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredDialects returns info for all registered dialects, sorted by type.
func RegisteredDialects() []DialectInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DialectInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetRegistration returns the registration for a dialect type.
func GetRegistration(dialectType string) (DialectRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[dialectType]
	return reg, ok
}

// IsRegistered checks if a dialect type is available.
func IsRegistered(dialectType string) bool {
	_, ok := GetRegistration(dialectType)
	return ok
}
