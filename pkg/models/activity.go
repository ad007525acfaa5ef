package models

// Prediction is the predicted state of an entity at a point in time.
// Prediction is nil when no qualifying activity exists.
type Prediction struct {
	EntityID    string `json:"entity_id"`
	Prediction  any    `json:"prediction"`
	Explanation string `json:"explanation"`
}

// SchemaTableSummary describes one table of the activity database.
type SchemaTableSummary struct {
	Columns []string `json:"columns"`
	Count   int64    `json:"count"`
	Sample  []Record `json:"sample"`
}

// SchemaSummary maps table name to its summary.
type SchemaSummary map[string]SchemaTableSummary
