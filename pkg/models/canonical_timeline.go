package models

import "time"

// CanonicalEvent is one unified event attributed to a canonical entity.
type CanonicalEvent struct {
	Source     *string    `json:"source"`
	OriginalID any        `json:"original_id"`
	LocationID any        `json:"location_id"`
	Timestamp  *time.Time `json:"timestamp"`
	// Provenance is the decoded resolution provenance, or nil.
	Provenance any `json:"provenance"`
}

// CanonicalTimeline is the ordered event history of a canonical entity.
type CanonicalTimeline struct {
	CanonicalEntityID string           `json:"canonical_entity_id"`
	Timeline          []CanonicalEvent `json:"timeline"`
}
