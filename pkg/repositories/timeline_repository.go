package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	"github.com/ekaya-inc/campus-er/pkg/database"
	"github.com/ekaya-inc/campus-er/pkg/models"
)

const canonicalTimelineQuery = `
	SELECT
		ue.source,
		ue.id AS original_id,
		ue.location_id,
		ue.timestamp,
		erm.provenance
	FROM unified_events ue
	JOIN entity_resolution_map erm
		ON ue.entity_key = erm.source_id
	WHERE erm.canonical_entity_id = $1
	ORDER BY ue.timestamp ASC`

// TimelineRepository reads canonical entity timelines.
type TimelineRepository interface {
	GetCanonicalTimeline(ctx context.Context, canonicalID string) ([]models.CanonicalEvent, error)
}

type timelineRepository struct {
	conns database.ConnSource
}

// NewTimelineRepository creates a repository borrowing connections from conns.
func NewTimelineRepository(conns database.ConnSource) TimelineRepository {
	return &timelineRepository{conns: conns}
}

var _ TimelineRepository = (*timelineRepository)(nil)

// GetCanonicalTimeline returns every unified event resolved to canonicalID,
// oldest first. The borrowed connection is released on every path.
func (r *timelineRepository) GetCanonicalTimeline(ctx context.Context, canonicalID string) ([]models.CanonicalEvent, error) {
	conn, err := r.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, canonicalTimelineQuery, canonicalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical timeline: %w", err)
	}
	defer rows.Close()

	events := make([]models.CanonicalEvent, 0)
	for rows.Next() {
		var (
			source     *string
			originalID any
			locationID any
			ts         any
			provenance any
		)
		if err := rows.Scan(&source, &originalID, &locationID, &ts, &provenance); err != nil {
			return nil, fmt.Errorf("failed to scan canonical event: %w", err)
		}

		event := models.CanonicalEvent{
			Source:     source,
			OriginalID: normalizeIdentifier(originalID),
			LocationID: normalizeIdentifier(locationID),
			Timestamp:  normalizeTimestamp(ts),
		}
		if event.Provenance, err = decodeProvenance(provenance); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read canonical timeline: %w", err)
	}

	return events, nil
}

// normalizeIdentifier renders uuid and byte values as strings.
func normalizeIdentifier(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	case []byte:
		return string(t)
	default:
		return v
	}
}

func normalizeTimestamp(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		if parsed, ok := datasource.ParseTimestamp(t); ok {
			return &parsed
		}
	}
	return nil
}

// decodeProvenance accepts the values pgx produces for json, jsonb, text and
// bytea columns. Structured values pass through; text is parsed as JSON.
func decodeProvenance(v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		raw = []byte(t)
	case []byte:
		if len(bytes.TrimSpace(t)) == 0 {
			return nil, nil
		}
		raw = t
	default:
		return t, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode provenance: %w", err)
	}
	return decoded, nil
}
