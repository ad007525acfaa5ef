package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/audit"
	"github.com/ekaya-inc/campus-er/pkg/logging"
	"github.com/ekaya-inc/campus-er/pkg/metrics"
	"github.com/ekaya-inc/campus-er/pkg/models"
	"github.com/ekaya-inc/campus-er/pkg/schema"
	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

const (
	DefaultAlertHours = 12
	MinAlertHours     = 1
	MaxAlertHours     = 168

	DefaultSampleRows = 3
	MaxSampleRows     = 100

	MaxSearchLength = 128

	alertsLimit   = 500
	timelineLimit = 2000
	searchLimit   = 50
)

// Operation names used for logging, metrics and audit events.
const (
	OpListAlerts     = "list_alerts"
	OpEntityTimeline = "entity_timeline"
	OpSearchEntities = "search_entities"
	OpPredictState   = "predict_state"
	OpSchemaSummary  = "schema_summary"
)

const (
	columnTimestamp = "timestamp"
	columnEntityID  = "entity_id"
)

// ActivitySource is an activity-log table that can contribute to a timeline.
type ActivitySource struct {
	Table   string
	Label   string
	Columns []string // payload columns besides timestamp
}

// ActivitySources are checked in this order.
var ActivitySources = []ActivitySource{
	{Table: "swipe_logs", Label: "swipe", Columns: []string{"location_id", "card_id", "entity_id"}},
	{Table: "wifi_logs", Label: "wifi", Columns: []string{"ap_id", "device_hash", "entity_id"}},
	{Table: "library_checkouts", Label: "library", Columns: []string{"item_id", "entity_id"}},
	{Table: "bookings", Label: "booking", Columns: []string{"room_id", "entity_id"}},
	{Table: "events", Label: "event", Columns: []string{"description", "entity_id"}},
}

// timelinePayload is the padded column list every timeline sub-select projects
// after source and timestamp.
var timelinePayload = []string{
	"entity_id", "location_id", "card_id", "ap_id", "device_hash", "item_id", "room_id", "description",
}

// stateSource is a table whose last row predicts where an entity is.
type stateSource struct {
	Table       string
	StateColumn string
}

var stateSources = []stateSource{
	{Table: "swipe_logs", StateColumn: "location_id"},
	{Table: "wifi_logs", StateColumn: "ap_id"},
	{Table: "bookings", StateColumn: "room_id"},
}

// Identity tables are searched in this order; the first with a match wins.
var (
	identityTables  = []string{"entities", "profiles", "students", "staff"}
	identityColumns = []string{"entity_id", "name", "email", "card_id", "device_hash"}
)

const (
	explanationNoTables   = "No activity tables found."
	explanationNoActivity = "No prior activity before timestamp."
)

// ActivityService answers read-only questions over the activity-log database.
// Every query is assembled from the structure introspection confirmed for
// the current request; missing tables or columns contribute nothing.
type ActivityService interface {
	// ListAlerts returns recent alerts, optionally for one entity. hours must be 1..168.
	ListAlerts(ctx context.Context, entityID string, hours int) ([]models.Record, error)

	// Timeline merges all activity sources for an entity, oldest first.
	// from and to are optional inclusive bounds.
	Timeline(ctx context.Context, entityID, from, to string) ([]models.Record, error)

	// SearchEntities finds identity records containing q (1..128 characters).
	SearchEntities(ctx context.Context, q string) ([]models.Record, error)

	// PredictState predicts an entity's state from its last activity at or before timestamp.
	PredictState(ctx context.Context, entityID, timestamp string) (*models.Prediction, error)

	// SchemaSummary describes every table with up to sampleRows sample rows (clamped to 0..100).
	SchemaSummary(ctx context.Context, sampleRows int) (models.SchemaSummary, error)
}

type activityService struct {
	conn    datasource.Connector
	dialect datasource.Dialect
	auditor audit.Auditor
	logger  *zap.Logger
}

// NewActivityService creates an ActivityService over the activity database.
func NewActivityService(conn datasource.Connector, auditor audit.Auditor, logger *zap.Logger) ActivityService {
	if auditor == nil {
		auditor = audit.NopAuditor{}
	}
	return &activityService{
		conn:    conn,
		dialect: conn.Dialect(),
		auditor: auditor,
		logger:  logger.Named("activity-service"),
	}
}

var _ ActivityService = (*activityService)(nil)

// withSession runs fn on one dedicated connection and always returns it.
func (s *activityService) withSession(ctx context.Context, op string, fn func(q datasource.Querier, in *schema.Introspector) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordQuery(op, time.Since(start), err)
	}()

	session, err := s.conn.Session(ctx)
	if err != nil {
		s.logger.Error("Failed to acquire activity connection",
			zap.String("operation", op),
			zap.String("error", logging.SanitizeError(err)))
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			s.logger.Warn("Failed to release activity connection",
				zap.String("operation", op),
				zap.Error(closeErr))
		}
	}()

	if err = fn(session, schema.NewIntrospector(session, s.dialect)); err != nil {
		s.logger.Error("Activity query failed",
			zap.String("operation", op),
			zap.String("request_id", logging.RequestIDFromContext(ctx)),
			zap.String("error", logging.SanitizeError(err)))
	}
	return err
}

func (s *activityService) query(ctx context.Context, q datasource.Querier, op string, f sqlpkg.Fragment) ([]models.Record, error) {
	query, args := f.Build(s.dialect)
	s.logger.Debug("Executing query",
		zap.String("operation", op),
		zap.String("sql", logging.SanitizeQuery(query)),
		zap.Int("args", len(args)))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", op, err)
	}
	records, err := datasource.ScanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", op, err)
	}
	return records, nil
}

func (s *activityService) invalid(ctx context.Context, op, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	s.auditor.LogParameterValidation(ctx, op, msg)
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidArgument, msg)
}

func (s *activityService) ListAlerts(ctx context.Context, entityID string, hours int) ([]models.Record, error) {
	if hours < MinAlertHours || hours > MaxAlertHours {
		return nil, s.invalid(ctx, OpListAlerts, "hours must be between %d and %d, got %d", MinAlertHours, MaxAlertHours, hours)
	}
	s.auditor.InspectInputs(ctx, OpListAlerts, audit.Input{Name: "entity_id", Value: entityID})

	var records []models.Record
	err := s.withSession(ctx, OpListAlerts, func(q datasource.Querier, in *schema.Introspector) error {
		caps, err := in.Inspect(ctx, schema.TableSpec{Table: "alerts", Columns: []string{columnEntityID, columnTimestamp}})
		if err != nil {
			return err
		}
		alerts := caps.Table("alerts")
		if !alerts.Exists {
			return nil
		}
		// A filter on a column the table lacks cannot match anything.
		if entityID != "" && !alerts.Has(columnEntityID) {
			return nil
		}

		sel := sqlpkg.Select{
			From:  sqlpkg.Ident("alerts"),
			Limit: alertsLimit,
		}
		if entityID != "" {
			sel.Where = append(sel.Where, sqlpkg.Eq(columnEntityID, entityID))
		}
		if alerts.Has(columnTimestamp) {
			sel.Where = append(sel.Where,
				sqlpkg.Concat(sqlpkg.Ident(columnTimestamp), sqlpkg.Raw(" >= "), s.dialect.HoursAgo(hours)))
			sel.OrderBy = sqlpkg.Concat(sqlpkg.Ident(columnTimestamp), sqlpkg.Raw(" DESC"))
		}

		records, err = s.query(ctx, q, OpListAlerts, sel.Fragment())
		return err
	})
	if err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

func (s *activityService) Timeline(ctx context.Context, entityID, from, to string) ([]models.Record, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, s.invalid(ctx, OpEntityTimeline, "entity_id is required")
	}
	s.auditor.InspectInputs(ctx, OpEntityTimeline,
		audit.Input{Name: "entity_id", Value: entityID},
		audit.Input{Name: "from", Value: from},
		audit.Input{Name: "to", Value: to},
	)

	var records []models.Record
	err := s.withSession(ctx, OpEntityTimeline, func(q datasource.Querier, in *schema.Introspector) error {
		specs := make([]schema.TableSpec, len(ActivitySources))
		for i, src := range ActivitySources {
			specs[i] = schema.TableSpec{Table: src.Table, Columns: append([]string{columnTimestamp}, src.Columns...)}
		}
		caps, err := in.Inspect(ctx, specs...)
		if err != nil {
			return err
		}

		var parts []sqlpkg.Fragment
		// absent maps a source label to the padded columns its table lacks.
		absent := make(map[string]map[string]bool)
		for _, src := range ActivitySources {
			table := caps.Table(src.Table)
			if !table.Exists || !table.HasAll(columnTimestamp, columnEntityID) {
				continue
			}

			cols := []sqlpkg.Fragment{
				sqlpkg.As(sqlpkg.Literal(src.Label), "source"),
				sqlpkg.As(sqlpkg.Ident(columnTimestamp), columnTimestamp),
			}
			missing := make(map[string]bool)
			for _, col := range timelinePayload {
				if contains(src.Columns, col) && table.Has(col) {
					cols = append(cols, sqlpkg.As(s.dialect.CastText(sqlpkg.Ident(col)), col))
					continue
				}
				cols = append(cols, sqlpkg.As(s.dialect.NullText(), col))
				missing[col] = true
			}
			absent[src.Label] = missing

			sub := sqlpkg.Select{
				Columns: cols,
				From:    sqlpkg.Ident(src.Table),
				Where:   []sqlpkg.Fragment{sqlpkg.Eq(columnEntityID, entityID)},
			}
			parts = append(parts, sub.Fragment())
		}
		metrics.RecordSources(OpEntityTimeline, len(parts))
		if len(parts) == 0 {
			return nil
		}

		outer := sqlpkg.Select{
			From:    sqlpkg.Subquery(sqlpkg.UnionAll(parts...), "activity"),
			OrderBy: sqlpkg.Concat(sqlpkg.Ident(columnTimestamp), sqlpkg.Raw(" ASC")),
			Limit:   timelineLimit,
		}
		if from != "" {
			outer.Where = append(outer.Where, sqlpkg.Compare(columnTimestamp, ">=", s.dialect.TimeArg(from)))
		}
		if to != "" {
			outer.Where = append(outer.Where, sqlpkg.Compare(columnTimestamp, "<=", s.dialect.TimeArg(to)))
		}

		rows, err := s.query(ctx, q, OpEntityTimeline, outer.Fragment())
		if err != nil {
			return err
		}
		records = make([]models.Record, len(rows))
		for i, rec := range rows {
			label, _ := rec.Get("source")
			records[i] = rec.Without(absent[fmt.Sprint(label)])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

func (s *activityService) SearchEntities(ctx context.Context, q string) ([]models.Record, error) {
	if n := utf8.RuneCountInString(q); n < 1 || n > MaxSearchLength {
		return nil, s.invalid(ctx, OpSearchEntities, "q must be between 1 and %d characters, got %d", MaxSearchLength, n)
	}
	s.auditor.InspectInputs(ctx, OpSearchEntities, audit.Input{Name: "q", Value: q})

	pattern := sqlpkg.ContainsPattern(q)

	var records []models.Record
	err := s.withSession(ctx, OpSearchEntities, func(qr datasource.Querier, in *schema.Introspector) error {
		for _, table := range identityTables {
			exists, err := in.TableExists(ctx, table)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			cols, err := in.ExistingColumns(ctx, table, identityColumns)
			if err != nil {
				return err
			}

			var matches []sqlpkg.Fragment
			for _, col := range cols {
				if col == columnEntityID {
					continue
				}
				matches = append(matches, s.dialect.ContainsInsensitive(col, pattern))
			}
			if len(matches) == 0 {
				continue
			}

			projection := make([]sqlpkg.Fragment, len(cols))
			for i, col := range cols {
				projection[i] = sqlpkg.Ident(col)
			}
			sel := sqlpkg.Select{
				Columns: projection,
				From:    sqlpkg.Ident(table),
				Where:   []sqlpkg.Fragment{sqlpkg.Paren(sqlpkg.Join(" OR ", matches...))},
				Limit:   searchLimit,
			}

			rows, err := s.query(ctx, qr, OpSearchEntities, sel.Fragment())
			if err != nil {
				return err
			}
			if len(rows) > 0 {
				records = rows
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

func (s *activityService) PredictState(ctx context.Context, entityID, timestamp string) (*models.Prediction, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, s.invalid(ctx, OpPredictState, "entity_id is required")
	}
	s.auditor.InspectInputs(ctx, OpPredictState,
		audit.Input{Name: "entity_id", Value: entityID},
		audit.Input{Name: "timestamp", Value: timestamp},
	)

	result := &models.Prediction{EntityID: entityID}
	err := s.withSession(ctx, OpPredictState, func(q datasource.Querier, in *schema.Introspector) error {
		specs := make([]schema.TableSpec, len(stateSources))
		for i, src := range stateSources {
			specs[i] = schema.TableSpec{Table: src.Table, Columns: []string{columnTimestamp, columnEntityID, src.StateColumn}}
		}
		caps, err := in.Inspect(ctx, specs...)
		if err != nil {
			return err
		}

		var parts []sqlpkg.Fragment
		for _, src := range stateSources {
			table := caps.Table(src.Table)
			if !table.Exists || !table.HasAll(columnTimestamp, columnEntityID, src.StateColumn) {
				continue
			}
			sub := sqlpkg.Select{
				Columns: []sqlpkg.Fragment{
					sqlpkg.As(sqlpkg.Ident(columnTimestamp), columnTimestamp),
					sqlpkg.As(s.dialect.CastText(sqlpkg.Ident(src.StateColumn)), "state"),
					sqlpkg.As(sqlpkg.Literal(src.Table), "source"),
				},
				From:  sqlpkg.Ident(src.Table),
				Where: []sqlpkg.Fragment{sqlpkg.Eq(columnEntityID, entityID)},
			}
			parts = append(parts, sub.Fragment())
		}
		metrics.RecordSources(OpPredictState, len(parts))
		if len(parts) == 0 {
			result.Explanation = explanationNoTables
			return nil
		}

		outer := sqlpkg.Select{
			From:    sqlpkg.Subquery(sqlpkg.UnionAll(parts...), "candidates"),
			OrderBy: sqlpkg.Concat(sqlpkg.Ident(columnTimestamp), sqlpkg.Raw(" DESC")),
			Limit:   1,
		}
		if timestamp != "" {
			outer.Where = []sqlpkg.Fragment{sqlpkg.Compare(columnTimestamp, "<=", s.dialect.TimeArg(timestamp))}
		}

		rows, err := s.query(ctx, q, OpPredictState, outer.Fragment())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			result.Explanation = explanationNoActivity
			return nil
		}

		row := rows[0]
		result.Prediction, _ = row.Get("state")
		source, _ := row.Get("source")
		ts, _ := row.Get(columnTimestamp)
		result.Explanation = fmt.Sprintf("Predicted from last seen in %v at %s", source, formatTimestamp(ts))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *activityService) SchemaSummary(ctx context.Context, sampleRows int) (models.SchemaSummary, error) {
	sampleRows = clamp(sampleRows, 0, MaxSampleRows)

	summary := make(models.SchemaSummary)
	err := s.withSession(ctx, OpSchemaSummary, func(q datasource.Querier, in *schema.Introspector) error {
		tables, err := in.Tables(ctx)
		if err != nil {
			return err
		}
		for _, table := range tables {
			cols, err := in.Columns(ctx, table)
			if err != nil {
				return err
			}
			summary[table] = models.SchemaTableSummary{
				Columns: cols,
				Count:   s.countRows(ctx, q, table),
				Sample:  s.sampleRows(ctx, q, table, sampleRows),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// countRows returns 0 when the table cannot be counted.
func (s *activityService) countRows(ctx context.Context, q datasource.Querier, table string) int64 {
	sel := sqlpkg.Select{
		Columns: []sqlpkg.Fragment{sqlpkg.Raw("COUNT(*)")},
		From:    sqlpkg.Ident(table),
	}
	query, args := sel.Fragment().Build(s.dialect)

	var count int64
	rows, err := q.QueryContext(ctx, query, args...)
	if err == nil {
		defer rows.Close()
		if rows.Next() {
			err = rows.Scan(&count)
		}
		if err == nil {
			err = rows.Err()
		}
	}
	if err != nil {
		s.logger.Warn("Failed to count table rows",
			zap.String("table", table),
			zap.String("error", logging.SanitizeError(err)))
		return 0
	}
	return count
}

// sampleRows returns an empty sample when the table cannot be read.
func (s *activityService) sampleRows(ctx context.Context, q datasource.Querier, table string, n int) []models.Record {
	if n == 0 {
		return []models.Record{}
	}
	sel := sqlpkg.Select{From: sqlpkg.Ident(table), Limit: n}
	records, err := s.query(ctx, q, OpSchemaSummary, sel.Fragment())
	if err != nil {
		s.logger.Warn("Failed to sample table rows",
			zap.String("table", table),
			zap.String("error", logging.SanitizeError(err)))
		return []models.Record{}
	}
	return records
}

func formatTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func nonNil(records []models.Record) []models.Record {
	if records == nil {
		return []models.Record{}
	}
	return records
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
