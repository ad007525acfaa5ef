package handlers

import (
	"context"

	"github.com/ekaya-inc/campus-er/pkg/models"
)

// mockActivityService records the arguments of the last call and returns
// the configured results.
type mockActivityService struct {
	records    []models.Record
	prediction *models.Prediction
	summary    models.SchemaSummary
	err        error

	gotEntityID  string
	gotHours     int
	gotFrom      string
	gotTo        string
	gotQuery     string
	gotTimestamp string
	gotSample    int
	calls        int
}

func (m *mockActivityService) ListAlerts(_ context.Context, entityID string, hours int) ([]models.Record, error) {
	m.calls++
	m.gotEntityID, m.gotHours = entityID, hours
	return m.records, m.err
}

func (m *mockActivityService) Timeline(_ context.Context, entityID, from, to string) ([]models.Record, error) {
	m.calls++
	m.gotEntityID, m.gotFrom, m.gotTo = entityID, from, to
	return m.records, m.err
}

func (m *mockActivityService) SearchEntities(_ context.Context, q string) ([]models.Record, error) {
	m.calls++
	m.gotQuery = q
	return m.records, m.err
}

func (m *mockActivityService) PredictState(_ context.Context, entityID, timestamp string) (*models.Prediction, error) {
	m.calls++
	m.gotEntityID, m.gotTimestamp = entityID, timestamp
	return m.prediction, m.err
}

func (m *mockActivityService) SchemaSummary(_ context.Context, sampleRows int) (models.SchemaSummary, error) {
	m.calls++
	m.gotSample = sampleRows
	return m.summary, m.err
}

type mockTimelineService struct {
	timeline *models.CanonicalTimeline
	err      error
	gotID    string
}

func (m *mockTimelineService) GetCanonicalTimeline(_ context.Context, canonicalID string) (*models.CanonicalTimeline, error) {
	m.gotID = canonicalID
	return m.timeline, m.err
}

func strPtr(s string) *string { return &s }
