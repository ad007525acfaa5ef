package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/models"
	"github.com/ekaya-inc/campus-er/pkg/services"
)

func newActivityMux(svc *mockActivityService) *http.ServeMux {
	mux := http.NewServeMux()
	NewActivityHandler(svc, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestActivityHandler_ListAlerts_DefaultHours(t *testing.T) {
	svc := &mockActivityService{records: []models.Record{
		{{Name: "id", Value: int64(1)}, {Name: "entity_id", Value: "E1"}},
	}}

	rr := serve(newActivityMux(svc), http.MethodGet, "/alerts?entity_id=E1", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, services.DefaultAlertHours, svc.gotHours)
	assert.Equal(t, "E1", svc.gotEntityID)
	assert.JSONEq(t, `[{"id":1,"entity_id":"E1"}]`, rr.Body.String())
}

func TestActivityHandler_ListAlerts_EmptyIsArray(t *testing.T) {
	svc := &mockActivityService{}

	rr := serve(newActivityMux(svc), http.MethodGet, "/alerts?hours=24", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 24, svc.gotHours)
	assert.Equal(t, "", svc.gotEntityID)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestActivityHandler_ListAlerts_MalformedHours(t *testing.T) {
	svc := &mockActivityService{}

	rr := serve(newActivityMux(svc), http.MethodGet, "/alerts?hours=soon", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "invalid_argument", body["error"])
	assert.Equal(t, "hours must be an integer", body["message"])
	assert.Zero(t, svc.calls, "service must not be called")
}

func TestActivityHandler_ListAlerts_OutOfRange(t *testing.T) {
	svc := &mockActivityService{
		err: fmt.Errorf("%w: hours must be between 1 and 168, got 500", apperrors.ErrInvalidArgument),
	}

	rr := serve(newActivityMux(svc), http.MethodGet, "/alerts?hours=500", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "invalid_argument", body["error"])
	assert.Equal(t, "hours must be between 1 and 168, got 500", body["message"])
}

func TestActivityHandler_Timeline(t *testing.T) {
	svc := &mockActivityService{records: []models.Record{
		{{Name: "source", Value: "swipe"}, {Name: "timestamp", Value: "2024-01-01T08:00:00"}},
	}}

	rr := serve(newActivityMux(svc), http.MethodGet,
		"/timeline?entity_id=E7&from=2024-01-01T00:00:00&to=2024-01-02T00:00:00", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "E7", svc.gotEntityID)
	assert.Equal(t, "2024-01-01T00:00:00", svc.gotFrom)
	assert.Equal(t, "2024-01-02T00:00:00", svc.gotTo)
	assert.JSONEq(t, `[{"source":"swipe","timestamp":"2024-01-01T08:00:00"}]`, rr.Body.String())
}

func TestActivityHandler_Timeline_MissingEntityID(t *testing.T) {
	svc := &mockActivityService{}

	rr := serve(newActivityMux(svc), http.MethodGet, "/timeline?entity_id=%20", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "entity_id is required", body["message"])
	assert.Zero(t, svc.calls)
}

func TestActivityHandler_Search(t *testing.T) {
	svc := &mockActivityService{records: []models.Record{
		{{Name: "entity_id", Value: "E1"}, {Name: "name", Value: "Ann Lee"}},
	}}

	rr := serve(newActivityMux(svc), http.MethodGet, "/search?q=ann", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ann", svc.gotQuery)
	assert.JSONEq(t, `[{"entity_id":"E1","name":"Ann Lee"}]`, rr.Body.String())
}

func TestActivityHandler_Search_Validation(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{"missing", "/search", "q is required"},
		{"too long", "/search?q=" + strings.Repeat("x", services.MaxSearchLength+1), "q must be at most 128 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockActivityService{}

			rr := serve(newActivityMux(svc), http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.message, decodeError(t, rr)["message"])
			assert.Zero(t, svc.calls)
		})
	}
}

func TestActivityHandler_Predict(t *testing.T) {
	svc := &mockActivityService{prediction: &models.Prediction{
		EntityID:    "E1",
		Prediction:  "LIB-1",
		Explanation: "Last seen at LIB-1 via swipe_logs at 2024-01-01T09:00:00",
	}}

	rr := serve(newActivityMux(svc), http.MethodPost, "/predict",
		`{"entity_id":"E1","timestamp":"2024-01-01T10:00:00"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "E1", svc.gotEntityID)
	assert.Equal(t, "2024-01-01T10:00:00", svc.gotTimestamp)

	var resp models.Prediction
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "LIB-1", resp.Prediction)
}

func TestActivityHandler_Predict_NoTimestampNoPrediction(t *testing.T) {
	svc := &mockActivityService{prediction: &models.Prediction{
		EntityID:    "E9",
		Explanation: "No prior activity before timestamp.",
	}}

	rr := serve(newActivityMux(svc), http.MethodPost, "/predict", `{"entity_id":"E9"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "", svc.gotTimestamp)
	assert.JSONEq(t,
		`{"entity_id":"E9","prediction":null,"explanation":"No prior activity before timestamp."}`,
		rr.Body.String())
}

func TestActivityHandler_Predict_NumericState(t *testing.T) {
	svc := &mockActivityService{prediction: &models.Prediction{
		EntityID:    "E1",
		Prediction:  int64(42),
		Explanation: "Predicted from last seen in swipe_logs at 2024-01-01 09:00:00",
	}}

	rr := serve(newActivityMux(svc), http.MethodPost, "/predict", `{"entity_id":"E1"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"entity_id":"E1","prediction":42,"explanation":"Predicted from last seen in swipe_logs at 2024-01-01 09:00:00"}`,
		rr.Body.String())
}

func TestActivityHandler_Predict_BadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `entity_id=E1`, "invalid_request_body"},
		{"missing entity", `{"timestamp":"2024-01-01T10:00:00"}`, "invalid_argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockActivityService{}

			rr := serve(newActivityMux(svc), http.MethodPost, "/predict", tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr)["error"])
			assert.Zero(t, svc.calls)
		})
	}
}

func TestActivityHandler_Predict_WrongMethod(t *testing.T) {
	rr := serve(newActivityMux(&mockActivityService{}), http.MethodGet, "/predict", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestActivityHandler_Schema(t *testing.T) {
	svc := &mockActivityService{summary: models.SchemaSummary{
		"swipe_logs": {Columns: []string{"id", "entity_id"}, Count: 2, Sample: []models.Record{}},
	}}

	rr := serve(newActivityMux(svc), http.MethodGet, "/schema", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, services.DefaultSampleRows, svc.gotSample)
	assert.JSONEq(t, `{"swipe_logs":{"columns":["id","entity_id"],"count":2,"sample":[]}}`, rr.Body.String())
}

func TestActivityHandler_Schema_SampleRows(t *testing.T) {
	svc := &mockActivityService{}

	rr := serve(newActivityMux(svc), http.MethodGet, "/schema?sample_rows=0", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, svc.gotSample)
	assert.JSONEq(t, `{}`, rr.Body.String())
}

func TestActivityHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "connection",
			err:     fmt.Errorf("%w: unable to open database file", apperrors.ErrConnection),
			status:  http.StatusInternalServerError,
			code:    "database_connection_error",
			message: "Database connection error: unable to open database file",
		},
		{
			name:    "query",
			err:     errors.New("search_entities query failed: no such function: ILIKE"),
			status:  http.StatusInternalServerError,
			code:    "internal_error",
			message: "search_entities query failed: no such function: ILIKE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockActivityService{err: tt.err}

			rr := serve(newActivityMux(svc), http.MethodGet, "/search?q=ann", "")

			assert.Equal(t, tt.status, rr.Code)
			body := decodeError(t, rr)
			assert.Equal(t, tt.code, body["error"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}
