package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/models"
	"github.com/ekaya-inc/campus-er/pkg/services"
)

// TimelineQuery holds the query parameters of GET /timeline.
type TimelineQuery struct {
	EntityID string `query:"entity_id" validate:"required"`
	From     string `query:"from"`
	To       string `query:"to"`
}

// SearchQuery holds the query parameters of GET /search.
type SearchQuery struct {
	Q string `query:"q" validate:"required,max=128"`
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	EntityID  string  `json:"entity_id" validate:"required"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// ActivityHandler serves the activity-log query endpoints.
type ActivityHandler struct {
	service services.ActivityService
	logger  *zap.Logger
}

// NewActivityHandler creates a handler over the activity service.
func NewActivityHandler(service services.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{service: service, logger: logger}
}

// RegisterRoutes registers the activity routes on the given mux.
func (h *ActivityHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /alerts", h.ListAlerts)
	mux.HandleFunc("GET /timeline", h.Timeline)
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("GET /schema", h.Schema)
}

// ListAlerts handles GET /alerts?entity_id=&hours=.
func (h *ActivityHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	hours, ok := parseIntQuery(w, r, "hours", services.DefaultAlertHours, h.logger)
	if !ok {
		return
	}
	entityID := strings.TrimSpace(r.URL.Query().Get("entity_id"))

	records, err := h.service.ListAlerts(r.Context(), entityID, hours)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	h.writeRecords(w, records)
}

// Timeline handles GET /timeline?entity_id=&from=&to=.
func (h *ActivityHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := TimelineQuery{
		EntityID: strings.TrimSpace(query.Get("entity_id")),
		From:     strings.TrimSpace(query.Get("from")),
		To:       strings.TrimSpace(query.Get("to")),
	}
	if !validateRequest(w, &req, h.logger) {
		return
	}

	records, err := h.service.Timeline(r.Context(), req.EntityID, req.From, req.To)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	h.writeRecords(w, records)
}

// Search handles GET /search?q=.
func (h *ActivityHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := SearchQuery{Q: r.URL.Query().Get("q")}
	if !validateRequest(w, &req, h.logger) {
		return
	}

	records, err := h.service.SearchEntities(r.Context(), req.Q)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	h.writeRecords(w, records)
}

// Predict handles POST /predict.
func (h *ActivityHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Request body must be a JSON object"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	req.EntityID = strings.TrimSpace(req.EntityID)
	if !validateRequest(w, &req, h.logger) {
		return
	}

	var timestamp string
	if req.Timestamp != nil {
		timestamp = strings.TrimSpace(*req.Timestamp)
	}

	prediction, err := h.service.PredictState(r.Context(), req.EntityID, timestamp)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if err := WriteJSON(w, http.StatusOK, prediction); err != nil {
		h.logger.Error("Failed to encode prediction", zap.Error(err))
	}
}

// Schema handles GET /schema?sample_rows=.
func (h *ActivityHandler) Schema(w http.ResponseWriter, r *http.Request) {
	sampleRows, ok := parseIntQuery(w, r, "sample_rows", services.DefaultSampleRows, h.logger)
	if !ok {
		return
	}

	summary, err := h.service.SchemaSummary(r.Context(), sampleRows)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if summary == nil {
		summary = models.SchemaSummary{}
	}
	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to encode schema summary", zap.Error(err))
	}
}

func (h *ActivityHandler) writeRecords(w http.ResponseWriter, records []models.Record) {
	if records == nil {
		records = []models.Record{}
	}
	if err := WriteJSON(w, http.StatusOK, records); err != nil {
		h.logger.Error("Failed to encode records", zap.Error(err))
	}
}
