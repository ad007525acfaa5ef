package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/services"
)

// TimelineHandler serves canonical (entity-resolved) timelines.
type TimelineHandler struct {
	service services.TimelineService
	logger  *zap.Logger
}

// NewTimelineHandler creates a handler over the canonical timeline service.
func NewTimelineHandler(service services.TimelineService, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{service: service, logger: logger}
}

// RegisterRoutes registers GET /timeline/{canonical_id}.
func (h *TimelineHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /timeline/{canonical_id}", h.GetCanonicalTimeline)
}

// GetCanonicalTimeline returns every unified event mapped to the canonical entity.
func (h *TimelineHandler) GetCanonicalTimeline(w http.ResponseWriter, r *http.Request) {
	canonicalID := strings.TrimSpace(r.PathValue("canonical_id"))

	timeline, err := h.service.GetCanonicalTimeline(r.Context(), canonicalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Canonical entity not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, timeline); err != nil {
		h.logger.Error("Failed to encode canonical timeline", zap.Error(err))
	}
}
