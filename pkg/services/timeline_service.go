package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/audit"
	"github.com/ekaya-inc/campus-er/pkg/logging"
	"github.com/ekaya-inc/campus-er/pkg/metrics"
	"github.com/ekaya-inc/campus-er/pkg/models"
	"github.com/ekaya-inc/campus-er/pkg/repositories"
)

const OpCanonicalTimeline = "canonical_timeline"

// TimelineService serves resolved, cross-source timelines of canonical entities.
type TimelineService interface {
	// GetCanonicalTimeline returns apperrors.ErrNotFound when no event maps to canonicalID.
	GetCanonicalTimeline(ctx context.Context, canonicalID string) (*models.CanonicalTimeline, error)
}

type timelineService struct {
	repo    repositories.TimelineRepository
	auditor audit.Auditor
	logger  *zap.Logger
}

func NewTimelineService(repo repositories.TimelineRepository, auditor audit.Auditor, logger *zap.Logger) TimelineService {
	if auditor == nil {
		auditor = audit.NopAuditor{}
	}
	return &timelineService{
		repo:    repo,
		auditor: auditor,
		logger:  logger.Named("timeline-service"),
	}
}

var _ TimelineService = (*timelineService)(nil)

func (s *timelineService) GetCanonicalTimeline(ctx context.Context, canonicalID string) (_ *models.CanonicalTimeline, err error) {
	if strings.TrimSpace(canonicalID) == "" {
		msg := "canonical_id is required"
		s.auditor.LogParameterValidation(ctx, OpCanonicalTimeline, msg)
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidArgument, msg)
	}
	s.auditor.InspectInputs(ctx, OpCanonicalTimeline, audit.Input{Name: "canonical_id", Value: canonicalID})

	start := time.Now()
	defer func() {
		metrics.RecordQuery(OpCanonicalTimeline, time.Since(start), err)
	}()

	events, err := s.repo.GetCanonicalTimeline(ctx, canonicalID)
	if err != nil {
		s.logger.Error("Failed to load canonical timeline",
			zap.String("canonical_id", canonicalID),
			zap.String("request_id", logging.RequestIDFromContext(ctx)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("canonical entity %q: %w", canonicalID, apperrors.ErrNotFound)
	}

	return &models.CanonicalTimeline{
		CanonicalEntityID: canonicalID,
		Timeline:          events,
	}, nil
}
