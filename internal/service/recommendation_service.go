package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/timeutil"
)

type recommendationRepository interface {
	Save(ctx context.Context, traineeID, text, updatedAt string) error
	Get(ctx context.Context, traineeID string) (*models.Recommendation, error)
	Delete(ctx context.Context, traineeID string) error
}

type recommendationTraineeSource interface {
	FindByID(ctx context.Context, id string) (*models.Trainee, error)
}

// SaveRecommendationRequest carries the recommendation text.
type SaveRecommendationRequest struct {
	Text string `json:"text" validate:"required"`
}

// RecommendationService manages superadmin recommendations on trainees.
type RecommendationService struct {
	recommendations recommendationRepository
	trainees        recommendationTraineeSource
	validator       *validator.Validate
	logger          *zap.Logger
	now             func() time.Time
}

// NewRecommendationService constructs a RecommendationService.
func NewRecommendationService(recommendations recommendationRepository, trainees recommendationTraineeSource, validate *validator.Validate, logger *zap.Logger) *RecommendationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RecommendationService{
		recommendations: recommendations,
		trainees:        trainees,
		validator:       validate,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the trainee's recommendation with a computed relative age, or
// nil when none has been written.
func (s *RecommendationService) Get(ctx context.Context, traineeID string) (*models.Recommendation, error) {
	rec, err := s.recommendations.Get(ctx, traineeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recommendation")
	}
	if rec == nil {
		return nil, nil
	}
	if rec.UpdatedAt != "" {
		rec.RelativeTime = timeutil.RelativeISO(rec.UpdatedAt, s.now())
	}
	return rec, nil
}

// Save writes the recommendation text and stamps its update time. The
// trainee must exist; empty text after trimming deletes the entry.
func (s *RecommendationService) Save(ctx context.Context, traineeID string, req SaveRecommendationRequest) (*models.Recommendation, error) {
	if _, err := s.trainees.FindByID(ctx, traineeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainee")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		if err := s.recommendations.Delete(ctx, traineeID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear recommendation")
		}
		return nil, nil
	}

	updatedAt := s.now().Format(time.RFC3339)
	if err := s.recommendations.Save(ctx, traineeID, text, updatedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store recommendation")
	}

	return &models.Recommendation{
		TraineeID: traineeID,
		Text:      text,
		UpdatedAt: updatedAt,
	}, nil
}
