package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/export"
)

type traineeRepository interface {
	List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error)
	FindByID(ctx context.Context, id string) (*models.Trainee, error)
	Create(ctx context.Context, trainee *models.Trainee) error
	Update(ctx context.Context, trainee *models.Trainee) error
	SetReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error
	Summary(ctx context.Context) (*models.TraineeSummary, error)
}

type recommendationReader interface {
	Get(ctx context.Context, traineeID string) (*models.Recommendation, error)
}

type traineeAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TraineeService implements trainee listing, review decisions and export.
type TraineeService struct {
	trainees        traineeRepository
	recommendations recommendationReader
	audits          traineeAuditor
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewTraineeService constructs a TraineeService.
func NewTraineeService(trainees traineeRepository, recommendations recommendationReader, audits traineeAuditor, validate *validator.Validate, logger *zap.Logger) *TraineeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TraineeService{trainees: trainees, recommendations: recommendations, audits: audits, validator: validate, logger: logger}
}

// List returns trainee rows annotated with recommendation presence.
func (s *TraineeService) List(ctx context.Context, filter models.TraineeFilter) ([]models.TraineeRow, *models.Pagination, error) {
	trainees, total, err := s.trainees.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainees")
	}

	rows := make([]models.TraineeRow, 0, len(trainees))
	for _, trainee := range trainees {
		row := models.TraineeRow{Trainee: trainee}
		if s.recommendations != nil {
			rec, err := s.recommendations.Get(ctx, trainee.ID)
			if err != nil {
				s.logger.Warn("failed to check recommendation", zap.String("trainee_id", trainee.ID), zap.Error(err))
			} else {
				row.HasRecommendation = rec != nil
			}
		}
		rows = append(rows, row)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single trainee.
func (s *TraineeService) Get(ctx context.Context, id string) (*models.Trainee, error) {
	trainee, err := s.trainees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainee")
	}
	return trainee, nil
}

// Create registers a trainee.
func (s *TraineeService) Create(ctx context.Context, trainee *models.Trainee) error {
	if err := s.validator.Struct(trainee); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid trainee payload")
	}
	if err := s.trainees.Create(ctx, trainee); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create trainee")
	}
	return nil
}

// Update edits an existing trainee.
func (s *TraineeService) Update(ctx context.Context, trainee *models.Trainee) error {
	existing, err := s.trainees.FindByID(ctx, trainee.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainee")
	}
	trainee.CreatedAt = existing.CreatedAt
	if trainee.ReviewStatus == "" {
		trainee.ReviewStatus = existing.ReviewStatus
	}
	if err := s.trainees.Update(ctx, trainee); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update trainee")
	}
	return nil
}

// Review records the superadmin approve/deny decision and audits it.
func (s *TraineeService) Review(ctx context.Context, traineeID string, status models.ReviewStatus, reviewerID string) error {
	if status != models.ReviewApproved && status != models.ReviewDenied {
		return appErrors.Clone(appErrors.ErrValidation, "review decision must be approved or denied")
	}

	if err := s.trainees.SetReviewStatus(ctx, traineeID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review decision")
	}

	action := models.AuditActionApproveTrainee
	if status == models.ReviewDenied {
		action = models.AuditActionDenyTrainee
	}
	if s.audits != nil {
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &reviewerID,
			Action:     action,
			Resource:   "trainee",
			ResourceID: &traineeID,
		}); err != nil {
			s.logger.Warn("failed to record review audit log", zap.Error(err))
		}
	}
	return nil
}

// Summary returns aggregate counts for dashboard tiles.
func (s *TraineeService) Summary(ctx context.Context) (*models.TraineeSummary, error) {
	summary, err := s.trainees.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise trainees")
	}
	return summary, nil
}

// Export renders the filtered trainee list as a CSV dataset.
func (s *TraineeService) Export(ctx context.Context, filter models.TraineeFilter) (*export.Dataset, error) {
	// Export covers the whole filtered set, not one page.
	filter.Page = 1
	filter.PageSize = 100

	dataset := &export.Dataset{
		Headers: []string{"ID", "Name", "Email", "Phone", "Training Type", "Installation", "Department", "Progress", "Review Status"},
	}

	for {
		trainees, total, err := s.trainees.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export trainees")
		}
		for _, t := range trainees {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"ID":            t.ID,
				"Name":          t.Name,
				"Email":         t.Email,
				"Phone":         t.Phone,
				"Training Type": t.TrainingType,
				"Installation":  t.Installation,
				"Department":    t.Department,
				"Progress":      strconv.Itoa(t.Progress),
				"Review Status": string(t.ReviewStatus),
			})
		}
		if len(dataset.Rows) >= total || len(trainees) == 0 {
			break
		}
		filter.Page++
	}
	return dataset, nil
}

// ExportFilename names the CSV download with the current UTC date.
func ExportFilename() string {
	return "trainees_" + time.Now().UTC().Format("20060102") + ".csv"
}
