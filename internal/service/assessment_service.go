package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type assessmentRepository interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int, error)
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id string) error
	ReplaceQuestions(ctx context.Context, assessmentID string, questions []models.AssessmentQuestion) error
	ListQuestions(ctx context.Context, assessmentID string) ([]models.AssessmentQuestion, error)
	CreateAttempt(ctx context.Context, attempt *models.AssessmentAttempt) error
	FindAttemptByID(ctx context.Context, id string) (*models.AssessmentAttempt, error)
	FindActiveAttempt(ctx context.Context, assessmentID, traineeID string) (*models.AssessmentAttempt, error)
	ListAttempts(ctx context.Context, assessmentID string) ([]models.AssessmentAttempt, error)
	SubmitAnswer(ctx context.Context, attemptID, answer string, submittedAt time.Time) error
	IncrementViolations(ctx context.Context, attemptID string) (int, error)
	SetScore(ctx context.Context, attemptID string, score int, gradedBy string) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	Results(ctx context.Context, assessmentID string) (*models.AssessmentResults, error)
}

// CreateAssessmentRequest carries assessment metadata plus inline questions.
type CreateAssessmentRequest struct {
	Title        string                `json:"title" validate:"required"`
	Type         models.AssessmentType `json:"type" validate:"required"`
	TrainingType string                `json:"training_type" validate:"required"`
	TimeLimitSec int                   `json:"time_limit_sec" validate:"omitempty,min=30"`
	Questions    []string              `json:"questions"`
}

// SubmitAnswerRequest carries a trainee's answer.
type SubmitAnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// ScoreRequest carries a grading decision.
type ScoreRequest struct {
	Score int `json:"score" validate:"min=0,max=100"`
}

// AssessmentWithQuestions is the detail payload.
type AssessmentWithQuestions struct {
	models.Assessment
	Questions []models.AssessmentQuestion `json:"questions"`
}

// AssessmentService implements assessment management and the timed attempt
// lifecycle.
type AssessmentService struct {
	repo             assessmentRepository
	validator        *validator.Validate
	logger           *zap.Logger
	metrics          *MetricsService
	defaultTimeLimit time.Duration
	now              func() time.Time
}

// WithMetrics attaches a metrics sink for expiry counters.
func (s *AssessmentService) WithMetrics(metrics *MetricsService) *AssessmentService {
	s.metrics = metrics
	return s
}

// NewAssessmentService constructs an AssessmentService.
func NewAssessmentService(repo assessmentRepository, validate *validator.Validate, logger *zap.Logger, defaultTimeLimit time.Duration) *AssessmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaultTimeLimit <= 0 {
		defaultTimeLimit = 10 * time.Minute
	}
	return &AssessmentService{
		repo:             repo,
		validator:        validate,
		logger:           logger,
		defaultTimeLimit: defaultTimeLimit,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// List returns assessments matching the filter.
func (s *AssessmentService) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, *models.Pagination, error) {
	assessments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return assessments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an assessment with its ordered questions.
func (s *AssessmentService) Get(ctx context.Context, id string) (*AssessmentWithQuestions, error) {
	assessment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	questions, err := s.repo.ListQuestions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	return &AssessmentWithQuestions{Assessment: *assessment, Questions: questions}, nil
}

// Create registers an assessment with its inline question set.
func (s *AssessmentService) Create(ctx context.Context, req CreateAssessmentRequest, createdBy string) (*AssessmentWithQuestions, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assessment type")
	}

	timeLimit := req.TimeLimitSec
	if timeLimit <= 0 {
		timeLimit = int(s.defaultTimeLimit.Seconds())
	}

	assessment := &models.Assessment{
		Title:        req.Title,
		Type:         req.Type,
		TrainingType: req.TrainingType,
		TimeLimitSec: timeLimit,
		CreatedBy:    createdBy,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}

	questions := promptsToQuestions(assessment.ID, req.Questions)
	if len(questions) > 0 {
		if err := s.repo.ReplaceQuestions(ctx, assessment.ID, questions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store questions")
		}
	}
	return &AssessmentWithQuestions{Assessment: *assessment, Questions: questions}, nil
}

// UploadQuestionsCSV replaces the question set from a CSV upload. The first
// column of each row is the prompt; a leading header row named "prompt" or
// "question" is skipped.
func (s *AssessmentService) UploadQuestionsCSV(ctx context.Context, assessmentID string, r io.Reader) ([]models.AssessmentQuestion, error) {
	if _, err := s.repo.FindByID(ctx, assessmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var prompts []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed csv upload")
		}
		if len(record) == 0 {
			continue
		}
		prompt := strings.TrimSpace(record[0])
		if prompt == "" {
			continue
		}
		if len(prompts) == 0 {
			switch strings.ToLower(prompt) {
			case "prompt", "question", "questions":
				continue
			}
		}
		prompts = append(prompts, prompt)
	}
	if len(prompts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv contains no questions")
	}

	questions := promptsToQuestions(assessmentID, prompts)
	if err := s.repo.ReplaceQuestions(ctx, assessmentID, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store questions")
	}
	return questions, nil
}

// Delete removes an assessment and everything hanging off it.
func (s *AssessmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment")
	}
	return nil
}

// StartAttempt begins a timed attempt. An unexpired in-progress attempt is
// resumed rather than duplicated; the deadline is fixed at start time.
func (s *AssessmentService) StartAttempt(ctx context.Context, assessmentID, traineeID string) (*models.AssessmentAttempt, error) {
	assessment, err := s.repo.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}

	now := s.now()
	if existing, err := s.repo.FindActiveAttempt(ctx, assessmentID, traineeID); err == nil {
		if now.Before(existing.Deadline) {
			return existing, nil
		}
		s.lazyExpire(ctx, now)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active attempt")
	}

	attempt := &models.AssessmentAttempt{
		AssessmentID: assessmentID,
		TraineeID:    traineeID,
		Status:       models.AttemptInProgress,
		StartedAt:    now,
		Deadline:     now.Add(time.Duration(assessment.TimeLimitSec) * time.Second),
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start attempt")
	}
	return attempt, nil
}

// SubmitAnswer records the trainee's answer before the deadline. Past the
// deadline the attempt expires with the sentinel answer instead; a second
// submit on a finished attempt is a conflict.
func (s *AssessmentService) SubmitAnswer(ctx context.Context, attemptID string, req SubmitAnswerRequest) (*models.AssessmentAttempt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answer payload")
	}

	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Finished() {
		return nil, appErrors.Clone(appErrors.ErrAttemptSubmitted, "")
	}

	now := s.now()
	if now.After(attempt.Deadline) {
		s.lazyExpire(ctx, now)
		return nil, appErrors.Clone(appErrors.ErrAttemptSubmitted, "time expired before submission")
	}

	if err := s.repo.SubmitAnswer(ctx, attemptID, req.Answer, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The expiry sweep finished the attempt between our read and
			// this write.
			return nil, appErrors.Clone(appErrors.ErrAttemptSubmitted, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit answer")
	}
	return s.loadAttempt(ctx, attemptID)
}

// RecordViolation counts a focus-loss signal on a running attempt. Signals
// arriving after the attempt finished are dropped without error.
func (s *AssessmentService) RecordViolation(ctx context.Context, attemptID string) (int, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	if attempt.Finished() {
		return attempt.Violations, nil
	}
	if s.now().After(attempt.Deadline) {
		s.lazyExpire(ctx, s.now())
		return attempt.Violations, nil
	}

	violations, err := s.repo.IncrementViolations(ctx, attemptID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record violation")
	}
	if violations == 0 {
		// Dropped by the in-progress guard; report the last known count.
		return attempt.Violations, nil
	}
	return violations, nil
}

// Score grades a finished attempt.
func (s *AssessmentService) Score(ctx context.Context, attemptID string, req ScoreRequest, gradedBy string) (*models.AssessmentAttempt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.Finished() {
		if s.now().After(attempt.Deadline) {
			s.lazyExpire(ctx, s.now())
		} else {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attempt is still in progress")
		}
	}

	if err := s.repo.SetScore(ctx, attemptID, req.Score, gradedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record score")
	}
	return s.loadAttempt(ctx, attemptID)
}

// ListAttempts returns attempts for an assessment, applying lazy expiry so
// callers never see an in-progress attempt past its deadline.
func (s *AssessmentService) ListAttempts(ctx context.Context, assessmentID string) ([]models.AssessmentAttempt, error) {
	s.lazyExpire(ctx, s.now())
	attempts, err := s.repo.ListAttempts(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	return attempts, nil
}

// Results summarises graded attempts for an assessment.
func (s *AssessmentService) Results(ctx context.Context, assessmentID string) (*models.AssessmentResults, error) {
	assessment, err := s.repo.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}

	s.lazyExpire(ctx, s.now())
	results, err := s.repo.Results(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	results.Title = assessment.Title
	return results, nil
}

// ExpireOverdue finalises overdue attempts. Used by the background sweeper;
// safe to call repeatedly.
func (s *AssessmentService) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire attempts")
	}
	if expired > 0 {
		s.logger.Info("expired overdue attempts", zap.Int64("count", expired))
		if s.metrics != nil {
			s.metrics.AttemptsExpired(expired)
		}
	}
	return expired, nil
}

// StartSweeper runs the expiry sweep on an interval until the context ends.
func (s *AssessmentService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.ExpireOverdue(ctx); err != nil {
					s.logger.Warn("attempt expiry sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *AssessmentService) loadAttempt(ctx context.Context, attemptID string) (*models.AssessmentAttempt, error) {
	attempt, err := s.repo.FindAttemptByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	return attempt, nil
}

func (s *AssessmentService) lazyExpire(ctx context.Context, now time.Time) {
	if _, err := s.repo.ExpireOverdue(ctx, now); err != nil {
		s.logger.Warn("lazy attempt expiry failed", zap.Error(err))
	}
}

func promptsToQuestions(assessmentID string, prompts []string) []models.AssessmentQuestion {
	questions := make([]models.AssessmentQuestion, 0, len(prompts))
	for i, prompt := range prompts {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			continue
		}
		questions = append(questions, models.AssessmentQuestion{
			AssessmentID: assessmentID,
			Position:     i + 1,
			Prompt:       prompt,
		})
	}
	return questions
}
