package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type traineeRepoStub struct {
	trainees map[string]models.Trainee
	reviews  map[string]models.ReviewStatus
}

func newTraineeRepoStub() *traineeRepoStub {
	return &traineeRepoStub{trainees: map[string]models.Trainee{}, reviews: map[string]models.ReviewStatus{}}
}

func (s *traineeRepoStub) List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error) {
	if filter.Page > 1 {
		return nil, len(s.trainees), nil
	}
	out := make([]models.Trainee, 0, len(s.trainees))
	for _, t := range s.trainees {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (s *traineeRepoStub) FindByID(ctx context.Context, id string) (*models.Trainee, error) {
	if t, ok := s.trainees[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *traineeRepoStub) Create(ctx context.Context, trainee *models.Trainee) error {
	if trainee.ID == "" {
		trainee.ID = "t1"
	}
	s.trainees[trainee.ID] = *trainee
	return nil
}

func (s *traineeRepoStub) Update(ctx context.Context, trainee *models.Trainee) error {
	s.trainees[trainee.ID] = *trainee
	return nil
}

func (s *traineeRepoStub) SetReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	if _, ok := s.trainees[id]; !ok {
		return sql.ErrNoRows
	}
	s.reviews[id] = status
	return nil
}

func (s *traineeRepoStub) Summary(ctx context.Context) (*models.TraineeSummary, error) {
	return &models.TraineeSummary{Total: len(s.trainees)}, nil
}

type recommendationReaderStub struct {
	present map[string]bool
}

func (s *recommendationReaderStub) Get(ctx context.Context, traineeID string) (*models.Recommendation, error) {
	if s.present[traineeID] {
		return &models.Recommendation{TraineeID: traineeID, Text: "keep"}, nil
	}
	return nil, nil
}

type auditorStub struct {
	logs []models.AuditLog
}

func (s *auditorStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, *log)
	return nil
}

func TestTraineeListAnnotatesRecommendationPresence(t *testing.T) {
	repo := newTraineeRepoStub()
	repo.trainees["t1"] = models.Trainee{ID: "t1", Name: "John"}
	recs := &recommendationReaderStub{present: map[string]bool{"t1": true}}
	svc := NewTraineeService(repo, recs, nil, nil, nil)

	rows, pagination, err := svc.List(context.Background(), models.TraineeFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].HasRecommendation)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestTraineeReviewRecordsDecisionAndAudit(t *testing.T) {
	repo := newTraineeRepoStub()
	repo.trainees["t1"] = models.Trainee{ID: "t1", Name: "John"}
	audits := &auditorStub{}
	svc := NewTraineeService(repo, nil, audits, nil, nil)

	require.NoError(t, svc.Review(context.Background(), "t1", models.ReviewApproved, "admin-1"))
	assert.Equal(t, models.ReviewApproved, repo.reviews["t1"])
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionApproveTrainee, audits.logs[0].Action)

	require.NoError(t, svc.Review(context.Background(), "t1", models.ReviewDenied, "admin-1"))
	require.Len(t, audits.logs, 2)
	assert.Equal(t, models.AuditActionDenyTrainee, audits.logs[1].Action)
}

func TestTraineeReviewRejectsPendingAsDecision(t *testing.T) {
	svc := NewTraineeService(newTraineeRepoStub(), nil, nil, nil, nil)

	err := svc.Review(context.Background(), "t1", models.ReviewPending, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTraineeReviewMissingTraineeIsNotFound(t *testing.T) {
	svc := NewTraineeService(newTraineeRepoStub(), nil, nil, nil, nil)

	err := svc.Review(context.Background(), "ghost", models.ReviewApproved, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTraineeExportBuildsDataset(t *testing.T) {
	repo := newTraineeRepoStub()
	repo.trainees["t1"] = models.Trainee{ID: "t1", Name: "John", Progress: 40, ReviewStatus: models.ReviewPending}
	svc := NewTraineeService(repo, nil, nil, nil, nil)

	dataset, err := svc.Export(context.Background(), models.TraineeFilter{})
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "John", dataset.Rows[0]["Name"])
	assert.Equal(t, "40", dataset.Rows[0]["Progress"])
}

func TestRecommendationSaveAndGetWithRelativeTime(t *testing.T) {
	trainees := newTraineeRepoStub()
	trainees.trainees["t1"] = models.Trainee{ID: "t1", Name: "John"}
	store := &recommendationStoreStub{}
	svc := NewRecommendationService(store, trainees, nil, nil)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	saved, err := svc.Save(context.Background(), "t1", SaveRecommendationRequest{Text: "  Promote  "})
	require.NoError(t, err)
	assert.Equal(t, "Promote", saved.Text)

	svc.now = fixedClock("2026-08-28T10:05:00Z")
	got, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "5min ago", got.RelativeTime)
}

func TestRecommendationSaveEmptyTextClears(t *testing.T) {
	trainees := newTraineeRepoStub()
	trainees.trainees["t1"] = models.Trainee{ID: "t1", Name: "John"}
	store := &recommendationStoreStub{}
	svc := NewRecommendationService(store, trainees, nil, nil)

	_, err := svc.Save(context.Background(), "t1", SaveRecommendationRequest{Text: "keep"})
	require.NoError(t, err)

	cleared, err := svc.Save(context.Background(), "t1", SaveRecommendationRequest{Text: "   "})
	require.NoError(t, err)
	assert.Nil(t, cleared)
	assert.True(t, store.deleted)
}

func TestRecommendationSaveUnknownTrainee(t *testing.T) {
	svc := NewRecommendationService(&recommendationStoreStub{}, newTraineeRepoStub(), nil, nil)

	_, err := svc.Save(context.Background(), "ghost", SaveRecommendationRequest{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type recommendationStoreStub struct {
	text      string
	updatedAt string
	deleted   bool
}

func (s *recommendationStoreStub) Save(ctx context.Context, traineeID, text, updatedAt string) error {
	s.text = text
	s.updatedAt = updatedAt
	s.deleted = false
	return nil
}

func (s *recommendationStoreStub) Get(ctx context.Context, traineeID string) (*models.Recommendation, error) {
	if s.deleted || s.text == "" {
		return nil, nil
	}
	return &models.Recommendation{TraineeID: traineeID, Text: s.text, UpdatedAt: s.updatedAt}, nil
}

func (s *recommendationStoreStub) Delete(ctx context.Context, traineeID string) error {
	s.deleted = true
	s.text = ""
	return nil
}
