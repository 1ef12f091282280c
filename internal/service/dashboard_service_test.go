package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type dashboardTraineeStub struct {
	trainees []models.Trainee
	summary  models.TraineeSummary
}

func (s *dashboardTraineeStub) List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error) {
	if filter.Page > 1 {
		return nil, len(s.trainees), nil
	}
	return s.trainees, len(s.trainees), nil
}

func (s *dashboardTraineeStub) Summary(ctx context.Context) (*models.TraineeSummary, error) {
	summary := s.summary
	return &summary, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.entries == nil {
		return appErrors.ErrCacheMiss
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = map[string][]byte{}
	return nil
}

func TestDashboardSummaryComposesTiles(t *testing.T) {
	trainees := &dashboardTraineeStub{
		trainees: []models.Trainee{
			{ID: "t1", Name: "John"},
			{ID: "t2", Name: "Mary"},
		},
		summary: models.TraineeSummary{Total: 2, Pending: 2, ByType: map[string]int{"HOD": 2}},
	}
	forms := newFormRepoStub()
	forms.statuses[models.StatusKey(models.FormMentor, "John_t1")] = models.FormStatus{Status: models.FormStatusCompleted}

	svc := NewDashboardService(trainees, forms, nil, nil, nil, time.Minute)

	summary, cached, err := svc.Summary(context.Background(), models.RoleLeadership)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, models.RoleLeadership, summary.Role)
	assert.Equal(t, 2, summary.Trainees.Total)
	// Leadership submits mentor and department forms: one completed of four.
	assert.Equal(t, 1, summary.Appraisals.Completed)
	assert.Equal(t, 3, summary.Appraisals.Pending)
}

func TestDashboardSummaryUsesCacheOnSecondRead(t *testing.T) {
	trainees := &dashboardTraineeStub{summary: models.TraineeSummary{Total: 1}}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := NewDashboardService(trainees, newFormRepoStub(), nil, cache, nil, time.Minute)

	_, cached, err := svc.Summary(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = svc.Summary(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestDashboardSummaryRejectsUnknownRole(t *testing.T) {
	svc := NewDashboardService(&dashboardTraineeStub{}, newFormRepoStub(), nil, nil, nil, time.Minute)

	_, _, err := svc.Summary(context.Background(), models.Role("owner"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
