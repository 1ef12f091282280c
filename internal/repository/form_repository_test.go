package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestFormRepositorySaveAndGetSubmission(t *testing.T) {
	client := newTestRedis(t)
	repo := NewFormRepository(client, nil)
	ctx := context.Background()

	submission := models.FormSubmission{
		Fields:      map[string]string{"q1": "excellent"},
		SubjectName: "John",
		SubmittedAt: "2026-08-28T10:00:00Z",
		SubmittedBy: models.RoleAdmin,
		FormType:    models.FormMentor,
	}
	status := models.FormStatus{
		Status:       models.FormStatusCompleted,
		CompletedAt:  "2026-08-28T10:00:00Z",
		LastModified: "2026-08-28T10:00:00Z",
	}
	require.NoError(t, repo.SaveSubmission(ctx, models.FormMentor, "John_t1", submission, status))

	got, err := repo.GetSubmission(ctx, models.FormMentor, "John_t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "excellent", got.Fields["q1"])
	assert.Equal(t, models.RoleAdmin, got.SubmittedBy)

	gotStatus, err := repo.GetStatus(ctx, models.FormMentor, "John_t1")
	require.NoError(t, err)
	assert.Equal(t, models.FormStatusCompleted, gotStatus.Status)
	assert.Equal(t, "2026-08-28T10:00:00Z", gotStatus.CompletedAt)
}

func TestFormRepositoryGetSubmissionAbsent(t *testing.T) {
	client := newTestRedis(t)
	repo := NewFormRepository(client, nil)

	got, err := repo.GetSubmission(context.Background(), models.FormHOI, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFormRepositoryGetStatusDefaultsToPending(t *testing.T) {
	client := newTestRedis(t)
	repo := NewFormRepository(client, nil)

	status, err := repo.GetStatus(context.Background(), models.FormCentral, "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.FormStatusPending, status.Status)
	assert.Empty(t, status.CompletedAt)
}

func TestFormRepositoryBatchStatuses(t *testing.T) {
	client := newTestRedis(t)
	repo := NewFormRepository(client, nil)
	ctx := context.Background()

	submission := models.FormSubmission{SubjectName: "John", FormType: models.FormMentor}
	status := models.FormStatus{Status: models.FormStatusCompleted, CompletedAt: "2026-08-28T10:00:00Z"}
	require.NoError(t, repo.SaveSubmission(ctx, models.FormMentor, "John_t1", submission, status))

	statuses, err := repo.BatchStatuses(ctx, models.FormMentor, []string{"John_t1", "Mary_t2"})
	require.NoError(t, err)
	assert.Equal(t, models.FormStatusCompleted, statuses["John_t1"].Status)
	assert.Equal(t, models.FormStatusPending, statuses["Mary_t2"].Status)
}

func TestFormRepositoryBatchStatusesEmptyInput(t *testing.T) {
	client := newTestRedis(t)
	repo := NewFormRepository(client, nil)

	statuses, err := repo.BatchStatuses(context.Background(), models.FormDepartment, nil)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestRecommendationRepositoryRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRecommendationRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "t1", "Promote to team lead", "2026-08-28T10:00:00Z"))

	rec, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Promote to team lead", rec.Text)
	assert.Equal(t, "2026-08-28T10:00:00Z", rec.UpdatedAt)

	require.NoError(t, repo.Delete(ctx, "t1"))
	rec, err = repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecommendationRepositoryGetAbsent(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRecommendationRepository(client)

	rec, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecommendationRepositoryLegacyEntryWithoutDate(t *testing.T) {
	client := newTestRedis(t)
	repo := NewRecommendationRepository(client)
	ctx := context.Background()

	// Text written directly without a date key, as older exports did.
	require.NoError(t, client.Set(ctx, models.RecommendationKey("t9"), "Needs mentoring", 0).Err())

	rec, err := repo.Get(ctx, "t9")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Needs mentoring", rec.Text)
	assert.Empty(t, rec.UpdatedAt)
}
