package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type assessmentRepoStub struct {
	assessments map[string]models.Assessment
	questions   map[string][]models.AssessmentQuestion
	attempts    map[string]models.AssessmentAttempt
	clock       func() time.Time
}

func newAssessmentRepoStub() *assessmentRepoStub {
	return &assessmentRepoStub{
		assessments: map[string]models.Assessment{},
		questions:   map[string][]models.AssessmentQuestion{},
		attempts:    map[string]models.AssessmentAttempt{},
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *assessmentRepoStub) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int, error) {
	out := make([]models.Assessment, 0, len(s.assessments))
	for _, a := range s.assessments {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (s *assessmentRepoStub) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	if a, ok := s.assessments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assessmentRepoStub) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = "a1"
	}
	s.assessments[assessment.ID] = *assessment
	return nil
}

func (s *assessmentRepoStub) Update(ctx context.Context, assessment *models.Assessment) error {
	if _, ok := s.assessments[assessment.ID]; !ok {
		return sql.ErrNoRows
	}
	s.assessments[assessment.ID] = *assessment
	return nil
}

func (s *assessmentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.assessments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.assessments, id)
	return nil
}

func (s *assessmentRepoStub) ReplaceQuestions(ctx context.Context, assessmentID string, questions []models.AssessmentQuestion) error {
	s.questions[assessmentID] = questions
	return nil
}

func (s *assessmentRepoStub) ListQuestions(ctx context.Context, assessmentID string) ([]models.AssessmentQuestion, error) {
	return s.questions[assessmentID], nil
}

func (s *assessmentRepoStub) CreateAttempt(ctx context.Context, attempt *models.AssessmentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = "at1"
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *assessmentRepoStub) FindAttemptByID(ctx context.Context, id string) (*models.AssessmentAttempt, error) {
	if a, ok := s.attempts[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assessmentRepoStub) FindActiveAttempt(ctx context.Context, assessmentID, traineeID string) (*models.AssessmentAttempt, error) {
	for _, a := range s.attempts {
		if a.AssessmentID == assessmentID && a.TraineeID == traineeID && a.Status == models.AttemptInProgress {
			found := a
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *assessmentRepoStub) ListAttempts(ctx context.Context, assessmentID string) ([]models.AssessmentAttempt, error) {
	out := []models.AssessmentAttempt{}
	for _, a := range s.attempts {
		if a.AssessmentID == assessmentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *assessmentRepoStub) SubmitAnswer(ctx context.Context, attemptID, answer string, submittedAt time.Time) error {
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != models.AttemptInProgress {
		return sql.ErrNoRows
	}
	a.Status = models.AttemptSubmitted
	a.Answer = &answer
	a.SubmittedAt = &submittedAt
	s.attempts[attemptID] = a
	return nil
}

func (s *assessmentRepoStub) IncrementViolations(ctx context.Context, attemptID string) (int, error) {
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != models.AttemptInProgress {
		return 0, nil
	}
	a.Violations++
	s.attempts[attemptID] = a
	return a.Violations, nil
}

func (s *assessmentRepoStub) SetScore(ctx context.Context, attemptID string, score int, gradedBy string) error {
	a, ok := s.attempts[attemptID]
	if !ok {
		return sql.ErrNoRows
	}
	a.Score = &score
	a.GradedBy = &gradedBy
	s.attempts[attemptID] = a
	return nil
}

func (s *assessmentRepoStub) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	for id, a := range s.attempts {
		if a.Status == models.AttemptInProgress && a.Deadline.Before(now) {
			a.Status = models.AttemptExpired
			sentinel := models.TimeExpiredAnswer
			a.Answer = &sentinel
			deadline := a.Deadline
			a.SubmittedAt = &deadline
			s.attempts[id] = a
			expired++
		}
	}
	return expired, nil
}

func (s *assessmentRepoStub) Results(ctx context.Context, assessmentID string) (*models.AssessmentResults, error) {
	results := &models.AssessmentResults{AssessmentID: assessmentID}
	var total int
	for _, a := range s.attempts {
		if a.AssessmentID != assessmentID {
			continue
		}
		results.Attempts++
		if a.Score != nil {
			results.Graded++
			total += *a.Score
		}
	}
	if results.Graded > 0 {
		results.AverageScore = float64(total) / float64(results.Graded)
	}
	return results, nil
}

func (s *assessmentRepoStub) Stats(ctx context.Context) (*models.AssessmentStats, error) {
	stats := &models.AssessmentStats{Total: len(s.assessments)}
	for _, a := range s.attempts {
		stats.Attempts++
		if a.Score != nil {
			stats.Graded++
		}
		if a.Status == models.AttemptInProgress {
			stats.InFlight++
		}
	}
	return stats, nil
}

func newTestAssessmentService(t *testing.T) (*AssessmentService, *assessmentRepoStub) {
	t.Helper()
	repo := newAssessmentRepoStub()
	svc := NewAssessmentService(repo, nil, nil, 10*time.Minute)
	return svc, repo
}

func seedAssessment(repo *assessmentRepoStub, timeLimitSec int) {
	repo.assessments["a1"] = models.Assessment{
		ID:           "a1",
		Title:        "Doctrine Test",
		Type:         models.AssessmentTest,
		TrainingType: "Minister",
		TimeLimitSec: timeLimitSec,
	}
}

func TestAssessmentStartAttemptSetsDeadline(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	attempt, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, attempt.Status)
	assert.Equal(t, 30*time.Minute, attempt.Deadline.Sub(attempt.StartedAt))
}

func TestAssessmentStartAttemptResumesActive(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	first, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)

	second, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAssessmentSubmitAnswerBeforeDeadline(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	attempt, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)

	svc.now = fixedClock("2026-08-28T10:10:00Z")
	submitted, err := svc.SubmitAnswer(context.Background(), attempt.ID, SubmitAnswerRequest{Answer: "my essay"})
	require.NoError(t, err)
	assert.Equal(t, models.AttemptSubmitted, submitted.Status)
	require.NotNil(t, submitted.Answer)
	assert.Equal(t, "my essay", *submitted.Answer)
}

func TestAssessmentSubmitAfterDeadlineStoresSentinel(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 60)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	attempt, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)

	svc.now = fixedClock("2026-08-28T10:05:00Z")
	_, err = svc.SubmitAnswer(context.Background(), attempt.ID, SubmitAnswerRequest{Answer: "too late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAttemptSubmitted.Code, appErrors.FromError(err).Code)

	stored := repo.attempts[attempt.ID]
	assert.Equal(t, models.AttemptExpired, stored.Status)
	require.NotNil(t, stored.Answer)
	assert.Equal(t, models.TimeExpiredAnswer, *stored.Answer)
}

func TestAssessmentExpiryIsIdempotent(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 60)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	attempt, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)

	svc.now = fixedClock("2026-08-28T10:05:00Z")
	expired, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	// A second sweep finds nothing left to expire.
	expired, err = svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)

	stored := repo.attempts[attempt.ID]
	assert.Equal(t, models.AttemptExpired, stored.Status)
}

func TestAssessmentViolationIgnoredAfterSubmission(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	attempt, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)

	count, err := svc.RecordViolation(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.SubmitAnswer(context.Background(), attempt.ID, SubmitAnswerRequest{Answer: "done"})
	require.NoError(t, err)

	count, err = svc.RecordViolation(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, repo.attempts[attempt.ID].Violations)
}

func TestAssessmentScoreRequiresFinishedAttempt(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)
	svc.now = fixedClock("2026-08-28T10:00:00Z")

	attempt, err := svc.StartAttempt(context.Background(), "a1", "t1")
	require.NoError(t, err)

	_, err = svc.Score(context.Background(), attempt.ID, ScoreRequest{Score: 80}, "grader")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.SubmitAnswer(context.Background(), attempt.ID, SubmitAnswerRequest{Answer: "done"})
	require.NoError(t, err)

	graded, err := svc.Score(context.Background(), attempt.ID, ScoreRequest{Score: 80}, "grader")
	require.NoError(t, err)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 80, *graded.Score)
}

func TestAssessmentUploadQuestionsCSV(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)

	csvBody := "question\nExplain the doctrine of grace\nSummarise the book of Acts\n\n"
	questions, err := svc.UploadQuestionsCSV(context.Background(), "a1", strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].Position)
	assert.Equal(t, "Explain the doctrine of grace", questions[0].Prompt)
	assert.Equal(t, 2, questions[1].Position)
}

func TestAssessmentUploadQuestionsCSVEmpty(t *testing.T) {
	svc, repo := newTestAssessmentService(t)
	seedAssessment(repo, 1800)

	_, err := svc.UploadQuestionsCSV(context.Background(), "a1", strings.NewReader("question\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
