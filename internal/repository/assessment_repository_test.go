package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

func newAssessmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssessmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newAssessmentMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "type", "training_type", "time_limit_sec", "created_by", "created_at", "updated_at"}).
		AddRow("a1", "Doctrine Test", "TEST", "Minister", 1800, "u1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, type, training_type, time_limit_sec, created_by, created_at, updated_at FROM assessments WHERE 1=1 ORDER BY created_at DESC, id ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assessments WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assessments, total, err := repo.List(context.Background(), models.AssessmentFilter{})
	require.NoError(t, err)
	assert.Len(t, assessments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryCreateAttempt(t *testing.T) {
	db, mock, cleanup := newAssessmentMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectExec("INSERT INTO assessment_attempts").
		WithArgs(sqlmock.AnyArg(), "a1", "t1", models.AttemptInProgress, nil, nil, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	attempt := &models.AssessmentAttempt{
		AssessmentID: "a1",
		TraineeID:    "t1",
		Status:       models.AttemptInProgress,
		StartedAt:    now,
		Deadline:     now.Add(30 * time.Minute),
	}
	require.NoError(t, repo.CreateAttempt(context.Background(), attempt))
	assert.NotEmpty(t, attempt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositorySubmitAnswerRaceSafe(t *testing.T) {
	db, mock, cleanup := newAssessmentMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	// The expiry sweep got there first; zero rows means the attempt is no
	// longer in progress.
	mock.ExpectExec("UPDATE assessment_attempts SET status").
		WithArgs("at1", models.AttemptSubmitted, "my answer", sqlmock.AnyArg(), models.AttemptInProgress).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SubmitAnswer(context.Background(), "at1", "my answer", time.Now().UTC())
	assert.Error(t, err)
}

func TestAssessmentRepositoryIncrementViolationsAfterFinishIsDropped(t *testing.T) {
	db, mock, cleanup := newAssessmentMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectQuery("UPDATE assessment_attempts SET violations").
		WithArgs("at1", sqlmock.AnyArg(), models.AttemptInProgress).
		WillReturnRows(sqlmock.NewRows([]string{"violations"}))

	violations, err := repo.IncrementViolations(context.Background(), "at1")
	require.NoError(t, err)
	assert.Zero(t, violations)
}

func TestAssessmentRepositoryExpireOverdue(t *testing.T) {
	db, mock, cleanup := newAssessmentMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectExec("UPDATE assessment_attempts SET status").
		WithArgs(models.AttemptExpired, models.TimeExpiredAnswer, sqlmock.AnyArg(), models.AttemptInProgress).
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := repo.ExpireOverdue(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 3, expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryResults(t *testing.T) {
	db, mock, cleanup := newAssessmentMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "graded", "average_score"}).AddRow(5, 3, 72.5))

	results, err := repo.Results(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 5, results.Attempts)
	assert.Equal(t, 3, results.Graded)
	assert.InDelta(t, 72.5, results.AverageScore, 0.001)
}
