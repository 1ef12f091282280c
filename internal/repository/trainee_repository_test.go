package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

func newTraineeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func traineeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "phone", "training_type", "installation", "department", "progress", "review_status", "created_at", "updated_at"}).
		AddRow("t1", "Ade", "ade@example.com", "+2348001", "HOD", "Kwasu", "Choir", 40, "pending", time.Now(), time.Now())
}

func TestTraineeRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newTraineeMock(t)
	defer cleanup()
	repo := NewTraineeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, phone, training_type, installation, department, progress, review_status, created_at, updated_at FROM trainees WHERE 1=1 ORDER BY installation ASC, id ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(traineeRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM trainees WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	trainees, total, err := repo.List(context.Background(), models.TraineeFilter{})
	require.NoError(t, err)
	assert.Len(t, trainees, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraineeRepositoryListFacetsAndSearch(t *testing.T) {
	db, mock, cleanup := newTraineeMock(t)
	defer cleanup()
	repo := NewTraineeRepository(db)

	mock.ExpectQuery("SELECT id, name, email, phone, training_type, installation, department, progress, review_status, created_at, updated_at FROM trainees WHERE 1=1 AND training_type = ANY").
		WithArgs(sqlmock.AnyArg(), "%ade%", "%Ade%").
		WillReturnRows(traineeRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM trainees WHERE 1=1 AND training_type = ANY`).
		WithArgs(sqlmock.AnyArg(), "%ade%", "%Ade%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	trainees, total, err := repo.List(context.Background(), models.TraineeFilter{
		TrainingTypes: []string{"HOD"},
		Search:        "Ade",
	})
	require.NoError(t, err)
	assert.Len(t, trainees, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraineeRepositorySetReviewStatus(t *testing.T) {
	db, mock, cleanup := newTraineeMock(t)
	defer cleanup()
	repo := NewTraineeRepository(db)

	mock.ExpectExec("UPDATE trainees SET review_status").
		WithArgs("t1", models.ReviewApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetReviewStatus(context.Background(), "t1", models.ReviewApproved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraineeRepositorySetReviewStatusMissing(t *testing.T) {
	db, mock, cleanup := newTraineeMock(t)
	defer cleanup()
	repo := NewTraineeRepository(db)

	mock.ExpectExec("UPDATE trainees SET review_status").
		WithArgs("missing", models.ReviewDenied, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetReviewStatus(context.Background(), "missing", models.ReviewDenied)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTraineeRepositorySummary(t *testing.T) {
	db, mock, cleanup := newTraineeMock(t)
	defer cleanup()
	repo := NewTraineeRepository(db)

	rows := sqlmock.NewRows([]string{"training_type", "review_status", "count"}).
		AddRow("HOD", "approved", 3).
		AddRow("HOD", "pending", 2).
		AddRow("Minister", "denied", 1)
	mock.ExpectQuery("SELECT training_type, review_status").WillReturnRows(rows)

	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 3, summary.Approved)
	assert.Equal(t, 1, summary.Denied)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 5, summary.ByType["HOD"])
}
