package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

// AssessmentRepository manages assessments, their questions and timed
// attempts.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs an AssessmentRepository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = "id, title, type, training_type, time_limit_sec, created_by, created_at, updated_at"
const attemptColumns = "id, assessment_id, trainee_id, status, answer, score, violations, started_at, deadline, submitted_at, graded_by, created_at, updated_at"

// List returns assessments matching the provided filters.
func (r *AssessmentRepository) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int, error) {
	base := "FROM assessments WHERE 1=1"
	var args []interface{}

	if filter.Type != nil {
		base += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, *filter.Type)
	}
	if filter.TrainingType != "" {
		base += fmt.Sprintf(" AND training_type = $%d", len(args)+1)
		args = append(args, filter.TrainingType)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(title) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":      true,
		"type":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", assessmentColumns, base, sortBy, order, size, offset)

	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}
	return assessments, total, nil
}

// FindByID fetches an assessment by ID.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := fmt.Sprintf("SELECT %s FROM assessments WHERE id = $1", assessmentColumns)
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}
	assessment.UpdatedAt = now
	const query = `INSERT INTO assessments (id, title, type, training_type, time_limit_sec, created_by, created_at, updated_at)
        VALUES (:id, :title, :type, :training_type, :time_limit_sec, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// Update modifies assessment metadata.
func (r *AssessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	assessment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assessments SET title = :title, type = :type, training_type = :training_type, time_limit_sec = :time_limit_sec, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assessment)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assessment along with its questions and attempts.
func (r *AssessmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete assessment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_attempts WHERE assessment_id = $1`, id); err != nil {
		return fmt.Errorf("delete attempts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_questions WHERE assessment_id = $1`, id); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// ReplaceQuestions swaps the full question set of an assessment in one
// transaction, renumbering positions from 1.
func (r *AssessmentRepository) ReplaceQuestions(ctx context.Context, assessmentID string, questions []models.AssessmentQuestion) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace questions: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_questions WHERE assessment_id = $1`, assessmentID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	const insert = `INSERT INTO assessment_questions (id, assessment_id, position, prompt) VALUES ($1, $2, $3, $4)`
	for i, q := range questions {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, insert, id, assessmentID, i+1, q.Prompt); err != nil {
			return fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// ListQuestions returns the ordered question set for an assessment.
func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID string) ([]models.AssessmentQuestion, error) {
	const query = `SELECT id, assessment_id, position, prompt FROM assessment_questions WHERE assessment_id = $1 ORDER BY position ASC`
	var questions []models.AssessmentQuestion
	if err := r.db.SelectContext(ctx, &questions, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// CreateAttempt starts a timed attempt.
func (r *AssessmentRepository) CreateAttempt(ctx context.Context, attempt *models.AssessmentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now
	const query = `INSERT INTO assessment_attempts (id, assessment_id, trainee_id, status, answer, score, violations, started_at, deadline, submitted_at, graded_by, created_at, updated_at)
        VALUES (:id, :assessment_id, :trainee_id, :status, :answer, :score, :violations, :started_at, :deadline, :submitted_at, :graded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// FindAttemptByID fetches an attempt by ID.
func (r *AssessmentRepository) FindAttemptByID(ctx context.Context, id string) (*models.AssessmentAttempt, error) {
	query := fmt.Sprintf("SELECT %s FROM assessment_attempts WHERE id = $1", attemptColumns)
	var attempt models.AssessmentAttempt
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindActiveAttempt returns the in-progress attempt for a trainee on an
// assessment, or sql.ErrNoRows when none is running.
func (r *AssessmentRepository) FindActiveAttempt(ctx context.Context, assessmentID, traineeID string) (*models.AssessmentAttempt, error) {
	query := fmt.Sprintf("SELECT %s FROM assessment_attempts WHERE assessment_id = $1 AND trainee_id = $2 AND status = $3 ORDER BY started_at DESC LIMIT 1", attemptColumns)
	var attempt models.AssessmentAttempt
	if err := r.db.GetContext(ctx, &attempt, query, assessmentID, traineeID, models.AttemptInProgress); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListAttempts returns all attempts for an assessment, newest first.
func (r *AssessmentRepository) ListAttempts(ctx context.Context, assessmentID string) ([]models.AssessmentAttempt, error) {
	query := fmt.Sprintf("SELECT %s FROM assessment_attempts WHERE assessment_id = $1 ORDER BY started_at DESC", attemptColumns)
	var attempts []models.AssessmentAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// SubmitAnswer records the answer and finalises the attempt. Only an
// in-progress attempt can transition; the affected-rows check makes the
// submit race-safe against the expiry sweep.
func (r *AssessmentRepository) SubmitAnswer(ctx context.Context, attemptID, answer string, submittedAt time.Time) error {
	const query = `UPDATE assessment_attempts SET status = $2, answer = $3, submitted_at = $4, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, attemptID, models.AttemptSubmitted, answer, submittedAt, models.AttemptInProgress)
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementViolations bumps the violation counter on an in-progress attempt.
// Signals arriving after the attempt finished affect zero rows and are
// silently dropped.
func (r *AssessmentRepository) IncrementViolations(ctx context.Context, attemptID string) (int, error) {
	const query = `UPDATE assessment_attempts SET violations = violations + 1, updated_at = $2 WHERE id = $1 AND status = $3 RETURNING violations`
	var violations int
	err := r.db.GetContext(ctx, &violations, query, attemptID, time.Now().UTC(), models.AttemptInProgress)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("increment violations: %w", err)
	}
	return violations, nil
}

// SetScore records a grade on a finished attempt.
func (r *AssessmentRepository) SetScore(ctx context.Context, attemptID string, score int, gradedBy string) error {
	const query = `UPDATE assessment_attempts SET score = $2, graded_by = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, attemptID, score, gradedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExpireOverdue finalises every in-progress attempt whose deadline has
// passed, storing the sentinel answer. Returns the number of attempts
// expired. Running it twice is harmless.
func (r *AssessmentRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE assessment_attempts SET status = $1, answer = $2, submitted_at = deadline, updated_at = $3 WHERE status = $4 AND deadline < $3`
	res, err := r.db.ExecContext(ctx, query, models.AttemptExpired, models.TimeExpiredAnswer, now, models.AttemptInProgress)
	if err != nil {
		return 0, fmt.Errorf("expire overdue attempts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire overdue rows: %w", err)
	}
	return affected, nil
}

// Stats aggregates counts across all assessments for dashboard tiles.
func (r *AssessmentRepository) Stats(ctx context.Context) (*models.AssessmentStats, error) {
	stats := &models.AssessmentStats{}
	if err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM assessments`); err != nil {
		return nil, fmt.Errorf("count assessments: %w", err)
	}
	const query = `SELECT COUNT(*) AS attempts, COUNT(score) AS graded, COUNT(*) FILTER (WHERE status = $1) AS in_flight FROM assessment_attempts`
	row := r.db.QueryRowxContext(ctx, query, models.AttemptInProgress)
	if err := row.Scan(&stats.Attempts, &stats.Graded, &stats.InFlight); err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	return stats, nil
}

// Results aggregates attempt counts and the average of graded scores.
func (r *AssessmentRepository) Results(ctx context.Context, assessmentID string) (*models.AssessmentResults, error) {
	const query = `SELECT COUNT(*) AS attempts, COUNT(score) AS graded, COALESCE(AVG(score), 0) AS average_score FROM assessment_attempts WHERE assessment_id = $1`
	row := r.db.QueryRowxContext(ctx, query, assessmentID)
	results := &models.AssessmentResults{AssessmentID: assessmentID}
	if err := row.Scan(&results.Attempts, &results.Graded, &results.AverageScore); err != nil {
		return nil, fmt.Errorf("assessment results: %w", err)
	}
	return results, nil
}
