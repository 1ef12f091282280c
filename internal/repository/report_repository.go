package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

// ReportRepository tracks asynchronous report generation jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = "id, trainee_id, form_type, status, file_path, error_text, requested_by, created_at, completed_at"

// Create inserts a queued report job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportQueued
	}
	const query = `INSERT INTO report_jobs (id, trainee_id, form_type, status, file_path, error_text, requested_by, created_at, completed_at)
        VALUES (:id, :trainee_id, :form_type, :status, :file_path, :error_text, :requested_by, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID fetches a report job by ID.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM report_jobs WHERE id = $1", reportColumns)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing transitions a queued job to processing.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE report_jobs SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.ReportProcessing, models.ReportQueued)
	if err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkCompleted records the generated file path.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, completed_at = $4, error_text = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportCompleted, filePath, completedAt); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, errorText string, failedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, error_text = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportFailed, errorText, failedAt); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes completed and failed jobs created before the
// cutoff, returning their file paths so the caller can remove the files.
func (r *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM report_jobs WHERE created_at < $1 AND status IN ($2, $3) RETURNING file_path`
	rows, err := r.db.QueryxContext(ctx, query, cutoff, models.ReportCompleted, models.ReportFailed)
	if err != nil {
		return nil, fmt.Errorf("delete old report jobs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var paths []string
	for rows.Next() {
		var path sql.NullString
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan report path: %w", err)
		}
		if path.Valid && path.String != "" {
			paths = append(paths, path.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete old report rows: %w", err)
	}
	return paths, nil
}
