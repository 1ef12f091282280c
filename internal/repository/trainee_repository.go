package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

// TraineeRepository manages persistence for trainee records.
type TraineeRepository struct {
	db *sqlx.DB
}

// NewTraineeRepository constructs a TraineeRepository.
func NewTraineeRepository(db *sqlx.DB) *TraineeRepository {
	return &TraineeRepository{db: db}
}

const traineeColumns = "id, name, email, phone, training_type, installation, department, progress, review_status, created_at, updated_at"

// List returns trainees matching the provided filters.
func (r *TraineeRepository) List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error) {
	base := "FROM trainees"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if len(filter.TrainingTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("training_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.TrainingTypes))
	}
	if len(filter.Installations) > 0 {
		conditions = append(conditions, fmt.Sprintf("installation = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Installations))
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("review_status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(installation) LIKE $%d OR LOWER(department) LIKE $%d OR LOWER(training_type) LIKE $%d OR phone LIKE $%d)",
			n, n, n, n, n, n+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%", "%"+filter.Search+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":          "name",
		"installation":  "installation",
		"department":    "department",
		"training_type": "training_type",
		"progress":      "progress",
		"created_at":    "created_at",
	}
	if sortBy == "" {
		sortBy = "installation"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "installation"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", traineeColumns, base, column, order, size, offset)

	var trainees []models.Trainee
	if err := r.db.SelectContext(ctx, &trainees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list trainees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count trainees: %w", err)
	}
	return trainees, total, nil
}

// FindByID fetches a trainee by ID.
func (r *TraineeRepository) FindByID(ctx context.Context, id string) (*models.Trainee, error) {
	query := fmt.Sprintf("SELECT %s FROM trainees WHERE id = $1", traineeColumns)
	var trainee models.Trainee
	if err := r.db.GetContext(ctx, &trainee, query, id); err != nil {
		return nil, err
	}
	return &trainee, nil
}

// Create inserts a new trainee record.
func (r *TraineeRepository) Create(ctx context.Context, trainee *models.Trainee) error {
	if trainee.ID == "" {
		trainee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if trainee.CreatedAt.IsZero() {
		trainee.CreatedAt = now
	}
	trainee.UpdatedAt = now
	if trainee.ReviewStatus == "" {
		trainee.ReviewStatus = models.ReviewPending
	}
	const query = `INSERT INTO trainees (id, name, email, phone, training_type, installation, department, progress, review_status, created_at, updated_at)
        VALUES (:id, :name, :email, :phone, :training_type, :installation, :department, :progress, :review_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, trainee); err != nil {
		return fmt.Errorf("create trainee: %w", err)
	}
	return nil
}

// Update modifies an existing trainee.
func (r *TraineeRepository) Update(ctx context.Context, trainee *models.Trainee) error {
	trainee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE trainees SET name = :name, email = :email, phone = :phone, training_type = :training_type, installation = :installation, department = :department, progress = :progress, review_status = :review_status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, trainee); err != nil {
		return fmt.Errorf("update trainee: %w", err)
	}
	return nil
}

// SetReviewStatus records the superadmin approve/deny decision.
func (r *TraineeRepository) SetReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	const query = `UPDATE trainees SET review_status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set review status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Summary returns counts by training type and review status.
func (r *TraineeRepository) Summary(ctx context.Context) (*models.TraineeSummary, error) {
	rows, err := r.db.QueryxContext(ctx, "SELECT training_type, review_status, COUNT(*) AS count FROM trainees GROUP BY training_type, review_status")
	if err != nil {
		return nil, fmt.Errorf("trainee summary: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	summary := &models.TraineeSummary{ByType: make(map[string]int)}
	for rows.Next() {
		var trainingType string
		var status models.ReviewStatus
		var count int
		if err := rows.Scan(&trainingType, &status, &count); err != nil {
			return nil, fmt.Errorf("scan trainee summary: %w", err)
		}
		summary.Total += count
		summary.ByType[trainingType] += count
		switch status {
		case models.ReviewApproved:
			summary.Approved += count
		case models.ReviewDenied:
			summary.Denied += count
		default:
			summary.Pending += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trainee summary rows: %w", err)
	}
	return summary, nil
}
