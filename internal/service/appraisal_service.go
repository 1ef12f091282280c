package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/query"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/timeutil"
)

type formRepository interface {
	SaveSubmission(ctx context.Context, formType models.FormType, submissionID string, submission models.FormSubmission, status models.FormStatus) error
	GetSubmission(ctx context.Context, formType models.FormType, submissionID string) (*models.FormSubmission, error)
	GetStatus(ctx context.Context, formType models.FormType, submissionID string) (models.FormStatus, error)
	BatchStatuses(ctx context.Context, formType models.FormType, submissionIDs []string) (map[string]models.FormStatus, error)
}

type appraisalTraineeSource interface {
	List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error)
}

type appraisalAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SubmitFormRequest carries a form submission payload.
type SubmitFormRequest struct {
	Fields      map[string]string `json:"fields" validate:"required,min=1"`
	SubjectName string            `json:"subject_name" validate:"required"`
}

// AppraisalService implements the appraisal form workflows: list rows joined
// with completion status, prefill reads and submit/resubmit writes.
type AppraisalService struct {
	forms     formRepository
	trainees  appraisalTraineeSource
	audits    appraisalAuditor
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAppraisalService constructs an AppraisalService.
func NewAppraisalService(forms formRepository, trainees appraisalTraineeSource, audits appraisalAuditor, validate *validator.Validate, logger *zap.Logger) *AppraisalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AppraisalService{
		forms:     forms,
		trainees:  trainees,
		audits:    audits,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListRows returns appraisal list rows for a form type: one row per trainee,
// joined with the stored completion status and a freshly computed relative
// submission age. Missing status entries read as pending.
//
// Search, facets and sorting run in memory over the joined rows, so rows can
// be ordered by status fields the trainee table does not know about.
func (s *AppraisalService) ListRows(ctx context.Context, formType models.FormType, filter models.TraineeFilter) ([]models.AppraisalRow, *models.Pagination, error) {
	if !formType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown form type")
	}

	rows, err := s.joinedRows(ctx, formType)
	if err != nil {
		return nil, nil, err
	}

	rows = query.Apply(rows, query.Filter{
		Query:         filter.Search,
		TrainingTypes: filter.TrainingTypes,
		Installations: filter.Installations,
	}, appraisalRowFields)

	if key := appraisalSortKey(filter.SortBy); key != nil {
		query.Sort(rows, key, strings.EqualFold(filter.SortOrder, "desc"))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	total := len(rows)

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return rows[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

var appraisalRowFields = query.Fields[models.AppraisalRow]{
	FoldedText:   func(r models.AppraisalRow) []string { return []string{r.Name} },
	TrainingType: func(r models.AppraisalRow) string { return r.TrainingType },
	Installation: func(r models.AppraisalRow) string { return r.Installation },
}

func appraisalSortKey(sortBy string) func(models.AppraisalRow) interface{} {
	switch sortBy {
	case "name":
		return func(r models.AppraisalRow) interface{} { return r.Name }
	case "training_type":
		return func(r models.AppraisalRow) interface{} { return r.TrainingType }
	case "installation":
		return func(r models.AppraisalRow) interface{} { return r.Installation }
	case "status":
		return func(r models.AppraisalRow) interface{} { return string(r.Status) }
	case "last_modified":
		// RFC3339 strings order chronologically.
		return func(r models.AppraisalRow) interface{} { return r.LastModified }
	}
	return nil
}

func (s *AppraisalService) joinedRows(ctx context.Context, formType models.FormType) ([]models.AppraisalRow, error) {
	now := s.now()
	var rows []models.AppraisalRow

	batch := models.TraineeFilter{Page: 1, PageSize: 100}
	for {
		trainees, total, err := s.trainees.List(ctx, batch)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appraisal rows")
		}

		ids := make([]string, len(trainees))
		for i, t := range trainees {
			ids[i] = models.SubmissionID(t.Name, t.ID)
		}
		statuses, err := s.forms.BatchStatuses(ctx, formType, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve form statuses")
		}

		for i, t := range trainees {
			status := statuses[ids[i]]
			row := models.AppraisalRow{
				AppraisalListItem: models.AppraisalListItem{
					ID:           t.ID,
					Name:         t.Name,
					TrainingType: t.TrainingType,
					Installation: t.Installation,
				},
				SubmissionID: ids[i],
				Status:       status.Status,
				CompletedAt:  status.CompletedAt,
				LastModified: status.LastModified,
			}
			if status.LastModified != "" {
				row.RelativeTime = timeutil.RelativeISO(status.LastModified, now)
			}
			rows = append(rows, row)
		}

		if len(rows) >= total || len(trainees) == 0 {
			break
		}
		batch.Page++
	}
	return rows, nil
}

// GetSubmission returns the stored submission for view/edit prefill. A nil
// result with nil error means nothing has been submitted yet.
func (s *AppraisalService) GetSubmission(ctx context.Context, formType models.FormType, submissionID string) (*models.FormSubmission, error) {
	if !formType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown form type")
	}
	submission, err := s.forms.GetSubmission(ctx, formType, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// GetStatus returns the completion status for one submission id.
func (s *AppraisalService) GetStatus(ctx context.Context, formType models.FormType, submissionID string) (models.FormStatus, error) {
	if !formType.Valid() {
		return models.PendingStatus(), appErrors.Clone(appErrors.ErrValidation, "unknown form type")
	}
	status, err := s.forms.GetStatus(ctx, formType, submissionID)
	if err != nil {
		return models.PendingStatus(), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status")
	}
	return status, nil
}

// Submit writes the submission and marks it completed. On resubmission the
// original CompletedAt survives while LastModified always moves to now, so
// "first completed" and "last touched" remain distinguishable.
func (s *AppraisalService) Submit(ctx context.Context, formType models.FormType, submissionID string, req SubmitFormRequest, submitterRole models.Role, submitterID string) (*models.FormStatus, error) {
	if !formType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown form type")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if submissionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing submission id")
	}

	now := s.now().Format(time.RFC3339)
	submission := models.FormSubmission{
		Fields:      req.Fields,
		SubjectName: req.SubjectName,
		SubmittedAt: now,
		SubmittedBy: submitterRole,
		FormType:    formType,
	}

	status := models.FormStatus{
		Status:       models.FormStatusCompleted,
		CompletedAt:  now,
		LastModified: now,
	}
	existing, err := s.forms.GetStatus(ctx, formType, submissionID)
	if err != nil {
		s.logger.Warn("failed to load prior status", zap.String("submission_id", submissionID), zap.Error(err))
	} else if existing.Status == models.FormStatusCompleted && existing.CompletedAt != "" {
		status.CompletedAt = existing.CompletedAt
	}

	if err := s.forms.SaveSubmission(ctx, formType, submissionID, submission, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}

	if s.audits != nil {
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &submitterID,
			Action:     models.AuditActionSubmitForm,
			Resource:   string(formType) + "_form",
			ResourceID: &submissionID,
		}); err != nil {
			s.logger.Warn("failed to record submission audit log", zap.Error(err))
		}
	}

	return &status, nil
}
