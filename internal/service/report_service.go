package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/export"
	"github.com/word-sanctuary/appraisal-api/pkg/jobs"
	"github.com/word-sanctuary/appraisal-api/pkg/storage"
)

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, errorText string, failedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type reportFormSource interface {
	GetSubmission(ctx context.Context, formType models.FormType, submissionID string) (*models.FormSubmission, error)
}

type reportTraineeSource interface {
	FindByID(ctx context.Context, id string) (*models.Trainee, error)
}

type reportRecommendationSource interface {
	Get(ctx context.Context, traineeID string) (*models.Recommendation, error)
}

// ReportServiceConfig tunes asynchronous report generation.
type ReportServiceConfig struct {
	Enabled         bool
	WorkerCount     int
	MaxRetries      int
	Retention       time.Duration
	CleanupInterval time.Duration
}

// ReportService generates appraisal PDF reports asynchronously: a request
// enqueues a job, the worker renders and stores the file, and the client
// polls for a signed download URL.
type ReportService struct {
	reports         reportRepository
	forms           reportFormSource
	trainees        reportTraineeSource
	recommendations reportRecommendationSource
	exporter        *export.PDFExporter
	storage         *storage.LocalStorage
	signer          *storage.SignedURLSigner
	metrics         *MetricsService
	logger          *zap.Logger
	queue           *jobs.Queue
	cfg             ReportServiceConfig
}

// NewReportService constructs a ReportService. Start must be called before
// reports can be enqueued.
func NewReportService(reports reportRepository, forms reportFormSource, trainees reportTraineeSource, recommendations reportRecommendationSource, exporter *export.PDFExporter, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}

	s := &ReportService{
		reports:         reports,
		forms:           forms,
		trainees:        trainees,
		recommendations: recommendations,
		exporter:        exporter,
		storage:         store,
		signer:          signer,
		metrics:         metrics,
		logger:          logger,
		cfg:             cfg,
	}
	s.queue = jobs.NewQueue("appraisal-reports", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.WorkerCount,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and the cleanup loop.
func (s *ReportService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop drains the worker pool.
func (s *ReportService) Stop() {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Stop()
}

// Enqueue creates a report job for a trainee's appraisal and queues it.
func (s *ReportService) Enqueue(ctx context.Context, formType models.FormType, traineeID, requestedBy string) (*models.ReportJob, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrReportsDisabled, "")
	}
	if !formType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown form type")
	}
	if _, err := s.trainees.FindByID(ctx, traineeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainee")
	}

	job := &models.ReportJob{
		TraineeID:   traineeID,
		FormType:    formType,
		Status:      models.ReportQueued,
		RequestedBy: requestedBy,
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "appraisal_report", Payload: job.ID}); err != nil {
		failedAt := time.Now().UTC()
		if markErr := s.reports.MarkFailed(ctx, job.ID, "queue unavailable", failedAt); markErr != nil {
			s.logger.Warn("failed to mark report job failed", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}

	s.metrics.ReportQueued()
	return job, nil
}

// Status returns the job state, including a signed download URL once the
// file is ready.
func (s *ReportService) Status(ctx context.Context, jobID string) (*models.ReportStatusResponse, error) {
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}

	resp := &models.ReportStatusResponse{ID: job.ID, Status: job.Status}
	if job.ErrorText != nil {
		resp.Error = *job.ErrorText
	}
	if job.Status == models.ReportCompleted && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		resp.DownloadURL = "/reports/download?token=" + token
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Download validates a signed token and opens the stored file.
func (s *ReportService) Download(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file not found")
	}
	return file, nil
}

func (s *ReportService) handleJob(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok || jobID == "" {
		return fmt.Errorf("report job %s has no id payload", job.ID)
	}

	if err := s.reports.MarkProcessing(ctx, jobID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("mark processing: %w", err)
	}

	record, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job: %w", err)
	}

	data, err := s.render(ctx, record)
	if err != nil {
		failedAt := time.Now().UTC()
		if markErr := s.reports.MarkFailed(ctx, jobID, err.Error(), failedAt); markErr != nil {
			s.logger.Warn("failed to mark report job failed", zap.Error(markErr))
		}
		return err
	}

	relPath := fmt.Sprintf("reports/%s.pdf", jobID)
	if _, err := s.storage.Save(relPath, data); err != nil {
		failedAt := time.Now().UTC()
		if markErr := s.reports.MarkFailed(ctx, jobID, err.Error(), failedAt); markErr != nil {
			s.logger.Warn("failed to mark report job failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.reports.MarkCompleted(ctx, jobID, relPath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	s.logger.Info("report generated", zap.String("report_id", jobID), zap.String("path", relPath))
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) ([]byte, error) {
	trainee, err := s.trainees.FindByID(ctx, job.TraineeID)
	if err != nil {
		return nil, fmt.Errorf("load trainee: %w", err)
	}

	sections := []export.ReportSection{
		{
			Title: "Trainee",
			Fields: []export.ReportField{
				{Label: "Name", Value: trainee.Name},
				{Label: "Training Type", Value: trainee.TrainingType},
				{Label: "Installation", Value: trainee.Installation},
				{Label: "Department", Value: trainee.Department},
				{Label: "Review Status", Value: string(trainee.ReviewStatus)},
			},
		},
	}

	if s.recommendations != nil {
		rec, err := s.recommendations.Get(ctx, job.TraineeID)
		if err != nil {
			s.logger.Warn("recommendation unavailable for report", zap.Error(err))
		} else if rec != nil {
			sections = append(sections, export.ReportSection{
				Title: "Recommendation",
				Fields: []export.ReportField{
					{Label: "Text", Value: rec.Text},
					{Label: "Updated", Value: rec.UpdatedAt},
				},
			})
		}
	}

	submissionID := models.SubmissionID(trainee.Name, trainee.ID)
	submission, err := s.forms.GetSubmission(ctx, job.FormType, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if submission != nil {
		fields := make([]export.ReportField, 0, len(submission.Fields))
		keys := make([]string, 0, len(submission.Fields))
		for key := range submission.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fields = append(fields, export.ReportField{Label: key, Value: submission.Fields[key]})
		}
		sections = append(sections, export.ReportSection{
			Title:  fmt.Sprintf("%s appraisal (submitted %s)", titleCase(string(job.FormType)), submission.SubmittedAt),
			Fields: fields,
		})
	} else {
		sections = append(sections, export.ReportSection{
			Title:  fmt.Sprintf("%s appraisal", titleCase(string(job.FormType))),
			Fields: []export.ReportField{{Label: "Status", Value: "No submission recorded"}},
		})
	}

	title := fmt.Sprintf("Appraisal Report - %s", trainee.Name)
	return s.exporter.RenderReport(title, sections)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s *ReportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.cfg.Retention)
			paths, err := s.reports.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				s.logger.Warn("report cleanup failed", zap.Error(err))
				continue
			}
			for _, path := range paths {
				if err := s.storage.Remove(path); err != nil {
					s.logger.Warn("failed to remove report file", zap.String("path", path), zap.Error(err))
				}
			}
			if err := s.storage.RemoveOlderThan(cutoff); err != nil {
				s.logger.Warn("stale report sweep failed", zap.Error(err))
			}
		}
	}
}
