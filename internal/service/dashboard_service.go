package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type dashboardTraineeSource interface {
	List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error)
	Summary(ctx context.Context) (*models.TraineeSummary, error)
}

type dashboardFormSource interface {
	BatchStatuses(ctx context.Context, formType models.FormType, submissionIDs []string) (map[string]models.FormStatus, error)
}

type dashboardAssessmentSource interface {
	Stats(ctx context.Context) (*models.AssessmentStats, error)
}

// RoleFormTypes maps each role to the appraisal audiences it submits.
var RoleFormTypes = map[models.Role][]models.FormType{
	models.RoleLeadership: {models.FormMentor, models.FormDepartment},
	models.RoleAdmin:      {models.FormHOI},
	models.RoleSuperAdmin: {models.FormCentral},
}

// DashboardService composes the per-role dashboard tiles, cached in Redis
// with a TTL.
type DashboardService struct {
	trainees    dashboardTraineeSource
	forms       dashboardFormSource
	assessments dashboardAssessmentSource
	cache       *CacheService
	logger      *zap.Logger
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(trainees dashboardTraineeSource, forms dashboardFormSource, assessments dashboardAssessmentSource, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		trainees:    trainees,
		forms:       forms,
		assessments: assessments,
		cache:       cache,
		logger:      logger,
		cacheTTL:    cacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the dashboard for a role, indicating cache utilisation.
func (s *DashboardService) Summary(ctx context.Context, role models.Role) (*models.DashboardSummary, bool, error) {
	if !role.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	cacheKey := fmt.Sprintf("dash_%s", role)
	if s.cache != nil {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx, role)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops all cached dashboards. Called after writes that change
// the tiles (review decisions, form submissions).
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash_*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, role models.Role) (*models.DashboardSummary, error) {
	traineeSummary, err := s.trainees.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise trainees")
	}

	appraisals, err := s.appraisalStats(ctx, RoleFormTypes[role])
	if err != nil {
		return nil, err
	}

	assessments := models.AssessmentStats{}
	if s.assessments != nil {
		stats, err := s.assessments.Stats(ctx)
		if err != nil {
			s.logger.Warn("assessment stats unavailable", zap.Error(err))
		} else {
			assessments = *stats
		}
	}

	return &models.DashboardSummary{
		Role:           role,
		Trainees:       *traineeSummary,
		Appraisals:     appraisals,
		Assessments:    assessments,
		GeneratedAtISO: s.now().Format(time.RFC3339),
	}, nil
}

func (s *DashboardService) appraisalStats(ctx context.Context, formTypes []models.FormType) (models.AppraisalStats, error) {
	stats := models.AppraisalStats{}
	if s.forms == nil || len(formTypes) == 0 {
		return stats, nil
	}

	filter := models.TraineeFilter{Page: 1, PageSize: 100}
	var ids []string
	var names []string
	for {
		trainees, total, err := s.trainees.List(ctx, filter)
		if err != nil {
			return stats, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainees")
		}
		for _, t := range trainees {
			ids = append(ids, t.ID)
			names = append(names, t.Name)
		}
		if len(ids) >= total || len(trainees) == 0 {
			break
		}
		filter.Page++
	}

	submissionIDs := make([]string, len(ids))
	for i := range ids {
		submissionIDs[i] = models.SubmissionID(names[i], ids[i])
	}

	for _, formType := range formTypes {
		statuses, err := s.forms.BatchStatuses(ctx, formType, submissionIDs)
		if err != nil {
			return stats, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve form statuses")
		}
		for _, status := range statuses {
			if status.Status == models.FormStatusCompleted {
				stats.Completed++
			} else {
				stats.Pending++
			}
		}
	}
	return stats, nil
}
