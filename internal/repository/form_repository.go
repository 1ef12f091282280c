package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

// FormRepository persists appraisal form submissions and their status
// records in the flat key-value namespace. Keys follow the legacy layout:
// `{formType}_form_{id}` for bodies and `{formType}_status_{id}` for status.
// Entries have no expiry; they live until explicitly removed.
type FormRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewFormRepository constructs a FormRepository.
func NewFormRepository(client *redis.Client, logger *zap.Logger) *FormRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormRepository{client: client, logger: logger}
}

// SaveSubmission stores the submission body, then its status record. The
// ordering matters: a status is only meaningful once the body exists, so a
// failure between the two writes leaves a readable submission with a stale
// status rather than a completed status with no body.
func (r *FormRepository) SaveSubmission(ctx context.Context, formType models.FormType, submissionID string, submission models.FormSubmission, status models.FormStatus) error {
	body, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("marshal submission %s: %w", submissionID, err)
	}
	if err := r.client.Set(ctx, models.FormKey(formType, submissionID), body, 0).Err(); err != nil {
		return fmt.Errorf("store submission %s: %w", submissionID, err)
	}

	statusBody, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status %s: %w", submissionID, err)
	}
	if err := r.client.Set(ctx, models.StatusKey(formType, submissionID), statusBody, 0).Err(); err != nil {
		return fmt.Errorf("store status %s: %w", submissionID, err)
	}
	return nil
}

// GetSubmission returns the stored submission, or nil when none exists.
// Absence is a normal state, not an error.
func (r *FormRepository) GetSubmission(ctx context.Context, formType models.FormType, submissionID string) (*models.FormSubmission, error) {
	raw, err := r.client.Get(ctx, models.FormKey(formType, submissionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission %s: %w", submissionID, err)
	}
	var submission models.FormSubmission
	if err := json.Unmarshal(raw, &submission); err != nil {
		return nil, fmt.Errorf("unmarshal submission %s: %w", submissionID, err)
	}
	return &submission, nil
}

// GetStatus returns the stored status for one submission, defaulting to
// pending when no entry exists.
func (r *FormRepository) GetStatus(ctx context.Context, formType models.FormType, submissionID string) (models.FormStatus, error) {
	raw, err := r.client.Get(ctx, models.StatusKey(formType, submissionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.PendingStatus(), nil
		}
		return models.PendingStatus(), fmt.Errorf("get status %s: %w", submissionID, err)
	}
	var status models.FormStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		// A corrupt status entry degrades to pending; the body, if any,
		// is still readable.
		r.logger.Warn("corrupt form status entry", zap.String("submission_id", submissionID), zap.Error(err))
		return models.PendingStatus(), nil
	}
	return status, nil
}

// BatchStatuses resolves statuses for many submission ids at once using a
// single MGET, defaulting each missing entry to pending.
func (r *FormRepository) BatchStatuses(ctx context.Context, formType models.FormType, submissionIDs []string) (map[string]models.FormStatus, error) {
	statuses := make(map[string]models.FormStatus, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return statuses, nil
	}

	keys := make([]string, len(submissionIDs))
	for i, id := range submissionIDs {
		keys[i] = models.StatusKey(formType, id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("batch statuses: %w", err)
	}

	for i, id := range submissionIDs {
		statuses[id] = models.PendingStatus()
		raw, ok := values[i].(string)
		if !ok || raw == "" {
			continue
		}
		var status models.FormStatus
		if err := json.Unmarshal([]byte(raw), &status); err != nil {
			r.logger.Warn("corrupt form status entry", zap.String("submission_id", id), zap.Error(err))
			continue
		}
		statuses[id] = status
	}
	return statuses, nil
}
