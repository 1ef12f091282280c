package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/word-sanctuary/appraisal-api/internal/models"
)

// RecommendationRepository stores superadmin recommendations under the
// legacy key pair: `recommendation_{traineeID}` holds the text and
// `recommendation_date_{traineeID}` its last-updated timestamp.
type RecommendationRepository struct {
	client *redis.Client
}

// NewRecommendationRepository constructs a RecommendationRepository.
func NewRecommendationRepository(client *redis.Client) *RecommendationRepository {
	return &RecommendationRepository{client: client}
}

// Save writes the recommendation text and its timestamp.
func (r *RecommendationRepository) Save(ctx context.Context, traineeID, text, updatedAt string) error {
	if err := r.client.Set(ctx, models.RecommendationKey(traineeID), text, 0).Err(); err != nil {
		return fmt.Errorf("store recommendation %s: %w", traineeID, err)
	}
	if err := r.client.Set(ctx, models.RecommendationDateKey(traineeID), updatedAt, 0).Err(); err != nil {
		return fmt.Errorf("store recommendation date %s: %w", traineeID, err)
	}
	return nil
}

// Get returns the stored recommendation, or nil when none exists. The date
// key may be absent for legacy entries; the text alone is still valid.
func (r *RecommendationRepository) Get(ctx context.Context, traineeID string) (*models.Recommendation, error) {
	text, err := r.client.Get(ctx, models.RecommendationKey(traineeID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get recommendation %s: %w", traineeID, err)
	}

	updatedAt, err := r.client.Get(ctx, models.RecommendationDateKey(traineeID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get recommendation date %s: %w", traineeID, err)
	}

	return &models.Recommendation{
		TraineeID: traineeID,
		Text:      text,
		UpdatedAt: updatedAt,
	}, nil
}

// Delete removes both keys. Deleting an absent recommendation is a no-op.
func (r *RecommendationRepository) Delete(ctx context.Context, traineeID string) error {
	if err := r.client.Del(ctx, models.RecommendationKey(traineeID), models.RecommendationDateKey(traineeID)).Err(); err != nil {
		return fmt.Errorf("delete recommendation %s: %w", traineeID, err)
	}
	return nil
}
