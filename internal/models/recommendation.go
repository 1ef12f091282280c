package models

import "fmt"

// Recommendation storage key patterns, kept byte-compatible with the legacy
// client's layout.
const (
	recommendationKeyPattern     = "recommendation_%s"
	recommendationDateKeyPattern = "recommendation_date_%s"
)

// RecommendationKey returns the storage key for a trainee's recommendation.
func RecommendationKey(traineeID string) string {
	return fmt.Sprintf(recommendationKeyPattern, traineeID)
}

// RecommendationDateKey returns the storage key for its last-updated date.
func RecommendationDateKey(traineeID string) string {
	return fmt.Sprintf(recommendationDateKeyPattern, traineeID)
}

// Recommendation is a superadmin-authored free-text note attached to a
// trainee record.
type Recommendation struct {
	TraineeID    string `json:"trainee_id"`
	Text         string `json:"text"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	RelativeTime string `json:"relative_time,omitempty"`
}
