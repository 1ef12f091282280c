package models

import "time"

// ReviewStatus is the tri-state superadmin review decision on a trainee.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewDenied   ReviewStatus = "denied"
)

// Trainee represents a person enrolled in a leadership training track.
type Trainee struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Email        string       `db:"email" json:"email"`
	Phone        string       `db:"phone" json:"phone"`
	TrainingType string       `db:"training_type" json:"training_type"`
	Installation string       `db:"installation" json:"installation"`
	Department   string       `db:"department" json:"department"`
	Progress     int          `db:"progress" json:"progress"`
	ReviewStatus ReviewStatus `db:"review_status" json:"review_status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// TraineeFilter encapsulates search, facet, sort and paging parameters for
// trainee lists. Empty facet slices mean "no restriction on that axis".
type TraineeFilter struct {
	Search        string
	TrainingTypes []string
	Installations []string
	Status        *ReviewStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// TraineeSummary carries per-training-type counts for dashboard tiles.
type TraineeSummary struct {
	Total    int            `json:"total"`
	ByType   map[string]int `json:"by_type"`
	Approved int            `json:"approved"`
	Pending  int            `json:"pending"`
	Denied   int            `json:"denied"`
}

// TraineeRow is a list row: the trainee plus presentation flags derived from
// the key-value store (recommendation presence).
type TraineeRow struct {
	Trainee
	HasRecommendation bool `json:"has_recommendation"`
}

// AppraisalListItem is the narrow row shown on the appraisal list screens.
type AppraisalListItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TrainingType string `json:"training_type"`
	Installation string `json:"installation"`
}

// WidenToTrainee maps the narrow appraisal row onto the full trainee shape
// used by detail views. All synthesized defaults are explicit: contact fields
// are blank, progress zero and review status pending until the full record is
// loaded.
func (i AppraisalListItem) WidenToTrainee() Trainee {
	return Trainee{
		ID:           i.ID,
		Name:         i.Name,
		Email:        "",
		Phone:        "",
		TrainingType: i.TrainingType,
		Installation: i.Installation,
		Department:   "",
		Progress:     0,
		ReviewStatus: ReviewPending,
	}
}
