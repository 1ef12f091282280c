package models

import "time"

// AssessmentType categorises an assessment.
type AssessmentType string

const (
	AssessmentAssignment AssessmentType = "ASSIGNMENT"
	AssessmentTest       AssessmentType = "TEST"
	AssessmentExam       AssessmentType = "EXAM"
)

// Valid reports whether the assessment type is known.
func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentAssignment, AssessmentTest, AssessmentExam:
		return true
	}
	return false
}

// Assessment is a timed piece of work assigned to trainees.
type Assessment struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Type         AssessmentType `db:"type" json:"type"`
	TrainingType string         `db:"training_type" json:"training_type"`
	TimeLimitSec int            `db:"time_limit_sec" json:"time_limit_sec"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// AssessmentQuestion is a single prompt within an assessment.
type AssessmentQuestion struct {
	ID           string `db:"id" json:"id"`
	AssessmentID string `db:"assessment_id" json:"assessment_id"`
	Position     int    `db:"position" json:"position"`
	Prompt       string `db:"prompt" json:"prompt"`
}

// AssessmentFilter captures list parameters for assessments.
type AssessmentFilter struct {
	Search       string
	Type         *AssessmentType
	TrainingType string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// AttemptStatus tracks the lifecycle of a timed attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptExpired    AttemptStatus = "expired"
)

// TimeExpiredAnswer is the sentinel stored when the countdown elapses with no
// answer submitted.
const TimeExpiredAnswer = "No answer provided - Time expired"

// AssessmentAttempt is one trainee's timed run at an assessment.
type AssessmentAttempt struct {
	ID           string        `db:"id" json:"id"`
	AssessmentID string        `db:"assessment_id" json:"assessment_id"`
	TraineeID    string        `db:"trainee_id" json:"trainee_id"`
	Status       AttemptStatus `db:"status" json:"status"`
	Answer       *string       `db:"answer" json:"answer,omitempty"`
	Score        *int          `db:"score" json:"score,omitempty"`
	Violations   int           `db:"violations" json:"violations"`
	StartedAt    time.Time     `db:"started_at" json:"started_at"`
	Deadline     time.Time     `db:"deadline" json:"deadline"`
	SubmittedAt  *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
	GradedBy     *string       `db:"graded_by" json:"graded_by,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Finished reports whether the attempt can no longer accept answers or
// violation signals.
func (a *AssessmentAttempt) Finished() bool {
	return a.Status == AttemptSubmitted || a.Status == AttemptExpired
}

// AssessmentResults summarises graded attempts for one assessment.
type AssessmentResults struct {
	AssessmentID string  `json:"assessment_id"`
	Title        string  `json:"title"`
	Attempts     int     `json:"attempts"`
	Graded       int     `json:"graded"`
	AverageScore float64 `json:"average_score"`
}
