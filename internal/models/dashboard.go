package models

// DashboardSummary aggregates the tiles shown on the role dashboards.
type DashboardSummary struct {
	Role           Role            `json:"role"`
	Trainees       TraineeSummary  `json:"trainees"`
	Appraisals     AppraisalStats  `json:"appraisals"`
	Assessments    AssessmentStats `json:"assessments"`
	GeneratedAtISO string          `json:"generated_at"`
}

// AppraisalStats reports completion ratios per form audience.
type AppraisalStats struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// AssessmentStats reports totals for the assessment module.
type AssessmentStats struct {
	Total    int `json:"total"`
	Attempts int `json:"attempts"`
	Graded   int `json:"graded"`
	InFlight int `json:"in_flight"`
}
