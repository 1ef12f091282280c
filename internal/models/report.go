package models

import "time"

// ReportStatus tracks an asynchronous report generation job.
type ReportStatus string

const (
	ReportQueued     ReportStatus = "queued"
	ReportProcessing ReportStatus = "processing"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// ReportJob is a queued appraisal report generation request.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	TraineeID   string       `db:"trainee_id" json:"trainee_id"`
	FormType    FormType     `db:"form_type" json:"form_type"`
	Status      ReportStatus `db:"status" json:"status"`
	FilePath    *string      `db:"file_path" json:"-"`
	ErrorText   *string      `db:"error_text" json:"error,omitempty"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// ReportStatusResponse is the polling payload, including the signed download
// URL once the file is ready.
type ReportStatusResponse struct {
	ID          string       `json:"id"`
	Status      ReportStatus `json:"status"`
	DownloadURL string       `json:"download_url,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}
