package models

import "fmt"

// FormType identifies the appraisal audience a form belongs to.
type FormType string

const (
	FormMentor     FormType = "mentor"
	FormHOI        FormType = "hoi"
	FormCentral    FormType = "central"
	FormDepartment FormType = "department"
)

// Valid reports whether the form type is one of the known audiences.
func (f FormType) Valid() bool {
	switch f {
	case FormMentor, FormHOI, FormCentral, FormDepartment:
		return true
	}
	return false
}

// Form/status key patterns. These mirror the legacy client's storage layout
// so existing exports remain readable.
const (
	formKeyPattern   = "%s_form_%s"
	statusKeyPattern = "%s_status_%s"
)

// FormKey returns the storage key for a submission body.
func FormKey(formType FormType, submissionID string) string {
	return fmt.Sprintf(formKeyPattern, formType, submissionID)
}

// StatusKey returns the storage key for a submission's status record.
func StatusKey(formType FormType, submissionID string) string {
	return fmt.Sprintf(statusKeyPattern, formType, submissionID)
}

// SubmissionID builds the default composite submission identifier for a
// subject when the caller does not supply one.
func SubmissionID(subjectName, traineeID string) string {
	return fmt.Sprintf("%s_%s", subjectName, traineeID)
}

// FormSubmission is a stored set of question/answer pairs tied to a subject
// and form type.
type FormSubmission struct {
	Fields      map[string]string `json:"fields"`
	SubjectName string            `json:"subject_name"`
	SubmittedAt string            `json:"submitted_at"`
	SubmittedBy Role              `json:"submitted_by"`
	FormType    FormType          `json:"form_type"`
}

// FormStatusValue is the completion state of a form submission.
type FormStatusValue string

const (
	FormStatusPending   FormStatusValue = "pending"
	FormStatusCompleted FormStatusValue = "completed"
)

// FormStatus is the derived completion marker stored alongside a submission.
// CompletedAt is set on first completion and preserved on resubmission;
// LastModified moves on every write.
type FormStatus struct {
	Status       FormStatusValue `json:"status"`
	CompletedAt  string          `json:"completedAt,omitempty"`
	LastModified string          `json:"lastModified,omitempty"`
}

// PendingStatus is the default status for records with no stored entry.
func PendingStatus() FormStatus {
	return FormStatus{Status: FormStatusPending}
}

// AppraisalRow is an appraisal list item joined with its form status and a
// freshly computed relative submission age.
type AppraisalRow struct {
	AppraisalListItem
	SubmissionID string          `json:"submission_id"`
	Status       FormStatusValue `json:"status"`
	CompletedAt  string          `json:"completed_at,omitempty"`
	LastModified string          `json:"last_modified,omitempty"`
	RelativeTime string          `json:"relative_time,omitempty"`
}
