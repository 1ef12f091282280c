package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/middleware"
	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/service"
	"github.com/word-sanctuary/appraisal-api/pkg/response"
)

type formStoreStub struct {
	submissions map[string]models.FormSubmission
	statuses    map[string]models.FormStatus
}

func newFormStoreStub() *formStoreStub {
	return &formStoreStub{
		submissions: map[string]models.FormSubmission{},
		statuses:    map[string]models.FormStatus{},
	}
}

func (s *formStoreStub) SaveSubmission(ctx context.Context, formType models.FormType, submissionID string, submission models.FormSubmission, status models.FormStatus) error {
	s.submissions[models.FormKey(formType, submissionID)] = submission
	s.statuses[models.StatusKey(formType, submissionID)] = status
	return nil
}

func (s *formStoreStub) GetSubmission(ctx context.Context, formType models.FormType, submissionID string) (*models.FormSubmission, error) {
	if submission, ok := s.submissions[models.FormKey(formType, submissionID)]; ok {
		return &submission, nil
	}
	return nil, nil
}

func (s *formStoreStub) GetStatus(ctx context.Context, formType models.FormType, submissionID string) (models.FormStatus, error) {
	if status, ok := s.statuses[models.StatusKey(formType, submissionID)]; ok {
		return status, nil
	}
	return models.PendingStatus(), nil
}

func (s *formStoreStub) BatchStatuses(ctx context.Context, formType models.FormType, submissionIDs []string) (map[string]models.FormStatus, error) {
	result := make(map[string]models.FormStatus, len(submissionIDs))
	for _, id := range submissionIDs {
		if status, ok := s.statuses[models.StatusKey(formType, id)]; ok {
			result[id] = status
		} else {
			result[id] = models.PendingStatus()
		}
	}
	return result, nil
}

type traineeSourceStub struct {
	trainees []models.Trainee
}

func (s *traineeSourceStub) List(ctx context.Context, filter models.TraineeFilter) ([]models.Trainee, int, error) {
	return s.trainees, len(s.trainees), nil
}

func newAppraisalTestHandler(forms *formStoreStub, trainees *traineeSourceStub) *AppraisalHandler {
	svc := service.NewAppraisalService(forms, trainees, nil, nil, nil)
	return NewAppraisalHandler(svc, nil)
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAppraisalHandlerSubmit(t *testing.T) {
	forms := newFormStoreStub()
	h := newAppraisalTestHandler(forms, &traineeSourceStub{})

	payload, _ := json.Marshal(service.SubmitFormRequest{
		Fields:      map[string]string{"q1": "good"},
		SubjectName: "John",
	})
	c, w := testContext(t, http.MethodPut, "/appraisals/mentor/John_t1", payload)
	c.Params = gin.Params{{Key: "formType", Value: "mentor"}, {Key: "submissionId", Value: "John_t1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleLeadership})

	h.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(models.FormStatusCompleted), data["status"])
}

func TestAppraisalHandlerSubmitUnknownFormType(t *testing.T) {
	h := newAppraisalTestHandler(newFormStoreStub(), &traineeSourceStub{})

	payload, _ := json.Marshal(service.SubmitFormRequest{
		Fields:      map[string]string{"q1": "good"},
		SubjectName: "John",
	})
	c, w := testContext(t, http.MethodPut, "/appraisals/bogus/John_t1", payload)
	c.Params = gin.Params{{Key: "formType", Value: "bogus"}, {Key: "submissionId", Value: "John_t1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleLeadership})

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppraisalHandlerSubmitWithoutClaims(t *testing.T) {
	h := newAppraisalTestHandler(newFormStoreStub(), &traineeSourceStub{})

	c, w := testContext(t, http.MethodPut, "/appraisals/mentor/John_t1", []byte(`{}`))
	c.Params = gin.Params{{Key: "formType", Value: "mentor"}, {Key: "submissionId", Value: "John_t1"}}

	h.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppraisalHandlerGetSubmissionAbsent(t *testing.T) {
	h := newAppraisalTestHandler(newFormStoreStub(), &traineeSourceStub{})

	c, w := testContext(t, http.MethodGet, "/appraisals/hoi/nobody", nil)
	c.Params = gin.Params{{Key: "formType", Value: "hoi"}, {Key: "submissionId", Value: "nobody"}}

	h.GetSubmission(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Data)
}

func TestAppraisalHandlerListJoinsStatuses(t *testing.T) {
	forms := newFormStoreStub()
	trainees := &traineeSourceStub{trainees: []models.Trainee{
		{ID: "t1", Name: "John", TrainingType: "HOD", Installation: "Kwasu"},
	}}
	h := newAppraisalTestHandler(forms, trainees)

	c, w := testContext(t, http.MethodGet, "/appraisals/mentor", nil)
	c.Params = gin.Params{{Key: "formType", Value: "mentor"}}

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	rows, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "John_t1", row["submission_id"])
	assert.Equal(t, string(models.FormStatusPending), row["status"])
}
