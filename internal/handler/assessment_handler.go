package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/service"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/response"
)

// AssessmentHandler exposes assessment management and the timed attempt
// lifecycle.
type AssessmentHandler struct {
	assessments *service.AssessmentService
}

// NewAssessmentHandler constructs AssessmentHandler.
func NewAssessmentHandler(assessments *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// List godoc
// @Summary List assessments
// @Tags Assessments
// @Produce json
// @Param search query string false "Search by title"
// @Param type query string false "Filter by type" Enums(ASSIGNMENT, TEST, EXAM)
// @Param training_type query string false "Filter by training type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	var filter models.AssessmentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.TrainingType = c.Query("training_type")
	if t := c.Query("type"); t != "" {
		v := models.AssessmentType(t)
		filter.Type = &v
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	assessments, pagination, err := h.assessments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, pagination)
}

// Get godoc
// @Summary Get an assessment with its questions
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	assessment, err := h.assessments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// Create godoc
// @Summary Create an assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assessment payload"))
		return
	}

	assessment, err := h.assessments.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// Delete godoc
// @Summary Delete an assessment and its attempts
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 204
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) Delete(c *gin.Context) {
	if err := h.assessments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadQuestions godoc
// @Summary Replace assessment questions from a CSV upload
// @Tags Assessments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assessment ID"
// @Param file formData file true "CSV file, one prompt per row"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/questions [post]
func (h *AssessmentHandler) UploadQuestions(c *gin.Context) {
	var reader io.Reader

	if file, err := c.FormFile("file"); err == nil {
		opened, err := file.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
			return
		}
		defer opened.Close()
		reader = opened
	} else {
		// Raw CSV body is accepted as well.
		reader = c.Request.Body
	}

	questions, err := h.assessments.UploadQuestionsCSV(c.Request.Context(), c.Param("id"), reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// StartAttempt godoc
// @Summary Start or resume a timed attempt
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param payload body object true "Attempt payload"
// @Success 201 {object} response.Envelope
// @Router /assessments/{id}/attempts [post]
func (h *AssessmentHandler) StartAttempt(c *gin.Context) {
	var payload struct {
		TraineeID string `json:"trainee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "trainee_id required"))
		return
	}

	attempt, err := h.assessments.StartAttempt(c.Request.Context(), c.Param("id"), payload.TraineeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

// SubmitAnswer godoc
// @Summary Submit the answer for a timed attempt
// @Tags Assessments
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Param payload body service.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Router /attempts/{attemptId}/answer [put]
func (h *AssessmentHandler) SubmitAnswer(c *gin.Context) {
	var req service.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}

	attempt, err := h.assessments.SubmitAnswer(c.Request.Context(), c.Param("attemptId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

// RecordViolation godoc
// @Summary Record a proctoring violation signal
// @Tags Assessments
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Router /attempts/{attemptId}/violations [post]
func (h *AssessmentHandler) RecordViolation(c *gin.Context) {
	count, err := h.assessments.RecordViolation(c.Request.Context(), c.Param("attemptId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"violations": count}, nil)
}

// Score godoc
// @Summary Grade a finished attempt
// @Tags Assessments
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Param payload body service.ScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /attempts/{attemptId}/score [put]
func (h *AssessmentHandler) Score(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	attempt, err := h.assessments.Score(c.Request.Context(), c.Param("attemptId"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

// ListAttempts godoc
// @Summary List attempts for an assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/attempts [get]
func (h *AssessmentHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.assessments.ListAttempts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// Results godoc
// @Summary Summarise graded attempts for an assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/results [get]
func (h *AssessmentHandler) Results(c *gin.Context) {
	results, err := h.assessments.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
