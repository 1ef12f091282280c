package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/service"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/response"
)

// AppraisalHandler exposes the per-audience form endpoints.
type AppraisalHandler struct {
	appraisals *service.AppraisalService
	dashboards *service.DashboardService
}

// NewAppraisalHandler constructs AppraisalHandler.
func NewAppraisalHandler(appraisals *service.AppraisalService, dashboards *service.DashboardService) *AppraisalHandler {
	return &AppraisalHandler{appraisals: appraisals, dashboards: dashboards}
}

func formTypeFromPath(c *gin.Context) (models.FormType, bool) {
	formType := models.FormType(c.Param("formType"))
	if !formType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown form type"))
		return "", false
	}
	return formType, true
}

// List godoc
// @Summary List appraisal rows for a form audience
// @Tags Appraisals
// @Produce json
// @Param formType path string true "Form type" Enums(mentor, hoi, central, department)
// @Param search query string false "Search by name"
// @Param training_type query []string false "Filter by training type"
// @Param installation query []string false "Filter by installation"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{formType} [get]
func (h *AppraisalHandler) List(c *gin.Context) {
	formType, ok := formTypeFromPath(c)
	if !ok {
		return
	}

	rows, pagination, err := h.appraisals.ListRows(c.Request.Context(), formType, traineeFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// GetSubmission godoc
// @Summary Read a stored form submission
// @Tags Appraisals
// @Produce json
// @Param formType path string true "Form type"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{formType}/{submissionId} [get]
func (h *AppraisalHandler) GetSubmission(c *gin.Context) {
	formType, ok := formTypeFromPath(c)
	if !ok {
		return
	}

	submission, err := h.appraisals.GetSubmission(c.Request.Context(), formType, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// GetStatus godoc
// @Summary Read a submission's completion status
// @Tags Appraisals
// @Produce json
// @Param formType path string true "Form type"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{formType}/{submissionId}/status [get]
func (h *AppraisalHandler) GetStatus(c *gin.Context) {
	formType, ok := formTypeFromPath(c)
	if !ok {
		return
	}

	status, err := h.appraisals.GetStatus(c.Request.Context(), formType, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Submit godoc
// @Summary Submit or resubmit a form
// @Tags Appraisals
// @Accept json
// @Produce json
// @Param formType path string true "Form type"
// @Param submissionId path string true "Submission ID"
// @Param payload body service.SubmitFormRequest true "Form payload"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{formType}/{submissionId} [put]
func (h *AppraisalHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	formType, ok := formTypeFromPath(c)
	if !ok {
		return
	}

	var req service.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form payload"))
		return
	}

	status, err := h.appraisals.Submit(c.Request.Context(), formType, c.Param("submissionId"), req, claims.Role, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboards != nil {
		h.dashboards.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, status, nil)
}
