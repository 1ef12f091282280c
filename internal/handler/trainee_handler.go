package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	"github.com/word-sanctuary/appraisal-api/internal/service"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/export"
	"github.com/word-sanctuary/appraisal-api/pkg/response"
)

// TraineeHandler exposes trainee listing, review and export endpoints.
type TraineeHandler struct {
	trainees        *service.TraineeService
	recommendations *service.RecommendationService
	csv             *export.CSVExporter
}

// NewTraineeHandler constructs TraineeHandler.
func NewTraineeHandler(trainees *service.TraineeService, recommendations *service.RecommendationService) *TraineeHandler {
	return &TraineeHandler{trainees: trainees, recommendations: recommendations, csv: export.NewCSVExporter()}
}

func traineeFilterFromQuery(c *gin.Context) models.TraineeFilter {
	var filter models.TraineeFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.TrainingTypes = c.QueryArray("training_type")
	filter.Installations = c.QueryArray("installation")
	if status := c.Query("status"); status != "" {
		v := models.ReviewStatus(status)
		filter.Status = &v
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List trainees
// @Tags Trainees
// @Produce json
// @Param search query string false "Search by name, email or phone"
// @Param training_type query []string false "Filter by training type"
// @Param installation query []string false "Filter by installation"
// @Param status query string false "Filter by review status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /trainees [get]
func (h *TraineeHandler) List(c *gin.Context) {
	rows, pagination, err := h.trainees.List(c.Request.Context(), traineeFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get trainee detail
// @Tags Trainees
// @Produce json
// @Param id path string true "Trainee ID"
// @Success 200 {object} response.Envelope
// @Router /trainees/{id} [get]
func (h *TraineeHandler) Get(c *gin.Context) {
	trainee, err := h.trainees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trainee, nil)
}

// Create godoc
// @Summary Register a trainee
// @Tags Trainees
// @Accept json
// @Produce json
// @Param payload body models.Trainee true "Trainee payload"
// @Success 201 {object} response.Envelope
// @Router /trainees [post]
func (h *TraineeHandler) Create(c *gin.Context) {
	var trainee models.Trainee
	if err := c.ShouldBindJSON(&trainee); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid trainee payload"))
		return
	}
	if err := h.trainees.Create(c.Request.Context(), &trainee); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, trainee)
}

// Update godoc
// @Summary Update a trainee
// @Tags Trainees
// @Accept json
// @Produce json
// @Param id path string true "Trainee ID"
// @Param payload body models.Trainee true "Trainee payload"
// @Success 200 {object} response.Envelope
// @Router /trainees/{id} [put]
func (h *TraineeHandler) Update(c *gin.Context) {
	var trainee models.Trainee
	if err := c.ShouldBindJSON(&trainee); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid trainee payload"))
		return
	}
	trainee.ID = c.Param("id")
	if err := h.trainees.Update(c.Request.Context(), &trainee); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trainee, nil)
}

// Review godoc
// @Summary Record the approve/deny review decision
// @Tags Trainees
// @Accept json
// @Produce json
// @Param id path string true "Trainee ID"
// @Param payload body object true "Decision payload"
// @Success 204
// @Router /trainees/{id}/review [put]
func (h *TraineeHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Decision models.ReviewStatus `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	if err := h.trainees.Review(c.Request.Context(), c.Param("id"), payload.Decision, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Aggregate trainee counts
// @Tags Trainees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /trainees/summary [get]
func (h *TraineeHandler) Summary(c *gin.Context) {
	summary, err := h.trainees.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Download the filtered trainee list as CSV
// @Tags Trainees
// @Produce text/csv
// @Success 200
// @Router /trainees/export [get]
func (h *TraineeHandler) Export(c *gin.Context) {
	dataset, err := h.trainees.Export(c.Request.Context(), traineeFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.csv.Render(*dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+service.ExportFilename())
	c.Data(http.StatusOK, "text/csv", data)
}

// GetRecommendation godoc
// @Summary Read the trainee's recommendation
// @Tags Trainees
// @Produce json
// @Param id path string true "Trainee ID"
// @Success 200 {object} response.Envelope
// @Router /trainees/{id}/recommendation [get]
func (h *TraineeHandler) GetRecommendation(c *gin.Context) {
	rec, err := h.recommendations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// SaveRecommendation godoc
// @Summary Write or clear the trainee's recommendation
// @Tags Trainees
// @Accept json
// @Produce json
// @Param id path string true "Trainee ID"
// @Param payload body service.SaveRecommendationRequest true "Recommendation payload"
// @Success 200 {object} response.Envelope
// @Router /trainees/{id}/recommendation [put]
func (h *TraineeHandler) SaveRecommendation(c *gin.Context) {
	var req service.SaveRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recommendation payload"))
		return
	}

	rec, err := h.recommendations.Save(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}
