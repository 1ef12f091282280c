package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/word-sanctuary/appraisal-api/internal/service"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
	"github.com/word-sanctuary/appraisal-api/pkg/response"
)

// DashboardHandler wires the role dashboard to HTTP.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Summary godoc
// @Summary Role dashboard summary
// @Description Tiles for the role carried by the access token
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, cached, err := h.dashboards.Summary(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}
