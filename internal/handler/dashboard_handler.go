package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishhub/chms-api/internal/service"
	"github.com/parishhub/chms-api/pkg/response"
)

// DashboardHandler exposes the aggregated overview endpoint.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Overview godoc
// @Summary Aggregated dashboard sections
// @Description Each section resolves independently; a failing section
// @Description carries an error string instead of failing the request.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
