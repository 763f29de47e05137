package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parishhub/chms-api/internal/service"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/response"
)

// MinistryHandler exposes ministry CRUD endpoints.
type MinistryHandler struct {
	service *service.MinistryService
}

// NewMinistryHandler constructs a ministry handler.
func NewMinistryHandler(svc *service.MinistryService) *MinistryHandler {
	return &MinistryHandler{service: svc}
}

// List godoc
// @Summary List ministries
// @Tags Ministries
// @Produce json
// @Param search query string false "Search keyword"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /ministries [get]
func (h *MinistryHandler) List(c *gin.Context) {
	var req service.MinistryListRequest
	req.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			req.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		req.PageSize = size
	}
	req.SortBy = c.Query("sort")
	req.SortOrder = c.Query("order")

	ministries, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ministries, pagination)
}

// Get godoc
// @Summary Get ministry detail
// @Tags Ministries
// @Produce json
// @Param id path string true "Ministry ID"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id} [get]
func (h *MinistryHandler) Get(c *gin.Context) {
	ministry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ministry, nil)
}

// Create godoc
// @Summary Create ministry
// @Tags Ministries
// @Accept json
// @Produce json
// @Param payload body service.CreateMinistryRequest true "Ministry payload"
// @Success 201 {object} response.Envelope
// @Router /ministries [post]
func (h *MinistryHandler) Create(c *gin.Context) {
	var req service.CreateMinistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ministry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ministry)
}

// Update godoc
// @Summary Update ministry
// @Tags Ministries
// @Accept json
// @Produce json
// @Param id path string true "Ministry ID"
// @Param payload body service.UpdateMinistryRequest true "Ministry payload"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id} [put]
func (h *MinistryHandler) Update(c *gin.Context) {
	var req service.UpdateMinistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ministry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ministry, nil)
}

// Delete godoc
// @Summary Delete ministry
// @Tags Ministries
// @Produce json
// @Param id path string true "Ministry ID"
// @Success 204
// @Router /ministries/{id} [delete]
func (h *MinistryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
