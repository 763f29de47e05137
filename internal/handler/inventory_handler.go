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

// InventoryHandler exposes inventory endpoints.
type InventoryHandler struct {
	service *service.InventoryService
}

// NewInventoryHandler constructs an inventory handler.
func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: svc}
}

// List godoc
// @Summary List inventory items
// @Tags Inventory
// @Produce json
// @Param search query string false "Search keyword"
// @Param category query string false "Filter by category"
// @Param low_stock query bool false "Only items at or below their threshold"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var req service.InventoryListRequest
	req.Search = strings.TrimSpace(c.Query("search"))
	req.Category = c.Query("category")
	if raw := c.Query("low_stock"); raw != "" {
		if lowStock, err := strconv.ParseBool(raw); err == nil {
			req.LowStock = lowStock
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

	items, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get inventory item
// @Tags Inventory
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create inventory item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body service.CreateInventoryItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req service.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update inventory item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.UpdateInventoryItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /inventory/{id} [put]
func (h *InventoryHandler) Update(c *gin.Context) {
	var req service.UpdateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Adjust godoc
// @Summary Apply a relative quantity change
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.AdjustQuantityRequest true "Quantity delta"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inventory/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req service.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Adjust(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete inventory item
// @Tags Inventory
// @Produce json
// @Param id path string true "Item ID"
// @Success 204
// @Router /inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
