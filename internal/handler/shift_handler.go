package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parishhub/chms-api/internal/dto"
	"github.com/parishhub/chms-api/internal/service"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/response"
)

// ShiftHandler exposes shift slot and rotation endpoints.
type ShiftHandler struct {
	shifts   *service.ShiftService
	rotation *service.RotationService
	metrics  *service.MetricsService
}

// NewShiftHandler constructs a shift handler.
func NewShiftHandler(shifts *service.ShiftService, rotation *service.RotationService, metrics *service.MetricsService) *ShiftHandler {
	return &ShiftHandler{shifts: shifts, rotation: rotation, metrics: metrics}
}

// List godoc
// @Summary List ministry shifts grouped into time slots
// @Tags Shifts
// @Produce json
// @Param id path string true "Ministry ID"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param unassigned query bool false "Only open or only filled positions"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id}/shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	var req service.ShiftListRequest
	req.From = strings.TrimSpace(c.Query("from"))
	req.To = strings.TrimSpace(c.Query("to"))
	if raw := c.Query("unassigned"); raw != "" {
		if unassigned, err := strconv.ParseBool(raw); err == nil {
			req.Unassigned = &unassigned
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		req.PageSize = size
	}
	req.SortOrder = c.Query("order")

	slots, pagination, err := h.shifts.List(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Get shift detail
// @Tags Shifts
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Router /shifts/{shiftId} [get]
func (h *ShiftHandler) Get(c *gin.Context) {
	shift, err := h.shifts.Get(c.Request.Context(), c.Param("shiftId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

// CreateGroup godoc
// @Summary Create a group of shift positions for one slot
// @Tags Shifts
// @Accept json
// @Produce json
// @Param id path string true "Ministry ID"
// @Param payload body dto.CreateShiftGroupRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /ministries/{id}/shifts [post]
func (h *ShiftHandler) CreateGroup(c *gin.Context) {
	var req dto.CreateShiftGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.shifts.CreateGroup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// DeleteGroup godoc
// @Summary Delete every shift in a slot group
// @Tags Shifts
// @Accept json
// @Produce json
// @Param id path string true "Ministry ID"
// @Param payload body dto.DeleteShiftGroupRequest true "Slot identifier"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id}/shifts [delete]
func (h *ShiftHandler) DeleteGroup(c *gin.Context) {
	var req dto.DeleteShiftGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.shifts.DeleteGroup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assign godoc
// @Summary Assign a member to a shift position
// @Tags Shifts
// @Accept json
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Param payload body dto.AssignShiftRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /shifts/{shiftId}/assign [post]
func (h *ShiftHandler) Assign(c *gin.Context) {
	var req dto.AssignShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	shift, err := h.shifts.Assign(c.Request.Context(), c.Param("shiftId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

// Unassign godoc
// @Summary Clear the assignee of a shift position
// @Tags Shifts
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Router /shifts/{shiftId}/unassign [post]
func (h *ShiftHandler) Unassign(c *gin.Context) {
	shift, err := h.shifts.Unassign(c.Request.Context(), c.Param("shiftId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

// Delete godoc
// @Summary Delete a single shift position
// @Tags Shifts
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Success 204
// @Router /shifts/{shiftId} [delete]
func (h *ShiftHandler) Delete(c *gin.Context) {
	if err := h.shifts.Delete(c.Request.Context(), c.Param("shiftId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Rotate godoc
// @Summary Run the rotation engine across all active ministries
// @Tags Shifts
// @Accept json
// @Produce json
// @Param payload body dto.RotateShiftsRequest true "Rotation parameters"
// @Success 200 {object} response.Envelope
// @Router /shifts/rotate [post]
func (h *ShiftHandler) Rotate(c *gin.Context) {
	var req dto.RotateShiftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, assignments, err := h.rotation.Rotate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveRotationRun(req.DryRun, result.Created)
	}
	response.JSON(c, http.StatusOK, gin.H{"summary": result, "assignments": assignments}, nil)
}

// RotateMinistry godoc
// @Summary Run the rotation engine for one ministry
// @Tags Shifts
// @Accept json
// @Produce json
// @Param id path string true "Ministry ID"
// @Param payload body dto.RotateShiftsRequest true "Rotation parameters"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id}/shifts/rotate [post]
func (h *ShiftHandler) RotateMinistry(c *gin.Context) {
	var req dto.RotateShiftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, assignments, err := h.rotation.RotateMinistry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveRotationRun(req.DryRun, result.Created)
	}
	response.JSON(c, http.StatusOK, gin.H{"summary": result, "assignments": assignments}, nil)
}
