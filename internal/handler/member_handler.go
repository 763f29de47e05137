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

// MemberHandler exposes ministry membership endpoints.
type MemberHandler struct {
	service *service.MemberService
}

// NewMemberHandler constructs a member handler.
func NewMemberHandler(svc *service.MemberService) *MemberHandler {
	return &MemberHandler{service: svc}
}

// List godoc
// @Summary List ministry members
// @Tags Members
// @Produce json
// @Param id path string true "Ministry ID"
// @Param role query string false "Filter by member role"
// @Param active query bool false "Filter by active state"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id}/members [get]
func (h *MemberHandler) List(c *gin.Context) {
	var req service.MemberListRequest
	req.Role = c.Query("role")
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

	members, pagination, err := h.service.List(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, pagination)
}

// Get godoc
// @Summary Get member detail
// @Tags Members
// @Produce json
// @Param memberId path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Router /members/{memberId} [get]
func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.service.Get(c.Request.Context(), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// Add godoc
// @Summary Add member to ministry
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Ministry ID"
// @Param payload body service.AddMemberRequest true "Member payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /ministries/{id}/members [post]
func (h *MemberHandler) Add(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	member, err := h.service.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// Update godoc
// @Summary Update member
// @Tags Members
// @Accept json
// @Produce json
// @Param memberId path string true "Member ID"
// @Param payload body service.UpdateMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /members/{memberId} [put]
func (h *MemberHandler) Update(c *gin.Context) {
	var req service.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	member, err := h.service.Update(c.Request.Context(), c.Param("memberId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// Remove godoc
// @Summary Remove member from ministry
// @Tags Members
// @Produce json
// @Param memberId path string true "Member ID"
// @Success 204
// @Router /members/{memberId} [delete]
func (h *MemberHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("memberId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
