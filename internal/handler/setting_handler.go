package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishhub/chms-api/internal/service"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/response"
)

// SettingHandler exposes the key-value settings endpoints.
type SettingHandler struct {
	service *service.SettingService
}

// NewSettingHandler constructs a setting handler.
func NewSettingHandler(svc *service.SettingService) *SettingHandler {
	return &SettingHandler{service: svc}
}

// List godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingHandler) List(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Get godoc
// @Summary Get setting by key
// @Tags Settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [get]
func (h *SettingHandler) Get(c *gin.Context) {
	setting, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// Put godoc
// @Summary Create or replace a setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body service.PutSettingRequest true "Setting value"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [put]
func (h *SettingHandler) Put(c *gin.Context) {
	var req service.PutSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	setting, err := h.service.Put(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}
