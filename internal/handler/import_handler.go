package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parishhub/chms-api/internal/service"
	appErrors "github.com/parishhub/chms-api/pkg/errors"
	"github.com/parishhub/chms-api/pkg/response"
)

// ImportHandler receives member CSV uploads.
type ImportHandler struct {
	service     *service.ImportService
	maxFileSize int64
}

// NewImportHandler constructs an import handler. maxFileSize bounds the
// accepted upload in bytes.
func NewImportHandler(svc *service.ImportService, maxFileSize int64) *ImportHandler {
	return &ImportHandler{service: svc, maxFileSize: maxFileSize}
}

// ImportMembers godoc
// @Summary Import ministry members from a CSV file
// @Description Multipart upload under the "file" field. Rows are applied
// @Description independently; bad rows are reported without aborting the rest.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Ministry ID"
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /ministries/{id}/members/import [post]
func (h *ImportHandler) ImportMembers(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file upload"))
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", h.maxFileSize)))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.service.ImportMembers(c.Request.Context(), c.Param("id"), claims.UserID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
