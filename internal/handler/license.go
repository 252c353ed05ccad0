package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/machine-license-api/internal/domain/license"
	"github.com/makkenzo/machine-license-api/internal/handler/dto"
	"github.com/makkenzo/machine-license-api/internal/ierr"
	"github.com/makkenzo/machine-license-api/internal/service"
	"go.uber.org/zap"
)

// LicenseHandler serves the client-facing endpoints. Business rejections are
// reported as 200 with a status field, never as an HTTP error.
type LicenseHandler struct {
	service *service.LicenseService
	logger  *zap.Logger
}

func NewLicenseHandler(service *service.LicenseService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.Named("LicenseHandler"),
	}
}

func (h *LicenseHandler) Activate(c *gin.Context) {
	var req dto.MachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind activate request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	res, err := h.service.Activate(c.Request.Context(), req.LicenseKey, req.MachineID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, statusResponse(res, true))
}

func (h *LicenseHandler) Validate(c *gin.Context) {
	var req dto.MachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind validate request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	res, err := h.service.Validate(c.Request.Context(), req.LicenseKey, req.MachineID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, statusResponse(res, false))
}

func statusResponse(res *service.ActivationResult, activation bool) dto.LicenseStatusResponse {
	resp := dto.LicenseStatusResponse{Status: res.Status}
	if res.Status == license.StatusValid {
		expiry := res.License.ExpiryDate
		resp.ExpiryDate = &expiry
		if activation {
			resp.Message = res.Status.Message(true)
		}
		return resp
	}
	resp.Message = res.Status.Message(activation)
	return resp
}
