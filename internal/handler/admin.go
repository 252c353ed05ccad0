package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/machine-license-api/internal/handler/dto"
	"github.com/makkenzo/machine-license-api/internal/ierr"
	"github.com/makkenzo/machine-license-api/internal/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	service *service.LicenseService
	logger  *zap.Logger
}

func NewAdminHandler(service *service.LicenseService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.Named("AdminHandler"),
	}
}

func (h *AdminHandler) Generate(c *gin.Context) {
	var req dto.GenerateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind generate request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	lic, err := h.service.Generate(c.Request.Context(), service.GenerateParams{
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Duration:     req.Duration,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, lic)
}

func (h *AdminHandler) List(c *gin.Context) {
	licenses, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Debug("Licenses listed", zap.Int("count", len(licenses)))
	c.JSON(http.StatusOK, licenses)
}

func (h *AdminHandler) Update(c *gin.Context) {
	var req dto.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind update request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), req.LicenseKey, service.Patch{
		Extend:   req.Extend,
		IsActive: req.SetActive,
		Notes:    req.Notes,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.UpdateLicenseResponse{Status: "success", License: updated})
}

func (h *AdminHandler) Delete(c *gin.Context) {
	var req dto.DeleteLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind delete request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), req.LicenseKey); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusMessageResponse{
		Status:  "success",
		Message: fmt.Sprintf("License %s deleted.", req.LicenseKey),
	})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute license stats", zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse(stats))
}
