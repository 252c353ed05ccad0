package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  pinger
	logger *zap.Logger
}

func NewHealthHandler(store pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	storeStatus := "ok"
	if err := h.store.Ping(c.Request.Context()); err != nil {
		storeStatus = "error"
		h.logger.Error("Health check: license store ping failed", zap.Error(err))
	}

	if storeStatus == "error" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"dependencies": gin.H{
				"store": storeStatus,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"dependencies": gin.H{
			"store": storeStatus,
		},
	})
}
