package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/makkenzo/machine-license-api/internal/ierr"
	"github.com/makkenzo/machine-license-api/internal/util"
)

const AdminKeyHeader = "X-Admin-API-Key"

// AdminKeyMiddleware rejects requests whose X-Admin-API-Key does not match
// the configured secret. It must run before any store check or handler.
func AdminKeyMiddleware(verifier *util.AdminKeyVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AdminKeyMiddleware")
	if !verifier.Configured() {
		log.Warn("No admin key configured, every admin request will be rejected")
	}
	return func(c *gin.Context) {
		if !verifier.Verify(c.GetHeader(AdminKeyHeader)) {
			log.Warn("Admin key rejected", zap.String("path", c.FullPath()), zap.String("client_ip", c.ClientIP()))
			_ = c.Error(ierr.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
