package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/makkenzo/machine-license-api/internal/ierr"
)

type availability interface {
	Available() bool
}

// RequireStore short-circuits with 503 when the license store never came up.
func RequireStore(store availability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.Available() {
			_ = c.Error(ierr.ErrStoreUnavailable)
			c.Abort()
			return
		}
		c.Next()
	}
}
