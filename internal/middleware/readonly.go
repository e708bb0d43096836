package middleware

import (
	"net/http"

	"github.com/blip-health/blipgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// ReadOnlyMiddleware rejects proxied writes during maintenance.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodDelete, http.MethodPost, http.MethodPatch:
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
		default:
			c.Next()
		}
	}
}
