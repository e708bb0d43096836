package middleware

import (
	"github.com/blip-health/blipgate/internal/pkg/apperrors"
	"github.com/blip-health/blipgate/internal/route"
	"github.com/gin-gonic/gin"
)

const HeaderAuthorization = "Authorization"

// AuthMiddleware rejects proxied calls without an Authorization header. The
// credential itself is opaque here; the upstream decides whether it is valid.
// The root path is public and unsupported methods fall through to a 405.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" || !route.SupportedMethod(c.Request.Method) {
			c.Next()
			return
		}
		if c.GetHeader(HeaderAuthorization) == "" {
			c.Error(apperrors.NewAuthFailed("No Authorization header"))
			c.Abort()
			return
		}
		c.Next()
	}
}
