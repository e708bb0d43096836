package middleware

import (
	"github.com/blip-health/blipgate/internal/pkg/apperrors"
	"github.com/blip-health/blipgate/internal/service"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles per Authorization value. Must run after AuthMiddleware.
func RateLimitMiddleware(limiter *service.CredentialLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.GetHeader(HeaderAuthorization)) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
		c.Abort()
	}
}
