package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware guards operator routes. An empty key disables them.
func AdminMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin key not configured"})
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(HeaderAdminKey)), []byte(adminKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
