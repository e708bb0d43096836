package middleware

import (
	"time"

	"github.com/blip-health/blipgate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestLogMiddleware tags every request with an id and logs one line when
// it completes. Headers are never logged, so credentials stay out of logs.
func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.New().String()
		}
		c.Set(ContextRequestID, reqID)
		c.Header(HeaderRequestID, reqID)

		c.Next()

		logger.Info("request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// RequestID returns the id assigned by RequestLogMiddleware, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
