package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		metrics.RequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.LatencyBucket.WithLabelValues(c.Request.Method, categoryLabel(c.Request.URL.Path)).Observe(duration)
	}
}

// categoryLabel keeps label cardinality bounded: ids never become labels.
func categoryLabel(path string) string {
	head, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if head == "" {
		return "root"
	}
	if cat, ok := model.ParseCategory(head); ok {
		return string(cat)
	}
	return "other"
}
