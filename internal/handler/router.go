package handler

import (
	"net/http"

	"github.com/blip-health/blipgate/internal/config"
	"github.com/blip-health/blipgate/internal/middleware"
	"github.com/blip-health/blipgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Config  *config.Config
	Gateway *service.GatewayService
	Audit   *service.AuditService // nil when auditing is disabled
	Limiter *service.CredentialLimiter
}

// NewRouter mounts the local endpoints and sends everything else to the proxy.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	r.Use(middleware.RequestLogMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "blipgate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	auditHandler := NewAuditHandler(deps.Audit)
	admin := r.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg.Auth.AdminKey))
	{
		admin.GET("/audit", auditHandler.List)
	}

	proxy := NewProxyHandler(deps.Gateway)
	r.NoRoute(
		middleware.AuthMiddleware(),
		middleware.RateLimitMiddleware(deps.Limiter),
		middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly),
		proxy.Handle,
	)
	return r
}
