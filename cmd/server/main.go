package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blip-health/blipgate/internal/config"
	"github.com/blip-health/blipgate/internal/handler"
	"github.com/blip-health/blipgate/internal/pkg/logger"
	"github.com/blip-health/blipgate/internal/repository"
	"github.com/blip-health/blipgate/internal/service"
	"github.com/blip-health/blipgate/internal/upstream"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Initialize Logger
	logger.Init(cfg.Log.Level)
	gin.SetMode(gin.ReleaseMode)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// 2. Initialize Persistence
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			defer redisClient.Close()
		} else {
			logger.Error("⚠️ Failed to connect to Redis", "error", err)
			redisClient = nil
		}
	}

	// Response cache (Redis > LevelDB > Memory, per cache.backend)
	var cache *service.ResponseCache
	if cfg.Cache.Enabled {
		var store service.CacheStore
		switch cfg.Cache.Backend {
		case "redis":
			if redisClient != nil {
				store = repository.NewRedisCacheStore(redisClient, cfg.Redis.CachePrefix)
			} else {
				logger.Warn("⚠️ Redis cache unavailable, falling back to memory")
			}
		case "leveldb":
			ldb, err := repository.NewLevelDBCacheStore(cfg.Cache.LevelDBPath)
			if err == nil {
				logger.Info("✅ Opened LevelDB cache", "path", cfg.Cache.LevelDBPath)
				defer ldb.Close()
				store = ldb
			} else {
				logger.Error("⚠️ Failed to open LevelDB cache, falling back to memory", "error", err)
			}
		}
		if store == nil {
			store = service.NewMemoryCacheStore(cfg.Cache.MaxEntries)
		}
		cache = service.NewResponseCache(store, cfg.CacheTTL())
		go cache.RunSweeper(bgCtx, time.Duration(cfg.Cache.CleanupIntervalSeconds)*time.Second)
	}

	// Audit sinks (HTTP, Redis list, PostgreSQL)
	var sinks []service.AuditSink
	var auditRepo service.AuditRepo
	if cfg.Audit.SinkURL != "" {
		sinks = append(sinks, repository.NewHTTPAuditSink(cfg.Audit.SinkURL, cfg.AuditTimeout()))
	}
	if redisClient != nil {
		redisSink := repository.NewRedisAuditSink(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
		sinks = append(sinks, redisSink)
		auditRepo = redisSink
	}
	if cfg.Audit.DatabaseDSN != "" {
		db, err := repository.NewDB(cfg.Audit.DatabaseDSN)
		if err == nil {
			pgSink := repository.NewPostgresAuditSink(db)
			if err := pgSink.Migrate(context.Background()); err != nil {
				logger.Error("⚠️ Failed to migrate audit table", "error", err)
			} else {
				logger.Info("✅ Connected to PostgreSQL")
				sinks = append(sinks, pgSink)
				auditRepo = pgSink
			}
		} else {
			logger.Error("⚠️ Failed to connect to DB, audit events stay in memory", "error", err)
		}
	}

	// 3. Initialize Core Services
	client := upstream.NewClient(upstream.Options{
		BaseURL:      cfg.UpstreamBase(),
		Timeout:      cfg.UpstreamTimeout(),
		MaxAttempts:  cfg.Upstream.MaxAttempts,
		RetryWaitMin: time.Duration(cfg.Upstream.RetryWaitMinMs) * time.Millisecond,
		RetryWaitMax: time.Duration(cfg.Upstream.RetryWaitMaxMs) * time.Millisecond,
	})
	identity := service.NewIdentityResolver(client, cfg.Identity.DisplayNameSource)

	var auditSvc *service.AuditService
	var recorder service.AuditRecorder
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(service.AuditOptions{
			QueueSize:  cfg.Audit.QueueSize,
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			Timeout:    cfg.AuditTimeout(),
		}, identity, auditRepo, sinks...)
		recorder = auditSvc
	}

	gatewaySvc := service.NewGatewayService(client, cache, identity, service.NewScreeningOrchestrator(client), recorder)

	// 4. Setup Router
	r := handler.NewRouter(handler.RouterDeps{
		Config:  cfg,
		Gateway: gatewaySvc,
		Audit:   auditSvc,
		Limiter: service.NewCredentialLimiter(cfg.RateLimit.QPS, cfg.RateLimit.Burst),
	})

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 BlipGate started", "port", cfg.Server.Port, "upstream", cfg.UpstreamBase())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	stopBackground()
	if auditSvc != nil {
		auditSvc.Close()
	}

	logger.Info("Server exiting")
}
