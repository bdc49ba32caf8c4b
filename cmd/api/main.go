package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qa-dashboard/engine/internal/api"
	"github.com/qa-dashboard/engine/internal/api/handlers"
	mw "github.com/qa-dashboard/engine/internal/api/middleware"
	"github.com/qa-dashboard/engine/internal/blob"
	"github.com/qa-dashboard/engine/internal/insights"
	"github.com/qa-dashboard/engine/internal/metrics"
	"github.com/qa-dashboard/engine/internal/queue/tasks"
	"github.com/qa-dashboard/engine/internal/repository"
	"github.com/qa-dashboard/engine/internal/services"
	"github.com/qa-dashboard/engine/pkg/config"
	"github.com/qa-dashboard/engine/pkg/database"
	"github.com/qa-dashboard/engine/pkg/logger"
)

const (
	blobTTL         = 24 * time.Hour
	cleanupRetries  = 5
	limiterIdle     = 10 * time.Minute
	limiterSweepGap = time.Minute
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting QA dashboard engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var (
		blobs   blob.Store
		cleanup services.CleanupQueue
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, offloaded payloads will fail until it recovers", zap.Error(err))
		}
		blobs = blob.NewRedisStore(rdb, cfg.BlobNamespace, blobTTL)

		qc := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer qc.Close()
		cleanup = tasks.NewCleanupEnqueuer(qc, cleanupRetries)
	} else {
		log.Warn("blob storage not configured, storagePath uploads are disabled")
	}

	// The sync handler stays nil-backed without a store so every request
	// reports the misconfiguration instead of the process refusing to start.
	var (
		syncSvc services.SyncService
		ready   func(context.Context) error
	)
	if cfg.StoreConfigured() {
		db, err := database.Open(ctx, database.Options{
			Driver:  cfg.StoreDriver,
			DSN:     cfg.DatabaseURL,
			Verbose: cfg.AppEnv == "development",
			Logger:  log,
		})
		if err != nil {
			log.Fatal("Failed to connect to document store", zap.Error(err))
		}
		log.Info("Document store connected", zap.String("driver", cfg.StoreDriver))
		if cfg.StoreDriver == "sqlite" {
			if err := repository.AutoMigrate(db); err != nil {
				log.Fatal("sqlite migration failed", zap.Error(err))
			}
		}

		syncSvc = services.NewSyncService(services.SyncDeps{
			Projects: repository.NewProjectRepository(db),
			Statuses: repository.NewTaskStatusRepository(db),
			Blobs:    blobs,
			Cleanup:  cleanup,
			Metrics:  m,
		}, services.SyncOptions{
			DefaultUserID:    cfg.DefaultUserID,
			SharedUserPrefix: cfg.SharedUserPrefix,
			ListTimeout:      cfg.ListTimeout,
			MaxPayloadBytes:  cfg.MaxPayloadBytes,
		})
		ready = pingStore(db)
	} else {
		log.Error("document store not configured, set STORE_DATABASE_URL or DATABASE_URL")
	}

	var recommender insights.Recommender
	if cfg.GeminiAPIKey != "" {
		g, err := insights.NewGeminiRecommender(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("gemini client unavailable, using rule-based insights", zap.Error(err))
		} else {
			recommender = g
		}
	}

	var limiter *mw.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go sweepLimiter(ctx, limiter)
	}

	router := api.NewRouter(api.Dependencies{
		JWTSecret:      []byte(cfg.JWTSecret),
		SyncHandler:    handlers.NewSyncHandler(syncSvc, cfg.MaxRequestBytes),
		QualityHandler: handlers.NewQualityHandler(insights.NewService(recommender)),
		BlobHandler:    handlers.NewBlobHandler(blobs, cfg.MaxRequestBytes),
		HealthHandler:  handlers.NewHealthHandler(ready),
		Metrics:        m,
		RateLimiter:    limiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}

func pingStore(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func sweepLimiter(ctx context.Context, l *mw.RateLimiter) {
	t := time.NewTicker(limiterSweepGap)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(limiterIdle)
		}
	}
}
