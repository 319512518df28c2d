package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vectorads/spendmetrics/internal/config"
	"github.com/vectorads/spendmetrics/internal/database"
	"github.com/vectorads/spendmetrics/internal/httpserver"
	"github.com/vectorads/spendmetrics/internal/ingest"
	"github.com/vectorads/spendmetrics/internal/intent"
	"github.com/vectorads/spendmetrics/internal/kpi"
	"github.com/vectorads/spendmetrics/internal/metrics"
	"github.com/vectorads/spendmetrics/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("starting spend metrics service",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics("spendmetrics")
	}

	// Spend store: Postgres when reachable, in-memory otherwise.
	var repo storage.SpendRepo
	db, err := database.NewPostgresDB(cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Warn("PostgreSQL not available, using in-memory storage", zap.Error(err))
		repo = storage.NewInMemorySpendRepo()
	} else {
		defer db.Close()
		logger.Info("connected to PostgreSQL")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := storage.EnsureSchema(ctx, db.Pool); err != nil {
			cancel()
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}
		cancel()
		repo = storage.NewPostgresSpendRepo(db.Pool)
	}

	// Result cache: optional, requires Redis.
	var cache *kpi.ResultCache
	if cfg.Cache.Enabled {
		redisDB, err := database.NewRedisDB(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis not available, result caching disabled", zap.Error(err))
		} else {
			defer redisDB.Close()
			logger.Info("connected to Redis")
			cache = kpi.NewResultCache(redisDB.Client, cfg.Cache.TTL, logger)
		}
	}

	kpiService := kpi.NewService(repo, cache, m)

	// Ingestion: disabled without a source URL (query-only deployment).
	var job *ingest.Job
	var scheduler *ingest.Scheduler
	if cfg.Ingest.SourceURL != "" {
		fetcher := ingest.NewFetcher(cfg.Ingest.SourceURL, cfg.Ingest.FetchTimeout)
		job = ingest.NewJob(repo, fetcher, cache, m, cfg.Ingest.DefaultSourceName, logger)

		scheduler, err = ingest.NewScheduler(job, cfg.Ingest.Schedule, cfg.Ingest.RunTimeout, logger)
		if err != nil {
			logger.Fatal("failed to set up ingest scheduler", zap.Error(err))
		}
		scheduler.Start()

		if cfg.Ingest.RunOnStart {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.RunTimeout)
				defer cancel()
				if _, err := job.Run(ctx); err != nil {
					logger.Warn("initial ingest run failed", zap.Error(err))
				}
			}()
		}
	} else {
		logger.Info("no ingest source configured, scheduler disabled")
	}

	handler := httpserver.NewServer(&httpserver.Dependencies{
		KPI:     kpiService,
		Intent:  intent.NewMapper(),
		Ingest:  job,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Prometheus metrics on a dedicated listener so /metrics on the API
	// port stays reserved for KPI queries.
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = &http.Server{
			Addr:    cfg.Metrics.Addr,
			Handler: metrics.Handler(),
		}
		go func() {
			logger.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Error("metrics server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config

	if cfg.IsDevelopment() || cfg.Log.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch cfg.Log.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}
