// Package main is the entrypoint for the detection job API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/handler"
	mw "github.com/NethraK15/Giza-Global-Eval-Task/internal/api/middleware"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/cache"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/config"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/jobs"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/metrics"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/queue"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 30 * time.Second
	devTokenTTL     = 24 * time.Hour
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"object_store", cfg.ObjectStore.Provider,
		"model_name", cfg.Model.Name,
		"model_version", cfg.Model.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database, "giza-api")
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations (also seeds the default owner)
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Redis backs both the work queue and the rate limiter
	redisClient, err := cache.NewClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient)
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	workQueue := queue.NewRedisQueue(redisClient, cfg.Queue.Name)
	slog.Info("redis connected", "queue", workQueue.Name())

	// 5. Object store and bucket
	objects, err := objectstore.New(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}
	if err := objects.EnsureBucket(ctx, cfg.ObjectStore.Bucket); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	slog.Info("object store ready", "provider", cfg.ObjectStore.Provider, "bucket", cfg.ObjectStore.Bucket)

	// 6. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	registry.MustRegister(metrics.NewQueueDepth(workQueue.Name(), workQueue.Len))

	// 7. Store and services
	pgStore := store.NewPostgresStore(pool)
	svc := jobs.NewService(pgStore, objects, workQueue, cfg.ObjectStore.Bucket, cfg.Model, m)

	if cfg.Server.Env == "development" {
		token, err := mw.IssueToken(cfg.Auth.SecretKey, models.DefaultOwnerID, devTokenTTL)
		if err != nil {
			return fmt.Errorf("issue development token: %w", err)
		}
		slog.Info("development token for the default owner", "owner_id", models.DefaultOwnerID, "token", token)
	}

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore, cfg.Auth.SecretKey),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute),

		HealthHandler:  handler.NewHealthHandler(),
		ReadyHandler:   handler.NewReadyHandler(readyChecks(pgStore, workQueue, redisCache, objects, cfg.ObjectStore.Bucket)),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		SubmitJobHandler: handler.NewSubmitJobHandler(svc, cfg.Server.UploadMaxBytes),
		ListJobsHandler:  handler.NewListJobsHandler(svc),
		GetJobHandler:    handler.NewGetJobHandler(svc),
		OverlayHandler:   handler.NewOverlayHandler(svc),
		CSVHandler:       handler.NewCSVHandler(svc),
		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// readyChecks lists the dependencies /ready checks.
func readyChecks(db, q, c pinger, objects objectstore.Store, bucket string) map[string]handler.Check {
	return map[string]handler.Check{
		"database": db.Ping,
		"queue":    q.Ping,
		"cache":    c.Ping,
		"objects": func(ctx context.Context) error {
			return objects.Ping(ctx, bucket)
		},
	}
}
