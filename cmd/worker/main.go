// Package main is the entrypoint for the detection worker. Each process runs
// one sequential consumer; scale by running more processes.
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

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/handler"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/cache"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/config"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/detect"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/metrics"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/objectstore"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/queue"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/store"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/worker"
	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"detector", cfg.Detector.Provider,
		"model_name", cfg.Model.Name,
		"model_version", cfg.Model.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database, "giza-worker")
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	redisClient, err := cache.NewClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer redisClient.Close()

	workQueue := queue.NewRedisQueue(redisClient, cfg.Queue.Name)
	if err := workQueue.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected", "queue", workQueue.Name())

	objects, err := objectstore.New(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}

	detector, err := detect.NewEngine(cfg.Detector)
	if err != nil {
		return fmt.Errorf("create detection engine: %w", err)
	}
	slog.Info("detection engine initialized", "engine", detector.Name())

	if err := os.MkdirAll(cfg.Worker.ScratchDir, 0o700); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	registry.MustRegister(metrics.NewQueueDepth(workQueue.Name(), workQueue.Len))

	pgStore := store.NewPostgresStore(pool)
	checks := readyChecks(pgStore, workQueue, objects, cfg.ObjectStore.Bucket, detector)
	metricsSrv := newMetricsServer(cfg.Worker.MetricsAddr, registry, checks)
	go func() {
		slog.Info("metrics listening", "addr", cfg.Worker.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	w := worker.New(workQueue, pgStore, objects, detector, m, worker.Config{
		PopTimeout:     cfg.Queue.PopTimeout,
		RetryDelay:     cfg.Worker.RetryDelay,
		ScratchDir:     cfg.Worker.ScratchDir,
		ModelVersion:   cfg.Model.Version,
		MaxImagePixels: cfg.Worker.MaxImagePixels,
	})

	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	slog.Info("worker stopped")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// readinessChecker is implemented by engines that can report whether their
// backend is reachable.
type readinessChecker interface {
	Ready(ctx context.Context) error
}

// readyChecks lists the dependencies the worker's /ready checks.
func readyChecks(db, q pinger, objects objectstore.Store, bucket string, detector models.Detector) map[string]handler.Check {
	checks := map[string]handler.Check{
		"database": db.Ping,
		"queue":    q.Ping,
		"objects": func(ctx context.Context) error {
			return objects.Ping(ctx, bucket)
		},
	}
	if r, ok := detector.(readinessChecker); ok {
		checks["detector"] = r.Ready
	}
	return checks
}

func newMetricsServer(addr string, gatherer prometheus.Gatherer, checks map[string]handler.Check) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/health", handler.NewHealthHandler())
	mux.Handle("/ready", handler.NewReadyHandler(checks))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
