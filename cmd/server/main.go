// Package main is the entrypoint for the NI-REST API server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netimporter/ni-rest/internal/api"
	"github.com/netimporter/ni-rest/internal/api/handler"
	mw "github.com/netimporter/ni-rest/internal/api/middleware"
	"github.com/netimporter/ni-rest/internal/api/response"
	"github.com/netimporter/ni-rest/internal/config"
	"github.com/netimporter/ni-rest/internal/importer"
	"github.com/netimporter/ni-rest/internal/jobs"
	"github.com/netimporter/ni-rest/internal/metrics"
	"github.com/netimporter/ni-rest/internal/queue"
	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/internal/store"
)

const shutdownTimeout = 30 * time.Second

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
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Connect broker transport
	broker, err := queue.NewRedisQueue(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis queue: %w", err)
	}
	defer broker.Close()

	if err := broker.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Wire the job core
	pgStore := store.NewPostgresStore(pool)
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	detector := jobs.NewDetector(broker, cfg.Worker.ProbeTimeout)
	runner := jobs.NewRunner(pgStore, settings.NewEnvResolver(),
		importer.NewCLIExecutor(cfg.Importer.Binary), collector)
	dispatcher := jobs.NewDispatcher(pgStore, broker, detector, runner, collector)

	// 6. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(broker, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler:       healthHandler(pgStore, broker),
		MetricsHandler:      promhttp.Handler(),
		ExecuteHandler:      handler.NewExecuteHandler(dispatcher),
		GetJobHandler:       handler.NewGetJobHandler(pgStore),
		ListJobsHandler:     handler.NewListJobsHandler(pgStore),
		JobLogsHandler:      handler.NewJobLogsHandler(pgStore),
		WorkerStatusHandler: handler.NewWorkerStatusHandler(detector),
		CreateKeyHandler:    handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:     handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:    handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server. Write timeout is generous because immediate-mode
	// imports hold the request open for the whole run.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pinger is the slice of a backend the health check needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and broker connectivity.
func healthHandler(s store.Store, broker pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"broker":   "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := broker.Ping(r.Context()); err != nil {
			checks["broker"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["broker"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
