// Package main is the entrypoint for the NI-REST worker process. Workers
// advertise themselves through Redis heartbeat keys, pull enqueued job ids
// off the broker and execute them with the same Runner the server uses for
// immediate mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netimporter/ni-rest/internal/config"
	"github.com/netimporter/ni-rest/internal/importer"
	"github.com/netimporter/ni-rest/internal/jobs"
	"github.com/netimporter/ni-rest/internal/metrics"
	"github.com/netimporter/ni-rest/internal/queue"
	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/internal/store"
)

const dequeueTimeout = 5 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	broker, err := queue.NewRedisQueue(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis queue: %w", err)
	}
	defer broker.Close()

	if err := broker.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	pgStore := store.NewPostgresStore(pool)
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	runner := jobs.NewRunner(pgStore, settings.NewEnvResolver(),
		importer.NewCLIExecutor(cfg.Importer.Binary), collector)

	workerID := workerIdentity()
	slog.Info("worker starting", "worker_id", workerID, "concurrency", cfg.Worker.Concurrency)

	// The heartbeat key is what the dispatcher's probe counts. Register
	// before consuming so a job is never enqueued to an invisible pool.
	if err := broker.RegisterWorker(ctx, workerID, cfg.Worker.HeartbeatTTL); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	go heartbeatLoop(ctx, broker, workerID, cfg.Worker.HeartbeatTTL)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumeLoop(ctx, broker, runner)
		}()
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, finishing in-flight jobs...")
	wg.Wait()

	// Best effort: drop the heartbeat immediately instead of waiting for TTL.
	deregCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := broker.DeregisterWorker(deregCtx, workerID); err != nil {
		slog.Warn("deregister worker", "error", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// consumeLoop pulls tasks until ctx is cancelled. In-flight jobs are never
// interrupted: once Run starts, it is given a background context so a
// shutdown signal cannot cancel device operations mid-flight.
func consumeLoop(ctx context.Context, broker *queue.RedisQueue, runner *jobs.Runner) {
	for {
		task, err := broker.Dequeue(ctx, dequeueTimeout)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Error("dequeue", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		slog.Info("picked up job", "job_id", task.JobID, "task_id", task.ID)
		if err := runner.Run(context.Background(), task.JobID); err != nil {
			switch {
			case errors.Is(err, jobs.ErrConcurrentExecution):
				// Redelivery of a job that already ran (or is running)
				// elsewhere; skipping is the correct behavior.
				slog.Warn("skipping redelivered job", "job_id", task.JobID)
			case errors.Is(err, store.ErrNotFound):
				slog.Error("enqueued job does not exist", "job_id", task.JobID)
			default:
				slog.Error("run job", "error", err, "job_id", task.JobID)
			}
		}
	}
}

func heartbeatLoop(ctx context.Context, broker *queue.RedisQueue, workerID string, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := broker.RegisterWorker(ctx, workerID, ttl); err != nil && ctx.Err() == nil {
				slog.Warn("heartbeat", "error", err)
			}
		}
	}
}

func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
