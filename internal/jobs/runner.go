package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/netimporter/ni-rest/internal/importer"
	"github.com/netimporter/ni-rest/internal/metrics"
	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/internal/store"
	"github.com/netimporter/ni-rest/pkg/models"
)

const logSource = "network-importer"

// Runner executes one job: the same implementation is invoked inline by the
// dispatcher when no workers are available, and by worker processes picking
// jobs off the queue. Execution failures are recorded as job state and log
// entries, never returned as errors; the only errors Run surfaces are
// store.ErrNotFound and ErrConcurrentExecution, both meaning "nothing ran".
type Runner struct {
	store    store.Store
	resolver settings.Resolver
	executor importer.Executor
	metrics  *metrics.Collector
}

func NewRunner(s store.Store, r settings.Resolver, e importer.Executor, m *metrics.Collector) *Runner {
	return &Runner{store: s, resolver: r, executor: e, metrics: m}
}

// Run transitions the job queued -> running, executes the import, and
// finishes the job completed or failed. The queued -> running guard is atomic
// in the store, so a redelivered or doubly-invoked job id is a safe no-op.
// Jobs are never cancelled once running: device configuration changes are not
// safely interruptible, so ctx deadlines should not be set by callers.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if err := r.store.MarkJobRunning(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return fmt.Errorf("%w: %s", ErrConcurrentExecution, jobID)
		}
		return err
	}

	started := time.Now()
	sink := newJobLog(ctx, r.store, jobID, logSource)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in job runner", "error", rec, "job_id", jobID)
			sink.Error(fmt.Sprintf("import aborted: panic: %v", rec))
			r.finish(ctx, jobID, models.JobStatusFailed, false, started)
		}
	}()

	resolved, err := r.resolver.Resolve(job.Settings.Inventory, job.Settings.Credentials)
	if err != nil {
		sink.Error(fmt.Sprintf("resolving settings: %v", err))
		r.finish(ctx, jobID, models.JobStatusFailed, false, started)
		return nil
	}

	result, err := r.executor.Execute(ctx, job.SiteCode, job.Mode, resolved, sink)
	if err != nil {
		sink.Error(fmt.Sprintf("network import (%s) failed: %v", job.Mode, err))
		r.finish(ctx, jobID, models.JobStatusFailed, false, started)
		return nil
	}
	if !result.Success {
		// The library returned normally but reported the import did not
		// succeed; that verdict is a failed job, same as a raised error.
		sink.Error(fmt.Sprintf("network import (%s) reported failure: %s", job.Mode, result.Summary))
		r.finish(ctx, jobID, models.JobStatusFailed, false, started)
		return nil
	}

	r.finish(ctx, jobID, models.JobStatusCompleted, true, started)
	return nil
}

func (r *Runner) finish(ctx context.Context, jobID uuid.UUID, status string, success bool, started time.Time) {
	if err := r.store.FinishJob(ctx, jobID, status, success); err != nil {
		slog.Error("finish job", "error", err, "job_id", jobID, "status", status)
		return
	}
	r.metrics.RecordCompleted(status, time.Since(started).Seconds())
	slog.Info("job finished", "job_id", jobID, "status", status, "success", success)
}
