package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/netimporter/ni-rest/internal/metrics"
	"github.com/netimporter/ni-rest/internal/queue"
	"github.com/netimporter/ni-rest/internal/store"
	"github.com/netimporter/ni-rest/pkg/models"
)

// SubmitRequest is one validated-or-rejected import submission.
type SubmitRequest struct {
	Site      string
	Mode      string
	Settings  models.JobSettings
	Principal string
}

// Dispatcher creates job records and routes them to an execution path.
// Worker availability is probed per submission; when the pool is reachable
// the job is enqueued and the caller gets it back still queued, otherwise the
// runner executes inline and the caller gets the terminal job.
type Dispatcher struct {
	store     store.Store
	transport queue.Transport
	detector  *Detector
	runner    *Runner
	metrics   *metrics.Collector
}

func NewDispatcher(s store.Store, t queue.Transport, d *Detector, r *Runner, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{store: s, transport: t, detector: d, runner: r, metrics: m}
}

// Submit validates the request, creates the job record, and dispatches it.
// Whatever path is taken, the caller always gets a job id it can poll.
func (d *Dispatcher) Submit(ctx context.Context, req SubmitRequest) (*models.Job, error) {
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Site == "" {
		return nil, fmt.Errorf("%w: site is required", ErrInvalidRequest)
	}
	if req.Settings.Inventory == "" || req.Settings.Credentials == "" {
		return nil, fmt.Errorf("%w: settings.inventory and settings.credentials are required", ErrInvalidRequest)
	}

	job := &models.Job{
		ID:        uuid.New(),
		SiteCode:  req.Site,
		Mode:      mode,
		Status:    models.JobStatusQueued,
		CreatedBy: req.Principal,
		Settings:  req.Settings,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	d.metrics.RecordSubmitted(string(mode))

	probe := d.detector.Probe(ctx)
	d.metrics.RecordDispatch(probe.ExecutionMode())
	slog.Info("dispatching job",
		"job_id", job.ID, "site", job.SiteCode, "mode", job.Mode,
		"execution_mode", probe.ExecutionMode(), "workers", probe.WorkerCount)

	if !probe.Available {
		// Immediate mode: block the caller for the full run. The run is
		// detached from request cancellation: once started, a client
		// disconnect must not kill an import mid device write. Duplicate
		// pickup is impossible here, the record was created above.
		runCtx := context.WithoutCancel(ctx)
		if err := d.runner.Run(runCtx, job.ID); err != nil {
			return nil, fmt.Errorf("running job %s inline: %w", job.ID, err)
		}
		return d.store.GetJob(runCtx, job.ID)
	}

	taskID, err := d.transport.Enqueue(ctx, job.ID)
	if err != nil {
		// The record already exists; never leave it queued forever.
		d.failDispatch(ctx, job.ID, err)
		return job, fmt.Errorf("%w: %v", ErrDispatchFailure, err)
	}
	if err := d.store.SetJobTaskID(ctx, job.ID, taskID); err != nil {
		slog.Error("set job task id", "error", err, "job_id", job.ID)
	}
	job.TaskID = &taskID
	return job, nil
}

// failDispatch marks a never-started job failed and records why. Every
// terminal failed job carries at least one explanatory log entry.
func (d *Dispatcher) failDispatch(ctx context.Context, jobID uuid.UUID, cause error) {
	sink := newJobLog(ctx, d.store, jobID, "dispatcher")
	sink.Error(fmt.Sprintf("dispatch failure: could not enqueue job: %v", cause))
	if err := d.store.FailQueuedJob(ctx, jobID); err != nil {
		slog.Error("fail queued job", "error", err, "job_id", jobID)
		return
	}
	d.metrics.RecordCompleted(models.JobStatusFailed, 0)
}
