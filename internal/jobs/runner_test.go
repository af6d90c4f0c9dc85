package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netimporter/ni-rest/internal/importer"
	"github.com/netimporter/ni-rest/internal/jobs"
	"github.com/netimporter/ni-rest/internal/store"
	"github.com/netimporter/ni-rest/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedQueuedJob(t *testing.T, s *memStore) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:       uuid.New(),
		SiteCode: "nyc01",
		Mode:     models.ModeCheck,
		Status:   models.JobStatusQueued,
		Settings: models.JobSettings{
			Inventory:   "production",
			Credentials: "default",
		},
		CreatedBy: "tester",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

func TestRunUnknownJob(t *testing.T) {
	h := newHarness(t)
	err := h.runner.Run(context.Background(), uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunSuccessTimestampsAndLogs(t *testing.T) {
	h := newHarness(t)
	job := seedQueuedJob(t, h.store)

	before := time.Now().UTC()
	require.NoError(t, h.runner.Run(context.Background(), job.ID))

	stored, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.Success)
	assert.True(t, *stored.Success)

	require.NotNil(t, stored.StartedAt)
	require.NotNil(t, stored.CompletedAt)
	assert.False(t, stored.StartedAt.Before(before))
	assert.False(t, stored.CompletedAt.Before(*stored.StartedAt))

	entries, err := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Seq)
	assert.Equal(t, 2, entries[1].Seq)
	assert.Equal(t, "network-importer", entries[0].Source)
}

func TestRunLibraryReportedFailure(t *testing.T) {
	h := newHarness(t)
	// The library finishing normally with success=false is still a failed
	// import; a clean return does not soften the verdict.
	h.executor.fn = func(ctx context.Context, site string, mode models.Mode, sink importer.LogSink) (*importer.Result, error) {
		sink.Log(models.LogLevelWarning, "2 devices unreachable, partial import")
		return &importer.Result{Success: false, Summary: "2 of 14 devices failed"}, nil
	}
	job := seedQueuedJob(t, h.store)

	require.NoError(t, h.runner.Run(context.Background(), job.ID))

	stored, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.Success)
	assert.False(t, *stored.Success)
	require.NotNil(t, stored.CompletedAt)

	// The failure verdict is explained by an error-severity summary line.
	entries, err := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LogLevelError, entries[1].Level)
	assert.Contains(t, entries[1].Message, "2 of 14 devices failed")
}

func TestRunExecutorError(t *testing.T) {
	h := newHarness(t)
	h.executor.fn = func(ctx context.Context, site string, mode models.Mode, sink importer.LogSink) (*importer.Result, error) {
		sink.Log(models.LogLevelInfo, "Connecting to inventory")
		return nil, errors.New("inventory API returned 502")
	}
	job := seedQueuedJob(t, h.store)

	// Execution failures become job state, not Run errors.
	require.NoError(t, h.runner.Run(context.Background(), job.ID))

	stored, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.Success)
	assert.False(t, *stored.Success)
	require.NotNil(t, stored.CompletedAt)

	entries, err := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LogLevelInfo, entries[0].Level)
	assert.Equal(t, models.LogLevelError, entries[1].Level)
	assert.Contains(t, entries[1].Message, "inventory API returned 502")
}

func TestRunSettingsResolutionFailure(t *testing.T) {
	h := newHarness(t)
	h.resolver.err = errors.New("no inventory named staging")
	job := seedQueuedJob(t, h.store)

	require.NoError(t, h.runner.Run(context.Background(), job.ID))

	stored, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)

	entries, err := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogLevelError, entries[0].Level)
	assert.Contains(t, entries[0].Message, "no inventory named staging")
}

func TestRunPanicFailsJob(t *testing.T) {
	h := newHarness(t)
	h.executor.fn = func(ctx context.Context, site string, mode models.Mode, sink importer.LogSink) (*importer.Result, error) {
		panic("nil device record")
	}
	job := seedQueuedJob(t, h.store)

	require.NoError(t, h.runner.Run(context.Background(), job.ID))

	stored, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)

	entries, err := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "nil device record")
}

func TestRunRejectsAlreadyRunningJob(t *testing.T) {
	h := newHarness(t)
	job := seedQueuedJob(t, h.store)
	require.NoError(t, h.store.MarkJobRunning(context.Background(), job.ID))

	err := h.runner.Run(context.Background(), job.ID)
	require.ErrorIs(t, err, jobs.ErrConcurrentExecution)

	// The loser must not touch the job: no logs, still running.
	stored, getErr := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusRunning, stored.Status)
	entries, logErr := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, logErr)
	assert.Empty(t, entries)
}

func TestRunConcurrentDeliveryRunsOnce(t *testing.T) {
	h := newHarness(t)

	var execCount int
	var execMu sync.Mutex
	barrier := make(chan struct{})
	h.executor.fn = func(ctx context.Context, site string, mode models.Mode, sink importer.LogSink) (*importer.Result, error) {
		execMu.Lock()
		execCount++
		execMu.Unlock()
		<-barrier
		sink.Log(models.LogLevelInfo, "done")
		return &importer.Result{Success: true}, nil
	}
	job := seedQueuedJob(t, h.store)

	const attempts = 8
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- h.runner.Run(context.Background(), job.ID)
		}()
	}
	// Give the winner's executor time to be entered, then release it.
	time.Sleep(50 * time.Millisecond)
	close(barrier)
	wg.Wait()
	close(errCh)

	var winners, losers int
	for err := range errCh {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, jobs.ErrConcurrentExecution):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, attempts-1, losers)

	execMu.Lock()
	assert.Equal(t, 1, execCount)
	execMu.Unlock()

	stored, err := h.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	entries, err := h.store.ListJobLogs(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
