package jobs_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netimporter/ni-rest/internal/importer"
	"github.com/netimporter/ni-rest/internal/metrics"
	"github.com/netimporter/ni-rest/internal/queue"
	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/internal/store"
	"github.com/netimporter/ni-rest/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// memStore is an in-memory store.Store with the same transition guards as
// the Postgres implementation, so the core can be exercised without a
// database.
type memStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
	logs map[uuid.UUID][]*models.JobLogEntry
}

func newMemStore() *memStore {
	return &memStore{
		jobs: make(map[uuid.UUID]*models.Job),
		logs: make(map[uuid.UUID][]*models.JobLogEntry),
	}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return store.ErrDuplicateKey
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Job
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Mode != "" && string(job.Mode) != filter.Mode {
			continue
		}
		if filter.SiteCode != "" && job.SiteCode != filter.SiteCode {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memStore) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != models.JobStatusQueued {
		return fmt.Errorf("%w: job is %s", store.ErrInvalidTransition, job.Status)
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	return nil
}

func (m *memStore) FinishJob(ctx context.Context, id uuid.UUID, status string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != models.JobStatusRunning {
		return fmt.Errorf("%w: job is %s", store.ErrInvalidTransition, job.Status)
	}
	if !models.IsTerminalStatus(status) {
		return fmt.Errorf("%w: running -> %s", store.ErrInvalidTransition, status)
	}
	now := time.Now().UTC()
	job.Status = status
	job.Success = &success
	job.CompletedAt = &now
	return nil
}

func (m *memStore) FailQueuedJob(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != models.JobStatusQueued {
		return fmt.Errorf("%w: job is %s", store.ErrInvalidTransition, job.Status)
	}
	success := false
	job.Status = models.JobStatusFailed
	job.Success = &success
	return nil
}

func (m *memStore) SetJobTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	job.TaskID = &taskID
	return nil
}

func (m *memStore) AppendJobLog(ctx context.Context, entry *models.JobLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.logs[entry.JobID] = append(m.logs[entry.JobID], &cp)
	return nil
}

func (m *memStore) ListJobLogs(ctx context.Context, jobID uuid.UUID) ([]*models.JobLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]*models.JobLogEntry, len(m.logs[jobID]))
	copy(entries, m.logs[jobID])
	return entries, nil
}

func (m *memStore) jobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *memStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error { return nil }
func (m *memStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	return nil, nil
}
func (m *memStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error { return nil }
func (m *memStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)    { return nil, nil }
func (m *memStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error         { return nil }

// stubProber simulates broker/worker reachability for the detector.
type stubProber struct {
	pingErr    error
	workers    []string
	workersErr error
}

func (p *stubProber) Ping(ctx context.Context) error { return p.pingErr }
func (p *stubProber) Workers(ctx context.Context) ([]string, error) {
	return p.workers, p.workersErr
}

// stubTransport simulates the queue for the dispatcher.
type stubTransport struct {
	stubProber
	mu         sync.Mutex
	enqueued   []uuid.UUID
	enqueueErr error
}

func (t *stubTransport) Enqueue(ctx context.Context, jobID uuid.UUID) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enqueueErr != nil {
		return "", t.enqueueErr
	}
	t.enqueued = append(t.enqueued, jobID)
	return uuid.NewString(), nil
}

func (t *stubTransport) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error) {
	return nil, nil
}

func (t *stubTransport) enqueuedJobs() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uuid.UUID(nil), t.enqueued...)
}

// stubResolver returns fixed settings or a resolution error.
type stubResolver struct {
	err error
}

func (r *stubResolver) Resolve(inventory, credentials string) (*settings.Resolved, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &settings.Resolved{
		InventoryAddress: "https://nautobot.example.com",
		InventoryToken:   "tok",
		NetworkLogin:     "admin",
		NetworkPassword:  "secret",
	}, nil
}

// stubExecutor drives the import side of a run.
type stubExecutor struct {
	fn func(ctx context.Context, site string, mode models.Mode, sink importer.LogSink) (*importer.Result, error)
}

func (e *stubExecutor) Execute(ctx context.Context, site string, mode models.Mode, resolved *settings.Resolved, sink importer.LogSink) (*importer.Result, error) {
	return e.fn(ctx, site, mode, sink)
}

const probeTimeout = 2 * time.Second

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}
