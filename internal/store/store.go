package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/netimporter/ni-rest/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidTransition is returned when a job status update is not permitted
// by the state machine (for example a second attempt to start a job that is
// already running or terminal).
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)

	// MarkJobRunning transitions queued -> running and stamps started_at.
	// The update is conditional on the current status, so concurrent pickup
	// attempts race safely: exactly one wins, the rest get ErrInvalidTransition.
	MarkJobRunning(ctx context.Context, id uuid.UUID) error
	// FinishJob transitions running -> completed|failed, records the success
	// flag and stamps completed_at.
	FinishJob(ctx context.Context, id uuid.UUID, status string, success bool) error
	// FailQueuedJob is the dispatch-failure shortcut: queued -> failed without
	// ever entering running. completed_at stays NULL on this path.
	FailQueuedJob(ctx context.Context, id uuid.UUID) error
	SetJobTaskID(ctx context.Context, id uuid.UUID, taskID string) error

	AppendJobLog(ctx context.Context, entry *models.JobLogEntry) error
	ListJobLogs(ctx context.Context, jobID uuid.UUID) ([]*models.JobLogEntry, error)

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// JobFilter narrows and paginates ListJobs. Zero values mean "no filter".
type JobFilter struct {
	Status   string
	Mode     string
	SiteCode string
	Page     int
	Limit    int
}
