package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/netimporter/ni-rest/internal/store"
	"github.com/netimporter/ni-rest/pkg/models"
)

// jobLog is the per-run log sink: it assigns sequence numbers starting at 1
// and appends entries as they arrive. A single runner instance owns the job
// while it executes, so the counter needs no locking. A failed append is
// reported to the process log and skipped; a logging problem must not abort
// an import that is touching live devices.
type jobLog struct {
	ctx    context.Context
	store  store.Store
	jobID  uuid.UUID
	source string
	seq    int
}

func newJobLog(ctx context.Context, s store.Store, jobID uuid.UUID, source string) *jobLog {
	return &jobLog{ctx: ctx, store: s, jobID: jobID, source: source}
}

func (l *jobLog) Log(level, message string) {
	l.seq++
	entry := &models.JobLogEntry{
		ID:        uuid.New(),
		JobID:     l.jobID,
		Seq:       l.seq,
		Level:     level,
		Message:   message,
		Source:    l.source,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.AppendJobLog(l.ctx, entry); err != nil {
		slog.Error("append job log", "error", err, "job_id", l.jobID, "seq", l.seq)
	}
}

func (l *jobLog) Error(message string) {
	l.Log(models.LogLevelError, message)
}
