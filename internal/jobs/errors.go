package jobs

import "errors"

var (
	// ErrInvalidRequest rejects a submission before any job record exists.
	ErrInvalidRequest = errors.New("invalid import request")
	// ErrConcurrentExecution is returned when Run finds the job is not
	// queued: another runner already picked it up, or it is terminal.
	// The caller must treat it as a no-op, not a failure of the job.
	ErrConcurrentExecution = errors.New("job is not queued")
	// ErrDispatchFailure means the job record exists but could not be handed
	// to the worker pool; the job is marked failed with an explanatory log.
	ErrDispatchFailure = errors.New("failed to enqueue job")
)
