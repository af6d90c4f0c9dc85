package models

import (
	"time"

	"github.com/google/uuid"
)

// Log levels mirror the levels emitted by the import tooling.
const (
	LogLevelDebug    = "DEBUG"
	LogLevelInfo     = "INFO"
	LogLevelWarning  = "WARNING"
	LogLevelError    = "ERROR"
	LogLevelCritical = "CRITICAL"
)

// JobLogEntry is one line of a job's execution log. Seq is assigned by the
// runner, starts at 1 and increases without gaps for a given job, so ordering
// by Seq equals chronological order. Entries are never mutated.
type JobLogEntry struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	JobID     uuid.UUID `db:"job_id"     json:"job_id"`
	Seq       int       `db:"seq"        json:"seq"`
	Level     string    `db:"level"      json:"level"`
	Message   string    `db:"message"    json:"message"`
	Source    string    `db:"source"     json:"source,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
