package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode selects how an import run treats the network: check computes diffs
// without touching devices, apply pushes the changes.
type Mode string

const (
	ModeCheck Mode = "check"
	ModeApply Mode = "apply"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCheck, ModeApply:
		return Mode(s), nil
	}
	return "", fmt.Errorf("mode must be %q or %q, got %q", ModeCheck, ModeApply, s)
}

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IsTerminalStatus reports whether a job status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// JobSettings names the inventory and network credentials an import run should
// use. The names are resolved against process configuration at execution time;
// the job record never stores secrets.
type JobSettings struct {
	Inventory   string `json:"inventory"`
	Credentials string `json:"credentials"`
}

// Job tracks one network import execution request. The API returns the job on
// POST /api/v1/import; the client polls GET /api/v1/jobs/{id} until the status
// is completed or failed and reads progress from /api/v1/jobs/{id}/logs.
type Job struct {
	ID          uuid.UUID   `db:"id"           json:"id"`
	SiteCode    string      `db:"site_code"    json:"site_code"`
	Mode        Mode        `db:"mode"         json:"mode"`
	Status      string      `db:"status"       json:"status"`
	Success     *bool       `db:"success"      json:"success,omitempty"`
	CreatedBy   string      `db:"created_by"   json:"created_by"`
	Settings    JobSettings `db:"-"            json:"settings"`
	TaskID      *string     `db:"task_id"      json:"task_id,omitempty"`
	CreatedAt   time.Time   `db:"created_at"   json:"created_at"`
	StartedAt   *time.Time  `db:"started_at"   json:"started_at,omitempty"`
	CompletedAt *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
}
