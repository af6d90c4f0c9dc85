// Package importer defines the boundary to the network-importer tooling.
// The core treats it as a black box: it runs an import for one site in one
// mode and streams log lines back as they are produced.
package importer

import (
	"context"

	"github.com/netimporter/ni-rest/internal/settings"
	"github.com/netimporter/ni-rest/pkg/models"
)

// LogSink receives log lines during an import run, in production order.
// Implementations must persist each line as it arrives; runs can take minutes
// and operators tail the log while the run is in flight.
type LogSink interface {
	Log(level, message string)
}

// Result is the outcome reported by the import tooling on a normal return.
type Result struct {
	Success         bool
	ChangesDetected bool
	Summary         string
}

// Executor runs one import. A returned error means the run itself broke;
// a Result with Success=false means the tooling ran and reported failure.
type Executor interface {
	Execute(ctx context.Context, site string, mode models.Mode, resolved *settings.Resolved, sink LogSink) (*Result, error)
}
