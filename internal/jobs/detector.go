package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/netimporter/ni-rest/pkg/models"
)

// WorkerProber is the slice of the queue transport the detector needs.
type WorkerProber interface {
	Ping(ctx context.Context) error
	Workers(ctx context.Context) ([]string, error)
}

// Detector probes whether the distributed worker pool can take a job right
// now. The result is advisory and never cached: workers crash and scale to
// zero between requests, so every dispatch probes again. An unreachable
// broker or an empty pool is a normal operating mode, not an error, which is
// why Probe has no error return.
type Detector struct {
	transport WorkerProber
	timeout   time.Duration
}

func NewDetector(transport WorkerProber, timeout time.Duration) *Detector {
	return &Detector{transport: transport, timeout: timeout}
}

func (d *Detector) Probe(ctx context.Context) models.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.transport.Ping(ctx); err != nil {
		return models.ProbeResult{Reason: fmt.Sprintf("broker unreachable: %v", err)}
	}

	workers, err := d.transport.Workers(ctx)
	if err != nil {
		return models.ProbeResult{Reason: fmt.Sprintf("listing workers: %v", err)}
	}
	if len(workers) == 0 {
		return models.ProbeResult{Reason: "no live workers"}
	}

	return models.ProbeResult{
		Available:   true,
		WorkerCount: len(workers),
		Reason:      fmt.Sprintf("%d live workers", len(workers)),
	}
}
