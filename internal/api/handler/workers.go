package handler

import (
	"context"
	"net/http"

	"github.com/netimporter/ni-rest/internal/api/response"
	"github.com/netimporter/ni-rest/pkg/models"
)

// Prober defines the interface the worker-status handler depends on.
type Prober interface {
	Probe(ctx context.Context) models.ProbeResult
}

// NewWorkerStatusHandler returns an http.HandlerFunc for GET /api/v1/workers.
// The probe runs live on every request; results are not cached.
func NewWorkerStatusHandler(p Prober) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		probe := p.Probe(r.Context())
		response.JSON(w, map[string]any{
			"workers_available": probe.Available,
			"worker_count":      probe.WorkerCount,
			"execution_mode":    probe.ExecutionMode(),
			"reason":            probe.Reason,
		})
	}
}
