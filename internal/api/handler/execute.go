package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/netimporter/ni-rest/internal/api/middleware"
	"github.com/netimporter/ni-rest/internal/api/response"
	"github.com/netimporter/ni-rest/internal/jobs"
	"github.com/netimporter/ni-rest/pkg/models"
)

// Submitter defines the interface the execute handler depends on.
type Submitter interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*models.Job, error)
}

type executeRequest struct {
	Site     string `json:"site"`
	Mode     string `json:"mode"`
	Settings struct {
		Inventory   string `json:"inventory"`
		Credentials string `json:"credentials"`
	} `json:"settings"`
}

type executeResponse struct {
	Job           *models.Job `json:"job"`
	ExecutionMode string      `json:"execution_mode"`
}

// NewExecuteHandler returns an http.HandlerFunc for POST /api/v1/import.
// The response code tells the client which path ran: 202 means the job was
// queued for a worker and should be polled, 200 means it executed in-process
// and the returned job is already terminal.
func NewExecuteHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := mw.GetPrincipal(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing principal", nil)
			return
		}

		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Submit(r.Context(), jobs.SubmitRequest{
			Site: req.Site,
			Mode: req.Mode,
			Settings: models.JobSettings{
				Inventory:   req.Settings.Inventory,
				Credentials: req.Settings.Credentials,
			},
			Principal: principal,
		})
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrInvalidRequest):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			case errors.Is(err, jobs.ErrDispatchFailure):
				// The job record exists and is marked failed; hand its id
				// back so the caller can read the explanatory log.
				response.Error(w, http.StatusInternalServerError, "DISPATCH_FAILURE",
					"Job could not be handed to the worker pool", map[string]any{"job": job})
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		if job.Status == models.JobStatusQueued {
			response.Accepted(w, executeResponse{Job: job, ExecutionMode: "worker"})
			return
		}
		response.JSON(w, executeResponse{Job: job, ExecutionMode: "immediate"})
	}
}
