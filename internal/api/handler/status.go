package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/aichecker/internal/api/response"
	"github.com/kiranshivaraju/aichecker/internal/jobs"
)

// StatusReader defines the interface the status handler depends on.
type StatusReader interface {
	Get(id uuid.UUID) (jobs.Job, error)
}

type statusResponse struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	StatusMessage string `json:"status_message"`
	CreatedAt     string `json:"created_at"`
	Result        string `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/mcp/status/{jobID}.
// The result field is present only on completed jobs and the error field
// only on failed ones.
func NewStatusHandler(reg StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}

		job, err := reg.Get(id)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read job status", nil)
			return
		}

		resp := statusResponse{
			JobID:         job.ID.String(),
			Status:        job.Status,
			Progress:      job.Progress,
			StatusMessage: job.StatusMessage,
			CreatedAt:     job.CreatedAt.UTC().Format(time.RFC3339),
		}
		switch job.Status {
		case jobs.StatusCompleted:
			resp.Result = job.Result
			resp.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
		case jobs.StatusFailed:
			resp.Error = job.Error
			resp.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
		}

		response.JSON(w, resp)
	}
}
