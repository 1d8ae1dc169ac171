package jobs

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job tracks one async analysis request from submission to terminal
// result. The API returns a job_id on POST /api/mcp/analyze; the client
// polls GET /api/mcp/status/{job_id} until status is completed or failed.
type Job struct {
	ID            uuid.UUID `json:"job_id"`
	Status        string    `json:"status"`
	Progress      int       `json:"progress"`
	StatusMessage string    `json:"status_message"`
	Result        string    `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
