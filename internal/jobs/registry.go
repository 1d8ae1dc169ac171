package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("job not found")

	// ErrEmptyText rejects submissions without analyzable text.
	ErrEmptyText = errors.New("text is required")
)

// Registry is the process-wide job tracker: a lock-guarded map from job
// id to job state, constructed once at startup and passed explicitly to
// the submission handler and the runner. Jobs live only in memory.
//
// Field writes on a job happen as a group under the lock, so a reader
// never observes a completed status with the result still unset. A
// terminal state, once set, is immutable.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]*Job)}
}

// Create inserts a new pending job and returns its id.
func (r *Registry) Create() uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &Job{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

// Get returns a read-only snapshot of the job.
func (r *Registry) Get(id uuid.UUID) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// Start transitions a pending job to processing.
func (r *Registry) Start(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != StatusPending {
		return
	}
	job.Status = StatusProcessing
	job.StatusMessage = "Analysis started"
}

// SetProgress records a progress update for a processing job. Progress
// is monotonic: a value below the last reported one is ignored, so a
// caller that observed P never later sees less than P.
func (r *Registry) SetProgress(id uuid.UUID, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Terminal() {
		return
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	if message != "" {
		job.StatusMessage = message
	}
}

// Complete records the terminal success of a job. Later terminal writes
// are ignored.
func (r *Registry) Complete(id uuid.UUID, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Terminal() {
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	job.StatusMessage = "Completed"
	job.Result = result
	job.CompletedAt = time.Now().UTC()
}

// Fail records the terminal failure of a job. Later terminal writes are
// ignored.
func (r *Registry) Fail(id uuid.UUID, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Terminal() {
		return
	}
	job.Status = StatusFailed
	job.StatusMessage = "Failed"
	job.Error = errMsg
	job.CompletedAt = time.Now().UTC()
}

// terminal reports whether the job exists and is in a final state.
func (r *Registry) terminal(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return ok && job.Terminal()
}
