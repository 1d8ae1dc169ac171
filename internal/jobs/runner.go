package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kiranshivaraju/aichecker/internal/cache"
	"github.com/kiranshivaraju/aichecker/internal/finchat"
	"github.com/kiranshivaraju/aichecker/internal/progress"
)

// AnalysisClient is the gateway operation the runner depends on.
type AnalysisClient interface {
	Run(ctx context.Context, req finchat.AnalysisRequest, report finchat.ProgressFunc) (string, error)
}

// SubmitRequest carries one client submission.
type SubmitRequest struct {
	Text    string
	Purpose string

	// FileName/FileContent carry an optional supporting document received
	// with the submission (e.g. a multipart file part).
	FileName    string
	FileContent []byte
}

// Runner drives submitted jobs to a terminal state. Each job gets its
// own worker goroutine; admission is gated by a weighted semaphore when
// a concurrency bound is configured, and unbounded otherwise.
type Runner struct {
	registry  *Registry
	client    AnalysisClient
	cache     cache.Cache
	statusTTL time.Duration
	sem       *semaphore.Weighted

	patternsPath   string
	defaultPurpose string
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// MaxConcurrent bounds concurrently running workers; zero disables
	// the bound.
	MaxConcurrent int
	StatusTTL     time.Duration

	// PatternsPath points at a local patterns document uploaded with
	// every analysis that carries no attachment of its own.
	PatternsPath string

	// DefaultPurpose is used when a submission specifies none.
	DefaultPurpose string
}

// NewRunner creates a Runner. The cache may be a NoopCache when Redis is
// not configured.
func NewRunner(registry *Registry, client AnalysisClient, c cache.Cache, opts RunnerOptions) *Runner {
	ttl := opts.StatusTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	var sem *semaphore.Weighted
	if opts.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return &Runner{
		registry:       registry,
		client:         client,
		cache:          c,
		statusTTL:      ttl,
		sem:            sem,
		patternsPath:   opts.PatternsPath,
		defaultPurpose: opts.DefaultPurpose,
	}
}

// Submit validates the request, inserts a pending job, and hands
// execution off to a background worker. It returns immediately.
func (r *Runner) Submit(req SubmitRequest) (uuid.UUID, error) {
	if strings.TrimSpace(req.Text) == "" {
		return uuid.Nil, ErrEmptyText
	}

	id := r.registry.Create()
	_ = r.cache.SetJobStatus(context.Background(), id, StatusPending, r.statusTTL)

	go r.runJob(id, req)

	return id, nil
}

// runJob owns all mutations for one job. Every execution path lands a
// terminal write exactly once: the outermost deferred guard fails the
// job if neither the success path, the error path, nor the panic
// handler got there first.
func (r *Runner) runJob(id uuid.UUID, req SubmitRequest) {
	ctx := context.Background()

	defer func() {
		if !r.registry.terminal(id) {
			r.fail(ctx, id, "analysis worker exited without a result")
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic in analysis worker", "job_id", id, "panic", p)
			r.fail(ctx, id, fmt.Sprintf("panic: %v", p))
		}
	}()

	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			r.fail(ctx, id, fmt.Sprintf("acquiring worker slot: %v", err))
			return
		}
		defer r.sem.Release(1)
	}

	r.registry.Start(id)
	_ = r.cache.SetJobStatus(ctx, id, StatusProcessing, r.statusTTL)

	purpose := req.Purpose
	if purpose == "" {
		purpose = r.defaultPurpose
	}

	// Submissions with an attached document bypass the result cache: the
	// key covers only text and purpose.
	key := cache.ResultKey(req.Text, purpose)
	if len(req.FileContent) == 0 {
		if content, ok, err := r.cache.GetResult(ctx, key); err == nil && ok {
			slog.Info("analysis served from cache", "job_id", id)
			r.registry.Complete(id, content)
			_ = r.cache.SetJobStatus(ctx, id, StatusCompleted, r.statusTTL)
			return
		}
	}

	// Progress updates from the client arrive phase-local; they are
	// mapped onto the overall scale and clamped monotonic before being
	// written to the registry.
	last := 0
	report := func(phase progress.Phase, percent int, message string) {
		overall := progress.Overall(phase, percent)
		if overall < last {
			overall = last
		}
		last = overall
		r.registry.SetProgress(id, overall, message)
	}

	areq := finchat.AnalysisRequest{
		Text:            req.Text,
		Purpose:         purpose,
		PatternsContent: req.FileContent,
		PatternsName:    req.FileName,
	}
	// The configured patterns document applies only when the submission
	// brought no attachment of its own.
	if len(req.FileContent) == 0 {
		areq.PatternsPath = r.patternsPath
	}

	content, err := r.client.Run(ctx, areq, report)
	if err != nil {
		slog.Error("analysis failed", "job_id", id, "error", err)
		r.fail(ctx, id, err.Error())
		return
	}

	r.registry.Complete(id, content)
	_ = r.cache.SetJobStatus(ctx, id, StatusCompleted, r.statusTTL)
	if len(req.FileContent) == 0 {
		_ = r.cache.SetResult(ctx, key, content, r.statusTTL)
	}
	slog.Info("analysis completed", "job_id", id)
}

func (r *Runner) fail(ctx context.Context, id uuid.UUID, msg string) {
	r.registry.Fail(id, msg)
	_ = r.cache.SetJobStatus(ctx, id, StatusFailed, r.statusTTL)
}
