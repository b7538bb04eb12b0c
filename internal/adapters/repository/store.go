// Package repository keeps analysis jobs and their reports in memory.
package repository

import (
	"context"
	"time"

	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
)

// Record is the stored state of one analysis job.
type Record struct {
	JobID          string
	VideoID        string
	IdempotencyKey string
	Status         model.JobStatus
	Step           pipeline.Step
	Progress       int
	Error          string
	SubmittedAt    time.Time
	StartedAt      time.Time
	FinishedAt     time.Time
	Report         *pipeline.Report
}

// Done reports whether the job reached a final state.
func (r Record) Done() bool {
	return r.Status == model.JobCompleted || r.Status == model.JobFailed
}

// Summary aggregates the jobs currently stored.
type Summary struct {
	Statuses              map[model.JobStatus]int `json:"statuses"`
	FramesAnalyzed        int                     `json:"frames_analyzed"`
	ShotsDetected         int                     `json:"shots_detected"`
	MeanProcessingSeconds float64                 `json:"mean_processing_seconds"`
}

// Store provides read/write access to analysis jobs.
type Store interface {
	// Create stores a queued job. Returns ErrAlreadyExists if the id or idempotency key is taken.
	Create(ctx context.Context, rec Record) error
	// Get returns a job by id or ErrNotFound.
	Get(ctx context.Context, jobID string) (Record, error)
	// FindByKey returns the job submitted with an idempotency key or ErrNotFound.
	FindByKey(ctx context.Context, key string) (Record, error)
	// Delete removes a job that never started, e.g. one the queue refused.
	Delete(ctx context.Context, jobID string) error
	// Start marks a job running.
	Start(ctx context.Context, jobID string) error
	// Progress records the latest milestone of a running job.
	Progress(ctx context.Context, jobID string, step pipeline.Step, percent int) error
	// Finish stores the report and sets the final status from it.
	Finish(ctx context.Context, jobID string, report *pipeline.Report) error
	// List returns up to n jobs, newest first, without reports. n == 0 means all.
	List(ctx context.Context, n int) ([]Record, error)
	// Count returns the number of stored jobs.
	Count(ctx context.Context) int
	// Summarize counts jobs per status and totals the completed reports.
	Summarize(ctx context.Context) Summary
}
