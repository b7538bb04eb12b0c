package model

import "time"

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

// Job states.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is an analysis request flowing through the queue.
type Job struct {
	ID             string
	IdempotencyKey string
	Video          *Video
	SubmittedAt    time.Time
}

// Submission acknowledges an analysis request.
type Submission struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Duplicate bool      `json:"duplicate"`
}
