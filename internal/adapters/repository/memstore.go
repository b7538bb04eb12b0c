package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/metrics"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultMetricsUpdateInterval = 5 * time.Second
	defaultMaxJobs               = 1000
)

// MemoryStore is an in-memory Store. Jobs are kept in submission order so listing and eviction
// need no sorting.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Record
	byKey map[string]string
	order []string

	maxJobs               int
	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	done                  chan struct{}
	closeOnce             sync.Once
}

// NewMemoryStore creates a store and starts its metrics updater, which stops with ctx or Close.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]*Record),
		byKey:                 make(map[string]string),
		maxJobs:               defaultMaxJobs,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stop:                  make(chan struct{}),
		done:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// Create stores a queued job.
func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	if rec.JobID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.JobID]; ok {
		return ErrAlreadyExists
	}
	if rec.IdempotencyKey != "" {
		if _, ok := s.byKey[rec.IdempotencyKey]; ok {
			return ErrAlreadyExists
		}
		s.byKey[rec.IdempotencyKey] = rec.JobID
	}
	if rec.Status == "" {
		rec.Status = model.JobQueued
	}
	s.byID[rec.JobID] = &rec
	s.order = append(s.order, rec.JobID)
	s.evictLocked()
	return nil
}

// Get returns a job by id.
func (s *MemoryStore) Get(_ context.Context, jobID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[jobID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// FindByKey returns the job submitted with an idempotency key.
func (s *MemoryStore) FindByKey(ctx context.Context, key string) (Record, error) {
	s.mu.RLock()
	id, ok := s.byKey[key]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a job and its idempotency key.
func (s *MemoryStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, jobID)
	if rec.IdempotencyKey != "" {
		delete(s.byKey, rec.IdempotencyKey)
	}
	for i, id := range s.order {
		if id == jobID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Summarize counts jobs per status and totals the completed reports. Every status is present.
func (s *MemoryStore) Summarize(_ context.Context) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{Statuses: map[model.JobStatus]int{
		model.JobQueued: 0, model.JobRunning: 0, model.JobCompleted: 0, model.JobFailed: 0,
	}}
	var secs []float64
	for _, rec := range s.byID {
		sum.Statuses[rec.Status]++
		if rec.Status != model.JobCompleted || rec.Report == nil {
			continue
		}
		sum.FramesAnalyzed += rec.Report.TotalFrames
		sum.ShotsDetected += len(rec.Report.ShotList)
		secs = append(secs, rec.Report.ProcessingSeconds)
	}
	if len(secs) > 0 {
		sum.MeanProcessingSeconds = stat.Mean(secs, nil)
	}
	return sum
}

// Start marks a job running.
func (s *MemoryStore) Start(_ context.Context, jobID string) error {
	return s.update(jobID, func(r *Record) error {
		r.Status = model.JobRunning
		r.StartedAt = time.Now()
		return nil
	})
}

// Progress records the latest milestone. Older milestones arriving late are ignored; any
// milestone after Finish is rejected with ErrJobDone.
func (s *MemoryStore) Progress(_ context.Context, jobID string, step pipeline.Step, percent int) error {
	return s.update(jobID, func(r *Record) error {
		if r.Done() {
			return ErrJobDone
		}
		if percent >= r.Progress {
			r.Step, r.Progress = step, percent
		}
		return nil
	})
}

// Finish stores the report and the final status.
func (s *MemoryStore) Finish(_ context.Context, jobID string, report *pipeline.Report) error {
	return s.update(jobID, func(r *Record) error {
		r.Report = report
		r.FinishedAt = time.Now()
		r.Status = model.JobCompleted
		if report == nil || report.Status == pipeline.StatusFailed {
			r.Status = model.JobFailed
		}
		if report != nil {
			r.Error = report.Error
		}
		if r.Status == model.JobCompleted {
			r.Step, r.Progress = pipeline.StepComplete, pipeline.StepComplete.Percent()
		}
		return nil
	})
}

// List returns up to n jobs, newest first, without reports.
func (s *MemoryStore) List(_ context.Context, n int) ([]Record, error) {
	if n < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n == 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]Record, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		rec := *s.byID[s.order[i]]
		rec.Report = nil
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of stored jobs.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) update(jobID string, fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	return fn(rec)
}

// evictLocked drops the oldest finished jobs while over capacity. Unfinished jobs are never
// evicted, so the store can exceed maxJobs while they run.
func (s *MemoryStore) evictLocked() {
	over := len(s.order) - s.maxJobs
	if over <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		rec := s.byID[id]
		if over > 0 && rec.Done() {
			delete(s.byID, id)
			if rec.IdempotencyKey != "" {
				delete(s.byKey, rec.IdempotencyKey)
			}
			over--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// startMetricsUpdater publishes the stored job count periodically.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				metrics.UpdateReportsStored(s.Count(ctx))
			}
		}
	}()
}
