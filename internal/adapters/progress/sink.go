// Package progress delivers pipeline milestones to the job store without blocking the pipeline.
package progress

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
	"github.com/okian/hoopiq/pkg/metrics"
)

const defaultBuffer = 256

// Updater stores the latest milestone of a job. It returns an error for unknown or finished
// jobs, and the sink then leaves the job's gauge alone.
type Updater interface {
	Progress(ctx context.Context, jobID string, step pipeline.Step, percent int) error
}

type update struct {
	jobID   string
	step    pipeline.Step
	percent int
}

// Sink is a bounded, fire-and-forget progress channel drained by one goroutine.
type Sink struct {
	updates chan update
	store   Updater
	buffer  int
	dropped atomic.Int64
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	logger  logger.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithBuffer sets how many updates may wait before new ones are dropped.
func WithBuffer(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// NewSink creates a sink and starts draining it into store.
func NewSink(store Updater, opts ...Option) *Sink {
	s := &Sink{
		store:  store,
		buffer: defaultBuffer,
		done:   make(chan struct{}),
		logger: logger.Get().Named("progress"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updates = make(chan update, s.buffer)
	go s.drain()
	return s
}

// Report queues a milestone. It never blocks; when the buffer is full the update is dropped.
func (s *Sink) Report(jobID string, step pipeline.Step, percent int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- update{jobID: jobID, step: step, percent: percent}:
	default:
		s.dropped.Add(1)
		metrics.RecordProgressDropped()
	}
}

// For returns a pipeline progress callback bound to one job.
func (s *Sink) For(jobID string) pipeline.ProgressFunc {
	return func(step pipeline.Step, percent int) { s.Report(jobID, step, percent) }
}

// Dropped returns how many updates were discarded.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting updates and waits until the queued ones are stored.
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}

func (s *Sink) drain() {
	defer close(s.done)
	ctx := context.Background()
	for u := range s.updates {
		if err := s.store.Progress(ctx, u.jobID, u.step, u.percent); err != nil {
			// A finished job has had its gauge cleared; a late milestone must not bring it back.
			s.logger.Debug(ctx, "progress not stored", logger.String("job_id", u.jobID), logger.Error(err))
			continue
		}
		if u.percent >= pipeline.StepComplete.Percent() {
			metrics.ClearJobProgress(u.jobID)
		} else {
			metrics.UpdateJobProgress(u.jobID, u.percent)
		}
		s.logger.Debug(ctx, "progress", logger.String("job_id", u.jobID), logger.String("step", string(u.step)), logger.Int("percent", u.percent))
	}
}
