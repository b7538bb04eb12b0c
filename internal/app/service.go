// Package service wires the analysis queue, workers, progress sink and job
// store behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hoopiq/internal/adapters/mq/queue"
	"github.com/okian/hoopiq/internal/adapters/mq/worker"
	"github.com/okian/hoopiq/internal/adapters/progress"
	"github.com/okian/hoopiq/internal/adapters/repository"
	"github.com/okian/hoopiq/internal/domain/dedupe"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
	"github.com/okian/hoopiq/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for video analysis.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.MemoryStore
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	sink     *progress.Sink
	pool     *worker.Pool
	analyzer *pipeline.Pipeline

	// Configuration
	workerCount     int
	queueSize       int
	progressBuffer  int
	maxJobs         int
	idempotencySize int
	jobTimeout      time.Duration
	pipelineOpts    []pipeline.Option

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       64,
		progressBuffer:  256,
		maxJobs:         1000,
		idempotencySize: 10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. The components outlive ctx
// cancellation and stop only with Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting analysis service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewMemoryStore(runCtx, repository.WithMaxJobs(s.maxJobs))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotencySize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.sink = progress.NewSink(s.store, progress.WithBuffer(s.progressBuffer))

	opts := append([]pipeline.Option{pipeline.WithStageObserver(observeStage)}, s.pipelineOpts...)
	s.analyzer = pipeline.New(opts...)

	s.pool = worker.NewPool(s.workerCount, s.queue, s.analyzer, s.store, s.sink, worker.WithJobTimeout(s.jobTimeout))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("progressBuffer", s.progressBuffer),
	)
	return nil
}

// Stop lets the workers finish queued jobs, then drains progress and stops the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping analysis service...")

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(stopCtx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	_ = s.sink.Close()
	_ = s.store.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "analysis service stopped", logger.Int("processed", int(s.pool.Processed())))
}

func observeStage(step pipeline.Step, d time.Duration) {
	metrics.RecordStageDuration(string(step), d.Seconds())
}

// Submit queues a video for analysis. With a non-empty key, a repeated submission returns the
// job created first instead of analyzing again.
func (s *Service) Submit(ctx context.Context, video *model.Video, key string) (model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Submission{}, ErrNotStarted
	}
	if video == nil || len(video.Frames) == 0 {
		return model.Submission{}, model.ErrNoFrames
	}

	jobID := uuid.NewString()
	if key != "" {
		if sub, ok := s.duplicate(ctx, key); ok {
			return sub, nil
		}
		owner, claimed := s.deduper.Claim(ctx, key, jobID)
		if !claimed {
			s.logger.Debug(ctx, "idempotency key held by in-flight submission",
				logger.String("key", key),
				logger.String("owner", owner),
			)
			return model.Submission{}, model.ErrInFlight
		}
		defer s.deduper.Unrecord(ctx, key)
		// A racing submission may have stored the key between the lookup and the claim.
		if sub, ok := s.duplicate(ctx, key); ok {
			return sub, nil
		}
	}

	now := time.Now()
	rec := repository.Record{
		JobID:          jobID,
		VideoID:        video.ID,
		IdempotencyKey: key,
		Status:         model.JobQueued,
		SubmittedAt:    now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return model.Submission{}, fmt.Errorf("create job: %w", err)
	}

	job := &model.Job{ID: jobID, IdempotencyKey: key, Video: video, SubmittedAt: now}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		_ = s.store.Delete(ctx, jobID)
		if errors.Is(err, queue.ErrFull) {
			s.logger.Warn(ctx, "analysis queue full, rejecting job",
				logger.String("videoID", video.ID),
				logger.Int("queueSize", s.queueSize),
			)
			return model.Submission{}, fmt.Errorf("%w: %w", model.ErrBackpressure, err)
		}
		return model.Submission{}, fmt.Errorf("enqueue job: %w", err)
	}

	metrics.RecordJobSubmitted()
	s.logger.Info(ctx, "analysis job queued",
		logger.String("jobID", jobID),
		logger.String("videoID", video.ID),
		logger.Int("frames", len(video.Frames)),
	)
	return model.Submission{JobID: jobID, Status: model.JobQueued}, nil
}

func (s *Service) duplicate(ctx context.Context, key string) (model.Submission, bool) {
	rec, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return model.Submission{}, false
	}
	metrics.RecordJobDuplicate()
	s.logger.Debug(ctx, "duplicate submission",
		logger.String("key", key),
		logger.String("jobID", rec.JobID),
	)
	return model.Submission{JobID: rec.JobID, Status: rec.Status, Duplicate: true}, true
}

// Job returns a job with its report once finished.
func (s *Service) Job(ctx context.Context, jobID string) (repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Record{}, ErrNotStarted
	}
	return s.store.Get(ctx, jobID)
}

// Jobs returns up to n job summaries, newest first.
func (s *Service) Jobs(ctx context.Context, n int) ([]repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx, n)
}

// JobSummary counts stored jobs per status and totals their reports.
func (s *Service) JobSummary(ctx context.Context) (repository.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Summary{}, ErrNotStarted
	}
	return s.store.Summarize(ctx), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"progressBuffer": s.progressBuffer,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["jobsStored"] = s.store.Count(ctx)
		stats["jobsProcessed"] = s.pool.Processed()
		stats["progressDropped"] = s.sink.Dropped()
		stats["idempotencyKeysInFlight"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		metrics.UpdateSystemMemoryUsage(m.Alloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}

	return stats
}
