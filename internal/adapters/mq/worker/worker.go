// Package worker runs queued analysis jobs through the pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
	"github.com/okian/hoopiq/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *model.Job
}

// Analyzer turns one video into a report.
type Analyzer interface {
	Run(ctx context.Context, video *model.Video, progress pipeline.ProgressFunc) (*pipeline.Report, error)
}

// Store records job lifecycle transitions.
type Store interface {
	Start(ctx context.Context, jobID string) error
	Finish(ctx context.Context, jobID string, report *pipeline.Report) error
}

// Progress hands out per-job progress callbacks.
type Progress interface {
	For(jobID string) pipeline.ProgressFunc
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	analyzer   Analyzer
	store      Store
	progress   Progress
	name       string
	jobTimeout time.Duration
	processed  *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, analyzer Analyzer, store Store, progress Progress, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		analyzer:  analyzer,
		store:     store,
		progress:  progress,
		name:      "worker",
		processed: &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job. Every job ends with a stored report, including panicking runs.
func (w *InMemoryWorker) process(ctx context.Context, job *model.Job) {
	metrics.IncWorkerActive()
	defer metrics.DecWorkerActive()
	start := time.Now()

	if err := w.store.Start(ctx, job.ID); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		w.logger.Error(ctx, "cannot start job", logger.String("job_id", job.ID), logger.Error(err))
		return
	}
	w.logger.Info(ctx, "job started", logger.String("job_id", job.ID), logger.String("video_id", videoID(job)))

	runCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}
	report, err := w.analyze(runCtx, job)
	elapsed := time.Since(start)

	if err := w.store.Finish(ctx, job.ID, report); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		w.logger.Error(ctx, "cannot store report", logger.String("job_id", job.ID), logger.Error(err))
	}
	metrics.ClearJobProgress(job.ID)
	w.processed.Add(1)
	record(report)

	if err != nil {
		metrics.RecordJobFailed(elapsed.Seconds())
		w.logger.Warn(ctx, "job failed",
			logger.String("job_id", job.ID),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return
	}
	metrics.RecordJobCompleted(elapsed.Seconds(), report.TotalFrames)
	w.logger.Info(ctx, "job completed",
		logger.String("job_id", job.ID),
		logger.Int("shots", len(report.ShotList)),
		logger.Duration("elapsed", elapsed))
}

func (w *InMemoryWorker) analyze(ctx context.Context, job *model.Job) (report *pipeline.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			report = pipeline.FailedReport(videoID(job), err)
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "panic")
		}
	}()
	report, err = w.analyzer.Run(ctx, job.Video, w.progress.For(job.ID))
	if report == nil {
		if err == nil {
			err = fmt.Errorf("analyzer returned no report")
		}
		report = pipeline.FailedReport(videoID(job), err)
	}
	return report, err
}

// record publishes report-level metrics.
func record(report *pipeline.Report) {
	for _, shot := range report.ShotList {
		metrics.RecordShot(string(shot.Outcome))
	}
	if report.Analytics == nil {
		return
	}
	for _, f := range report.Analytics.ModulesFailed {
		metrics.RecordModuleFailure(f.Module)
	}
	if clips := report.Analytics.Clips; clips != nil {
		for i := 0; i < clips.Summary.Extracted; i++ {
			metrics.RecordClipExtracted()
		}
		for i := 0; i < clips.Summary.Failed; i++ {
			metrics.RecordClipFailed()
		}
	}
}

func videoID(job *model.Job) string {
	if job.Video == nil {
		return ""
	}
	return job.Video.ID
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, queue Queue, analyzer Analyzer, store Store, progress Progress, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, analyzer, store, progress, wopts...)
		w.processed = &pool.processed
		pool.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many jobs the pool finished.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue and lets the workers finish what is queued before returning.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	return nil
}
