package service

import (
	"time"

	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued analyses.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithProgressBuffer sets how many progress updates may be pending before new ones are dropped.
func WithProgressBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.progressBuffer = size
		}
	}
}

// WithMaxJobs caps the number of jobs kept in the store.
func WithMaxJobs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithIdempotencySize bounds the set of idempotency keys claimed by in-flight submissions.
func WithIdempotencySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.idempotencySize = size
		}
	}
}

// WithJobTimeout bounds a single analysis run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithPipelineOptions configures the analysis pipeline shared by all workers.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *Service) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
