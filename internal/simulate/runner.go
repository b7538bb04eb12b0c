package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hoopiq/internal/adapters/detections"
	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
)

// Run generates the configured games and analyzes them locally or through the service.
func Run(ctx context.Context, config *Config, out io.Writer) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting simulation",
		logger.String("mode", string(config.Mode)),
		logger.Int("games", config.Games),
		logger.Int("frames", config.Frames),
		logger.Int("workers", config.Workers))

	// Step 1: generate games
	videos := generate(config)
	stats.GamesGenerated = len(videos)

	// Step 2: optionally keep the first stream for replay
	if config.StreamFile != "" && len(videos) > 0 {
		if err := saveStream(config.StreamFile, videos[0]); err != nil {
			log.Warn(ctx, "failed to save detection stream", logger.Error(err))
		}
	}

	// Step 3: analyze
	var err error
	switch config.Mode {
	case ModeRemote:
		err = runRemote(ctx, config, videos, stats)
	default:
		err = runLocal(ctx, config, videos, stats, out)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "simulation finished",
		logger.Int("completed", stats.Completed),
		logger.Int("failed", stats.Failed),
		logger.Int("rejected", stats.Rejected),
		logger.Duration("elapsed", stats.Duration))
	return stats, err
}

func generate(config *Config) []*model.Video {
	games := max(config.Games, 1)
	videos := make([]*model.Video, games)
	for i := range videos {
		videos[i], _ = NewGenerator(
			WithFrames(config.Frames),
			WithFPS(config.FPS),
			WithSeed(config.Seed+uint64(i)),
			WithVideoID(fmt.Sprintf("sim-%d", config.Seed+uint64(i))),
		).Generate()
	}
	return videos
}

func saveStream(path string, video *model.Video) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create stream file: %w", err)
	}
	defer f.Close()
	return detections.Encode(f, video)
}

// runLocal runs the pipeline in-process and writes the reports as JSON.
func runLocal(ctx context.Context, config *Config, videos []*model.Video, stats *Stats, out io.Writer) error {
	var opts []pipeline.Option
	if config.Analytics {
		opts = append(opts, pipeline.WithAnalytics(analytics.NewEngine()))
	}
	p := pipeline.New(opts...)
	if config.Output != "" {
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	for _, v := range videos {
		progress := func(step pipeline.Step, percent int) {
			if config.Verbose {
				logger.Get().Debug(ctx, "progress", logger.String("video_id", v.ID), logger.String("step", string(step)), logger.Int("percent", percent))
			}
		}
		report, err := p.Run(ctx, v, progress)
		if err != nil {
			stats.Failed++
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
		} else {
			stats.Completed++
		}
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

// runRemote submits every game with a worker pool and polls each job until it finishes.
func runRemote(ctx context.Context, config *Config, videos []*model.Video, stats *Stats) error {
	client := NewHTTPClient(config.BaseURL, &http.Client{Timeout: config.Timeout})
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	var submitted, rejected, completed, failed int64
	workers := max(config.Workers, 1)
	poll := config.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	jobs := make(chan *model.Video, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				ack, err := client.Submit(ctx, v)
				if err != nil {
					if errors.Is(err, errRejected) {
						atomic.AddInt64(&rejected, 1)
					} else {
						atomic.AddInt64(&failed, 1)
					}
					logger.Get().Warn(ctx, "submission failed", logger.String("video_id", v.ID), logger.Error(err))
					continue
				}
				atomic.AddInt64(&submitted, 1)
				job, err := wait(ctx, client, ack.JobID, poll)
				if err != nil || job.Status != string(model.JobCompleted) {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&completed, 1)
				if config.Verbose {
					logger.Get().Info(ctx, "job completed", logger.String("job_id", job.JobID), logger.String("video_id", v.ID))
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, v := range videos {
			select {
			case <-ctx.Done():
				return
			case jobs <- v:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	stats.Completed = int(atomic.LoadInt64(&completed))
	stats.Failed = int(atomic.LoadInt64(&failed))
	return ctx.Err()
}

func wait(ctx context.Context, client *HTTPClient, id string, every time.Duration) (*JobResponse, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status == string(model.JobCompleted) || job.Status == string(model.JobFailed) {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
