// Package clipper cuts highlight clips out of source videos with ffmpeg.
package clipper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/hoopiq/internal/adapters/tail"
	"github.com/okian/hoopiq/pkg/logger"
)

const (
	defaultBinary   = "ffmpeg"
	defaultTimeout  = 30 * time.Second
	stderrLines     = 20
	waitDelay       = time.Second
	dirPermission   = 0o750
	secondsFormat   = 'f'
	secondsDecimals = 3
)

// FFmpeg extracts clips by running the ffmpeg binary once per clip.
type FFmpeg struct {
	binary  string
	timeout time.Duration
	logger  logger.Logger
}

// Option configures FFmpeg.
type Option func(*FFmpeg)

// WithBinary sets the ffmpeg executable.
func WithBinary(path string) Option {
	return func(f *FFmpeg) {
		if path != "" {
			f.binary = path
		}
	}
}

// WithTimeout bounds a single extraction.
func WithTimeout(d time.Duration) Option {
	return func(f *FFmpeg) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFFmpeg creates an extractor.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{binary: defaultBinary, timeout: defaultTimeout, logger: logger.Get().Named("clipper")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extract writes duration seconds of source starting at start into output, re-encoded as
// H.264/AAC. The output directory is created when missing.
func (f *FFmpeg) Extract(ctx context.Context, source, output string, start, duration float64) error {
	if err := os.MkdirAll(filepath.Dir(output), dirPermission); err != nil {
		return fmt.Errorf("%w: create clip dir: %v", ErrExtractFailed, err)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	stderr := tail.NewRing(stderrLines)
	cmd := exec.CommandContext(ctx, f.binary,
		"-i", source,
		"-ss", strconv.FormatFloat(start, secondsFormat, secondsDecimals, 64),
		"-t", strconv.FormatFloat(duration, secondsFormat, secondsDecimals, 64),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-y", output,
	)
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	began := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v: %s", ErrExtractFailed, filepath.Base(output), err, stderr.String())
	}
	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("%w: %s missing after ffmpeg exited", ErrExtractFailed, filepath.Base(output))
	}
	f.logger.Debug(ctx, "clip extracted",
		logger.String("output", output),
		logger.Float64("start", start),
		logger.Float64("duration", duration),
		logger.Duration("elapsed", time.Since(began)))
	return nil
}
