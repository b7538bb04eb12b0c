package config

import (
	"strings"
)

// Validate checks the values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	if c.QueueSize <= 0 {
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.WorkerCount <= 0 {
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	}
	if c.ProgressBuffer <= 0 {
		return invalid("progress_buffer must be positive, got %d", c.ProgressBuffer)
	}
	if c.MaxUploadBytes <= 0 {
		return invalid("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.JobTimeout < 0 {
		return invalid("job_timeout must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return invalid("log_format must be json or text, got %q", c.LogFormat)
	}
	if c.Possession.MinFrames < 0 {
		return invalid("possession.min_frames must not be negative")
	}
	if c.Shots.UpwardVelocity > 0 {
		return invalid("shots.upward_velocity must be negative (pixels per frame upward)")
	}
	if t := c.Analytics.Thresholds; t.SpacingGood > 0 && t.SpacingAverage > 0 && t.SpacingGood < t.SpacingAverage {
		return invalid("analytics.thresholds.spacing_good must not be below spacing_average")
	}
	if c.Clips.Enabled && c.Clips.FFmpeg == "" {
		return invalid("clips.ffmpeg must be set when clips are enabled")
	}
	if c.Detector.Timeout < 0 {
		return invalid("detector.timeout must not be negative")
	}
	if c.Detector.Command != "" && c.DataDir == "" {
		return invalid("detector.command needs data_dir for path submissions")
	}
	switch c.Classifier.Mode {
	case ClassifierColor:
	case ClassifierRemote:
		if c.Classifier.URL == "" {
			return invalid("classifier.url must be set in remote mode")
		}
	default:
		return invalid("classifier.mode must be %s or %s, got %q", ClassifierColor, ClassifierRemote, c.Classifier.Mode)
	}
	return nil
}
