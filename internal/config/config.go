// Package config defines service configuration structures and loading hooks.
//
// Zero values in the nested sections mean "use the component default", so a
// partial YAML file or a handful of env vars only override what they name.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/hoopiq/internal/domain/analytics"
)

// Classifier modes.
const (
	ClassifierColor  = "color"
	ClassifierRemote = "remote"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// ProgressBuffer bounds pending progress updates before they are dropped.
	ProgressBuffer int `koanf:"progress_buffer"`

	// MaxUploadBytes caps the POST /analyses body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// MaxJobs caps how many jobs the store keeps; the oldest finished ones go first.
	MaxJobs int `koanf:"max_jobs"`

	// IdempotencySize bounds the Idempotency-Key claim set.
	IdempotencySize int `koanf:"idempotency_size"`

	// JobTimeout bounds a single analysis run. Zero disables it.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// DataDir is the only directory POST /analyses {path} may read from. Empty disables path submissions.
	DataDir string `koanf:"data_dir"`

	Tracking   Tracking        `koanf:"tracking"`
	Court      Court           `koanf:"court"`
	Possession Possession      `koanf:"possession"`
	Motion     Motion          `koanf:"motion"`
	Shots      Shots           `koanf:"shots"`
	Analytics  AnalyticsConfig `koanf:"analytics"`
	Clips      Clips           `koanf:"clips"`
	Classifier Classifier      `koanf:"classifier"`
	Detector   Detector        `koanf:"detector"`
}

// Tracking tunes the player and ball trackers.
type Tracking struct {
	PlayerConfidence  float64 `koanf:"player_confidence"`
	RefereeConfidence float64 `koanf:"referee_confidence"`
	MaxPlayers        int     `koanf:"max_players"`
	MaxPerTeam        int     `koanf:"max_per_team"`
	LostBuffer        int     `koanf:"lost_buffer"`
	MinIoU            float64 `koanf:"min_iou"`
	CenterGate        float64 `koanf:"center_gate"`

	BallMaxDistance float64 `koanf:"ball_max_distance"`
	BallGapFactor   int     `koanf:"ball_gap_factor"`
	BallMaxGap      int     `koanf:"ball_max_gap"`
	BallEdgeFill    int     `koanf:"ball_edge_fill"`
}

// Court tunes keypoint validation and tactical projection.
type Court struct {
	RatioTolerance float64 `koanf:"ratio_tolerance"`
	BoundsMargin   float64 `koanf:"bounds_margin"`
}

// Possession tunes the possession detector.
type Possession struct {
	MaxDistance float64 `koanf:"max_distance"`
	MinFrames   int     `koanf:"min_frames"`
}

// Motion tunes the speed and distance calculator.
type Motion struct {
	MaxSpeed float64 `koanf:"max_speed"`
}

// Shots tunes the shot detector.
type Shots struct {
	MinArcHeight     float64 `koanf:"min_arc_height"`
	ApexDrop         float64 `koanf:"apex_drop"`
	TrajectoryWindow int     `koanf:"trajectory_window"`
	SuccessWindow    int     `koanf:"success_window"`
	UpwardVelocity   float64 `koanf:"upward_velocity"`
	Smoothing        int     `koanf:"smoothing"`
	RimTolerance     float64 `koanf:"rim_tolerance"`
	LayupPixels      float64 `koanf:"layup_pixels"`
	ThreePixels      float64 `koanf:"three_pixels"`
	LayupMeters      float64 `koanf:"layup_meters"`
	ThreeMeters      float64 `koanf:"three_meters"`
	MaxGap           int     `koanf:"max_gap"`
	// ShooterLookback is a pointer so an explicit zero can be told apart from unset.
	ShooterLookback *int `koanf:"shooter_lookback"`
}

// AnalyticsConfig enables the analytics engine and carries its thresholds.
type AnalyticsConfig struct {
	Enabled    bool                 `koanf:"enabled"`
	Thresholds analytics.Thresholds `koanf:"thresholds"`
}

// Clips configures highlight clip extraction.
type Clips struct {
	Enabled   bool          `koanf:"enabled"`
	OutputDir string        `koanf:"output_dir"`
	FFmpeg    string        `koanf:"ffmpeg"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Detector runs an external detector on videos submitted by path without a sidecar stream.
// An empty Command disables it. "{video}" in Args is replaced by the video path.
type Detector struct {
	Command string        `koanf:"command"`
	Args    []string      `koanf:"args"`
	Timeout time.Duration `koanf:"timeout"`
}

// Classifier selects the team classification strategy.
type Classifier struct {
	Mode            string        `koanf:"mode"`
	URL             string        `koanf:"url"`
	Timeout         time.Duration `koanf:"timeout"`
	RecheckInterval int           `koanf:"recheck_interval"`
	SplitDistance   float64       `koanf:"split_distance"`
	Labels          [2]string     `koanf:"labels"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "json",
		Addr:            ":9080",
		QueueSize:       64,
		WorkerCount:     runtime.NumCPU(),
		ProgressBuffer:  256,
		MaxUploadBytes:  256 << 20,
		MaxJobs:         1000,
		IdempotencySize: 10_000,
		Analytics: AnalyticsConfig{
			Enabled:    true,
			Thresholds: analytics.DefaultThresholds(),
		},
		Clips: Clips{
			OutputDir: "output/clips",
			FFmpeg:    "ffmpeg",
			Timeout:   30 * time.Second,
		},
		Classifier: Classifier{
			Mode:    ClassifierColor,
			Timeout: 2 * time.Second,
		},
		Detector: Detector{
			Timeout: 2 * time.Minute,
		},
	}
}
