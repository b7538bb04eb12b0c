package service

import (
	"github.com/okian/hoopiq/internal/adapters/classifier"
	"github.com/okian/hoopiq/internal/adapters/clipper"
	"github.com/okian/hoopiq/internal/adapters/detections"
	"github.com/okian/hoopiq/internal/config"
	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/motion"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/internal/domain/possession"
	"github.com/okian/hoopiq/internal/domain/shots"
	"github.com/okian/hoopiq/internal/domain/teams"
	"github.com/okian/hoopiq/internal/domain/tracking"
)

// Options maps a loaded configuration onto service options.
func Options(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithProgressBuffer(cfg.ProgressBuffer),
		WithMaxJobs(cfg.MaxJobs),
		WithIdempotencySize(cfg.IdempotencySize),
		WithJobTimeout(cfg.JobTimeout),
		WithPipelineOptions(PipelineOptions(cfg)...),
	}
}

// PipelineOptions maps the stage sections of cfg onto pipeline options. Zero values keep
// each stage's default.
func PipelineOptions(cfg *config.Config) []pipeline.Option {
	t := cfg.Tracking
	edgeFill := t.BallEdgeFill
	if edgeFill == 0 {
		edgeFill = -1
	}
	opts := []pipeline.Option{
		pipeline.WithPlayerOptions(
			tracking.WithConfidenceFloors(t.PlayerConfidence, t.RefereeConfidence),
			tracking.WithPlayerCaps(t.MaxPlayers, t.MaxPerTeam),
			tracking.WithLostBuffer(t.LostBuffer),
			tracking.WithMatchGates(t.MinIoU, t.CenterGate),
		),
		pipeline.WithBallOptions(
			tracking.WithMaxDistance(t.BallMaxDistance, t.BallGapFactor),
			tracking.WithInterpolation(t.BallMaxGap, edgeFill),
		),
		pipeline.WithEstimatorOptions(court.WithRatioTolerance(cfg.Court.RatioTolerance)),
		pipeline.WithPossessionOptions(
			possession.WithMaxDistance(cfg.Possession.MaxDistance),
			possession.WithMinFrames(cfg.Possession.MinFrames),
		),
		pipeline.WithMotionOptions(motion.WithMaxSpeed(cfg.Motion.MaxSpeed)),
		pipeline.WithShotOptions(shotOptions(cfg.Shots)...),
		pipeline.WithAssignerOptions(
			teams.WithRecheckInterval(cfg.Classifier.RecheckInterval),
			teams.WithLabels(cfg.Classifier.Labels),
		),
		pipeline.WithColorOptions(teams.WithSplitDistance(cfg.Classifier.SplitDistance)),
	}
	if cfg.Court.BoundsMargin > 0 {
		opts = append(opts, pipeline.WithProjectorOptions(court.WithBoundsMargin(cfg.Court.BoundsMargin)))
	}
	if cfg.Classifier.Mode == config.ClassifierRemote {
		opts = append(opts, pipeline.WithClassifier(
			classifier.NewRemote(cfg.Classifier.URL, classifier.WithTimeout(cfg.Classifier.Timeout)),
		))
	}
	if cfg.Analytics.Enabled {
		opts = append(opts, pipeline.WithAnalytics(analytics.NewEngine(analyticsOptions(cfg)...)))
	}
	return opts
}

func shotOptions(s config.Shots) []shots.Option {
	opts := []shots.Option{
		shots.WithArc(s.MinArcHeight, s.ApexDrop),
		shots.WithWindows(s.TrajectoryWindow, s.SuccessWindow),
		shots.WithUpwardVelocity(s.UpwardVelocity, s.Smoothing),
		shots.WithRimTolerance(s.RimTolerance),
		shots.WithTypeThresholds(s.LayupPixels, s.ThreePixels, s.LayupMeters, s.ThreeMeters),
		shots.WithMaxGap(s.MaxGap),
	}
	if s.ShooterLookback != nil {
		opts = append(opts, shots.WithShooterLookback(*s.ShooterLookback))
	}
	return opts
}

func analyticsOptions(cfg *config.Config) []analytics.Option {
	opts := []analytics.Option{analytics.WithThresholds(cfg.Analytics.Thresholds)}
	if cfg.Clips.Enabled {
		opts = append(opts,
			analytics.WithClipExtractor(clipper.NewFFmpeg(
				clipper.WithBinary(cfg.Clips.FFmpeg),
				clipper.WithTimeout(cfg.Clips.Timeout),
			)),
			analytics.WithClipOutputDir(cfg.Clips.OutputDir),
		)
	}
	return opts
}

// Resolver maps the detector section onto the source resolver used for path submissions.
func Resolver(cfg *config.Config) *detections.Resolver {
	if cfg.Detector.Command == "" {
		return detections.NewResolver()
	}
	return detections.NewResolver(
		detections.WithDetector(cfg.Detector.Command, cfg.Detector.Args...),
		detections.WithDetectorTimeout(cfg.Detector.Timeout),
	)
}
