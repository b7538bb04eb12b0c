package pipeline

import (
	"time"

	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/motion"
	"github.com/okian/hoopiq/internal/domain/possession"
	"github.com/okian/hoopiq/internal/domain/shots"
	"github.com/okian/hoopiq/internal/domain/teams"
	"github.com/okian/hoopiq/internal/domain/tracking"
	"github.com/okian/hoopiq/pkg/logger"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPlayerOptions configures the per-run player tracker.
func WithPlayerOptions(opts ...tracking.PlayerOption) Option {
	return func(p *Pipeline) { p.playerOpts = append(p.playerOpts, opts...) }
}

// WithBallOptions configures the per-run ball tracker.
func WithBallOptions(opts ...tracking.BallOption) Option {
	return func(p *Pipeline) { p.ballOpts = append(p.ballOpts, opts...) }
}

// WithEstimatorOptions configures the per-run homography estimator.
func WithEstimatorOptions(opts ...court.EstimatorOption) Option {
	return func(p *Pipeline) { p.estimatorOpts = append(p.estimatorOpts, opts...) }
}

// WithProjectorOptions configures the tactical projector.
func WithProjectorOptions(opts ...court.ProjectorOption) Option {
	return func(p *Pipeline) { p.projectorOpts = append(p.projectorOpts, opts...) }
}

// WithAssignerOptions configures the team assigner.
func WithAssignerOptions(opts ...teams.AssignerOption) Option {
	return func(p *Pipeline) { p.assignerOpts = append(p.assignerOpts, opts...) }
}

// WithColorOptions configures the per-run color classifier.
func WithColorOptions(opts ...teams.ColorOption) Option {
	return func(p *Pipeline) { p.colorOpts = append(p.colorOpts, opts...) }
}

// WithClassifier replaces the per-run color classifier for team assignment. The color
// classifier still supplies tracking hints.
func WithClassifier(c teams.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithPossessionOptions configures the possession detector.
func WithPossessionOptions(opts ...possession.Option) Option {
	return func(p *Pipeline) { p.possessionOpts = append(p.possessionOpts, opts...) }
}

// WithMotionOptions configures the speed calculator. The frame rate always comes from the video.
func WithMotionOptions(opts ...motion.Option) Option {
	return func(p *Pipeline) { p.motionOpts = append(p.motionOpts, opts...) }
}

// WithShotOptions configures the shot detector.
func WithShotOptions(opts ...shots.Option) Option {
	return func(p *Pipeline) { p.shotOpts = append(p.shotOpts, opts...) }
}

// WithAnalytics enables the advanced analytics stage.
func WithAnalytics(e *analytics.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithStageObserver receives the duration of every completed stage.
func WithStageObserver(fn func(step Step, d time.Duration)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.observe = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
