// Package pipeline runs every analysis stage over one video's detections and aggregates the report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/motion"
	"github.com/okian/hoopiq/internal/domain/possession"
	"github.com/okian/hoopiq/internal/domain/shots"
	"github.com/okian/hoopiq/internal/domain/teams"
	"github.com/okian/hoopiq/internal/domain/tracking"
	"github.com/okian/hoopiq/pkg/logger"
)

const defaultFPS = 30.0

// Pipeline holds stage configuration. Stateful stages are rebuilt for every run, so one
// Pipeline may run videos concurrently.
type Pipeline struct {
	playerOpts     []tracking.PlayerOption
	ballOpts       []tracking.BallOption
	estimatorOpts  []court.EstimatorOption
	projectorOpts  []court.ProjectorOption
	assignerOpts   []teams.AssignerOption
	colorOpts      []teams.ColorOption
	possessionOpts []possession.Option
	motionOpts     []motion.Option
	shotOpts       []shots.Option
	classifier     teams.Classifier
	engine         *analytics.Engine
	observe        func(Step, time.Duration)
	logger         logger.Logger
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		observe: func(Step, time.Duration) {},
		logger:  logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is the state of one analysis.
type run struct {
	video    *model.Video
	fps      float64
	progress ProgressFunc

	players, referees, ball *model.TrackStore
	trajectory              []model.BallTrajectoryPoint
	hoops                   []*model.BBox
	homographies            []*court.Homography
	teams                   []map[int]int
	possession              []int
	passes                  []model.PassEvent
	interceptions           []model.InterceptionEvent
	tactical                *court.Tactical
	motion                  *motion.Result
	shots                   []model.Shot
	bundle                  *analytics.Bundle
}

// Run analyzes a video. It always returns a report; the error is non-nil exactly when the
// report's status is failed. Progress may be nil.
func (p *Pipeline) Run(ctx context.Context, video *model.Video, progress ProgressFunc) (*Report, error) {
	started := time.Now()
	if progress == nil {
		progress = func(Step, int) {}
	}
	if video == nil || len(video.Frames) == 0 {
		id := ""
		if video != nil {
			id = video.ID
		}
		progress(StepLoading, StepLoading.Percent())
		return FailedReport(id, model.ErrNoFrames), model.ErrNoFrames
	}
	r := &run{video: video, fps: video.FPS, progress: progress}
	if r.fps <= 0 {
		r.fps = defaultFPS
	}
	p.logger.Info(ctx, "analysis started",
		logger.String("video_id", video.ID),
		logger.Int("frames", len(video.Frames)),
		logger.Float64("fps", r.fps))

	color := teams.NewColorClassifier(p.colorOpts...)
	classifier := p.classifier
	if classifier == nil {
		classifier = color
	}
	frames := video.Frames

	stages := []struct {
		step Step
		fn   func() error
	}{
		{StepLoading, func() error { return nil }},
		{StepInitializing, func() error { return nil }},
		{StepTrackingPlayers, func() error {
			opts := append([]tracking.PlayerOption{tracking.WithTeamHint(color.Hint)}, p.playerOpts...)
			r.players, r.referees = tracking.NewPlayerTracker(opts...).Track(ctx, frames)
			return nil
		}},
		{StepTrackingBall, func() error {
			r.ball = tracking.NewBallTracker(p.ballOpts...).Track(frames)
			r.trajectory = tracking.Trajectory(r.ball, model.BallTrackID)
			r.hoops = tracking.BestPerFrame(frames, model.ClassHoop)
			return nil
		}},
		{StepCourtKeypoints, func() error {
			r.homographies = court.NewEstimator(p.estimatorOpts...).Estimate(ctx, frames)
			return nil
		}},
		{StepTeamAssignment, func() error {
			var err error
			r.teams, err = teams.NewAssigner(classifier, p.assignerOpts...).Assign(ctx, r.players, teams.NewCache())
			return err
		}},
		{StepPossession, func() error {
			r.possession = possession.NewDetector(p.possessionOpts...).Possession(r.players, r.ball)
			return nil
		}},
		{StepPasses, func() error {
			r.passes, r.interceptions = possession.Events(r.possession, r.teams)
			return nil
		}},
		{StepTactical, func() error {
			r.tactical = court.NewProjector(p.projectorOpts...).Project(r.players, r.ball, r.hoops, r.homographies)
			return nil
		}},
		{StepSpeed, func() error {
			opts := append(append([]motion.Option(nil), p.motionOpts...), motion.WithFPS(r.fps))
			r.motion = motion.NewCalculator(opts...).Compute(r.tactical, r.teams)
			return nil
		}},
		{StepShots, func() error {
			r.shots = shots.NewDetector(p.shotOpts...).Detect(ctx, shots.Input{
				Trajectory: r.trajectory,
				Hoops:      r.hoops,
				Possession: r.possession,
				Teams:      r.teams,
				Tactical:   r.tactical,
			})
			return nil
		}},
		{StepAnalytics, func() error {
			if p.engine == nil {
				return nil
			}
			var err error
			r.bundle, err = p.engine.Run(ctx, r.analyticsInput())
			return err
		}},
	}
	for _, s := range stages {
		if err := p.stage(ctx, r, s.step, s.fn); err != nil {
			p.logger.Warn(ctx, "analysis failed",
				logger.String("video_id", video.ID),
				logger.String("stage", string(s.step)),
				logger.Error(err))
			return FailedReport(video.ID, err), err
		}
	}

	progress(StepStatistics, StepStatistics.Percent())
	report := r.report()
	progress(StepFinalizing, StepFinalizing.Percent())
	report.ProcessingSeconds = time.Since(started).Seconds()
	progress(StepComplete, StepComplete.Percent())
	p.logger.Info(ctx, "analysis completed",
		logger.String("video_id", video.ID),
		logger.Int("shots", len(report.ShotList)),
		logger.Int("events", len(report.Events)),
		logger.Duration("elapsed", time.Since(started)))
	return report, nil
}

// stage reports the milestone, runs fn and checks for cancellation afterwards.
func (p *Pipeline) stage(ctx context.Context, r *run, step Step, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.progress(step, step.Percent())
	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	p.observe(step, time.Since(start))
	p.logger.Debug(ctx, "stage done", logger.String("stage", string(step)), logger.Duration("elapsed", time.Since(start)))
	return ctx.Err()
}

func (r *run) analyticsInput() analytics.Input {
	return analytics.Input{
		VideoID:       r.video.ID,
		SourcePath:    r.video.SourcePath,
		FPS:           r.fps,
		TotalFrames:   len(r.video.Frames),
		Tactical:      r.tactical,
		Possession:    r.possession,
		Teams:         r.teams,
		Motion:        r.motion,
		Shots:         r.shots,
		Passes:        r.passes,
		Interceptions: r.interceptions,
	}
}

func (r *run) report() *Report {
	rep := &Report{
		VideoID:         r.video.ID,
		Status:          StatusCompleted,
		TotalFrames:     len(r.video.Frames),
		FPS:             r.fps,
		DurationSeconds: float64(len(r.video.Frames)) / r.fps,
		PlayersDetected: len(r.players.IDs()),
		Shots:           shots.Summarize(r.shots),
		ShotList:        r.shots,
		Movement: Movement{
			TotalDistance: r.motion.TotalDistance,
			AvgSpeed:      r.motion.AvgSpeed,
			MaxSpeed:      r.motion.MaxSpeed,
			Players:       r.motion.Players,
		},
		Events:    Timeline(r.fps, r.passes, r.interceptions, r.shots),
		Analytics: r.bundle,
	}
	rep.Possession.Team1Pct, rep.Possession.Team2Pct = possession.Percentages(r.possession, r.teams)
	for _, p := range r.passes {
		rep.Passes.add(p.TeamID)
	}
	for _, ic := range r.interceptions {
		rep.Interceptions.add(ic.TeamID)
	}
	if rep.ShotList == nil {
		rep.ShotList = make([]model.Shot, 0)
	}
	if rep.Movement.Players == nil {
		rep.Movement.Players = make([]motion.PlayerMovement, 0)
	}
	return rep
}
