// Package analytics derives tactical metrics from a finished tracking run: spacing, defensive
// reactions, transition effort, shot decisions, lineup impact, fatigue and highlight clips.
package analytics

import (
	"math"
	"sort"

	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/motion"
	"github.com/okian/hoopiq/pkg/logger"
)

// Input carries the outputs of the earlier pipeline stages.
type Input struct {
	VideoID       string
	SourcePath    string
	FPS           float64
	TotalFrames   int
	Tactical      *court.Tactical
	Possession    []int
	Teams         []map[int]int
	Motion        *motion.Result
	Shots         []model.Shot
	Passes        []model.PassEvent
	Interceptions []model.InterceptionEvent
}

// Duration returns the video length in seconds.
func (in Input) Duration() float64 {
	if in.FPS <= 0 {
		return 0
	}
	return float64(in.TotalFrames) / in.FPS
}

func (in Input) seconds(frame int) float64 {
	if in.FPS <= 0 {
		return 0
	}
	return float64(frame) / in.FPS
}

func (in Input) team(frame, id int) int {
	if frame < 0 || frame >= len(in.Teams) || in.Teams[frame] == nil {
		return model.NoTeam
	}
	return in.Teams[frame][id]
}

func (in Input) possessor(frame int) int {
	if frame < 0 || frame >= len(in.Possession) {
		return model.NoPossession
	}
	return in.Possession[frame]
}

// players returns the tactical positions of one team at a frame, sorted by track id.
func (in Input) players(frame, team int) []model.TacticalPosition {
	if in.Tactical == nil || frame < 0 || frame >= len(in.Tactical.Players) {
		return nil
	}
	frameTeams := map[int]int{}
	if frame < len(in.Teams) && in.Teams[frame] != nil {
		frameTeams = in.Teams[frame]
	}
	out := make([]model.TacticalPosition, 0, len(in.Tactical.Players[frame]))
	for id, pos := range in.Tactical.Players[frame] {
		if frameTeams[id] == team {
			out = append(out, pos)
		}
	}
	sortPositions(out)
	return out
}

// ball returns the reference point of the play: the carrier if projected, else the ball.
func (in Input) ball(frame int) (model.Point, bool) {
	if in.Tactical == nil {
		return model.Point{}, false
	}
	if pos, ok := in.Tactical.Player(frame, in.possessor(frame)); ok {
		return pos.Point(), true
	}
	if frame >= 0 && frame < len(in.Tactical.Ball) && in.Tactical.Ball[frame] != nil {
		return *in.Tactical.Ball[frame], true
	}
	return model.Point{}, false
}

// nearest returns the position closest to p and its distance.
func nearest(p model.Point, candidates []model.TacticalPosition) (model.TacticalPosition, float64, bool) {
	best, dist := model.TacticalPosition{}, math.Inf(1)
	for _, c := range candidates {
		if d := p.Dist(c.Point()); d < dist {
			best, dist = c, d
		}
	}
	return best, dist, !math.IsInf(dist, 1)
}

// Engine runs the analytics modules.
type Engine struct {
	th        Thresholds
	extractor ClipExtractor
	outputDir string
	logger    logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds replaces the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.th = t.withDefaults()
	}
}

// WithClipExtractor sets the tool that cuts highlight clips.
func WithClipExtractor(x ClipExtractor) Option {
	return func(e *Engine) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithClipOutputDir sets the directory clips are written under.
func WithClipOutputDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.outputDir = dir
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an analytics engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		th:        DefaultThresholds(),
		outputDir: defaultClipDir,
		logger:    logger.Get().Named("analytics"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sortPositions(ps []model.TacticalPosition) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].TrackID < ps[j].TrackID })
}
