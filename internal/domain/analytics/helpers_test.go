package analytics_test

import (
	"context"
	"errors"

	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/motion"
	"github.com/okian/hoopiq/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// scene builds analytics input frame by frame.
type scene struct {
	in analytics.Input
}

func newScene(frames int, fps float64) *scene {
	s := &scene{in: analytics.Input{
		VideoID:     "game-1",
		FPS:         fps,
		TotalFrames: frames,
		Tactical:    &court.Tactical{Players: make([]map[int]model.TacticalPosition, frames), Ball: make([]*model.Point, frames)},
		Possession:  make([]int, frames),
		Teams:       make([]map[int]int, frames),
		Motion:      &motion.Result{Speeds: make([]map[int]float64, frames)},
	}}
	for f := 0; f < frames; f++ {
		s.in.Tactical.Players[f] = map[int]model.TacticalPosition{}
		s.in.Possession[f] = model.NoPossession
		s.in.Teams[f] = map[int]int{}
		s.in.Motion.Speeds[f] = map[int]float64{}
	}
	return s
}

// place puts a player of a team at (x,y) over [from, to).
func (s *scene) place(id, team int, x, y float64, from, to int) *scene {
	for f := from; f < to; f++ {
		s.in.Tactical.Players[f][id] = model.TacticalPosition{TrackID: id, X: x, Y: y}
		s.in.Teams[f][id] = team
	}
	return s
}

func (s *scene) hold(id, from, to int) *scene {
	for f := from; f < to; f++ {
		s.in.Possession[f] = id
	}
	return s
}

func (s *scene) speed(id int, v float64, from, to int) *scene {
	for f := from; f < to; f++ {
		s.in.Motion.Speeds[f][id] = v
	}
	return s
}

type recordingExtractor struct {
	calls   []string
	failOn  string
	panicky bool
}

func (r *recordingExtractor) Extract(_ context.Context, _, output string, _, _ float64) error {
	if r.panicky {
		panic("encoder crashed")
	}
	r.calls = append(r.calls, output)
	if r.failOn != "" && output == r.failOn {
		return errors.New("ffmpeg exited 1")
	}
	return nil
}
