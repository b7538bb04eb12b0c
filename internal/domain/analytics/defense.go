package analytics

import (
	"context"
	"sort"

	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Reaction is how quickly the nearest defender responded to an offensive event.
type Reaction struct {
	Frame       int             `json:"event_frame"`
	EventType   model.EventType `json:"event_type"`
	OffenseTeam int             `json:"offense_team"`
	CarrierID   int             `json:"carrier_id"`
	DefenderID  int             `json:"defender_id"`
	Distance    float64         `json:"distance_m"`
	DelayMs     float64         `json:"reaction_delay_ms"`
	PeakSpeed   float64         `json:"closeout_speed_mps"`
	Activated   bool            `json:"activated"`
	Late        bool            `json:"late_closeout"`
}

// DefenseSummary aggregates reactions.
type DefenseSummary struct {
	Reactions    int     `json:"reactions"`
	Late         int     `json:"late"`
	LateRate     float64 `json:"late_rate"`
	AvgDelayMs   float64 `json:"avg_delay_ms"`
	AvgPeakSpeed float64 `json:"avg_peak_speed_mps"`
}

// DefenseResult is the defensive reaction module output.
type DefenseResult struct {
	Reactions        []Reaction     `json:"reactions"`
	Summary          DefenseSummary `json:"summary"`
	InsufficientData bool           `json:"insufficient_data"`
}

type offensiveEvent struct {
	frame int
	kind  model.EventType
	team  int
}

// DefensiveReactions measures the nearest defender's closeout after every shot and pass.
func (e *Engine) DefensiveReactions(ctx context.Context, in Input) (*DefenseResult, error) {
	res := &DefenseResult{Reactions: make([]Reaction, 0)}
	events := make([]offensiveEvent, 0, len(in.Shots)+len(in.Passes))
	for _, s := range in.Shots {
		team := s.TeamID
		if team == model.NoTeam {
			team = in.team(s.StartFrame, in.possessor(s.StartFrame))
		}
		events = append(events, offensiveEvent{frame: s.StartFrame, kind: model.EventShot, team: team})
	}
	for _, p := range in.Passes {
		events = append(events, offensiveEvent{frame: p.Frame, kind: model.EventPass, team: p.TeamID})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].frame < events[j].frame })

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ev.team == model.NoTeam {
			continue
		}
		if r, ok := e.react(in, ev); ok {
			res.Reactions = append(res.Reactions, r)
		}
	}
	if len(res.Reactions) == 0 {
		res.InsufficientData = true
		return res, nil
	}
	delays := make([]float64, len(res.Reactions))
	peaks := make([]float64, len(res.Reactions))
	for i, r := range res.Reactions {
		delays[i], peaks[i] = r.DelayMs, r.PeakSpeed
		if r.Late {
			res.Summary.Late++
		}
	}
	res.Summary.Reactions = len(res.Reactions)
	res.Summary.LateRate = float64(res.Summary.Late) / float64(len(res.Reactions))
	res.Summary.AvgDelayMs = stat.Mean(delays, nil)
	res.Summary.AvgPeakSpeed = stat.Mean(peaks, nil)
	return res, nil
}

func (e *Engine) react(in Input, ev offensiveEvent) (Reaction, bool) {
	ref, ok := in.ball(ev.frame)
	if !ok {
		return Reaction{}, false
	}
	def, dist, ok := nearest(ref, in.players(ev.frame, model.Opponent(ev.team)))
	if !ok || in.FPS <= 0 {
		return Reaction{}, false
	}
	r := Reaction{
		Frame:       ev.frame,
		EventType:   ev.kind,
		OffenseTeam: ev.team,
		CarrierID:   in.possessor(ev.frame),
		DefenderID:  def.TrackID,
		Distance:    dist,
	}
	activation := -1
	for f := ev.frame + 1; f <= ev.frame+e.th.ReactionWindowFrames; f++ {
		v := in.Motion.Speed(f, def.TrackID)
		if v > r.PeakSpeed {
			r.PeakSpeed = v
		}
		if activation < 0 && v > e.th.ReactionActivation {
			activation = f
		}
	}
	elapsed := e.th.ReactionWindowFrames
	if activation >= 0 {
		elapsed = activation - ev.frame
		r.Activated = true
	}
	r.DelayMs = float64(elapsed) / in.FPS * 1000
	r.Late = r.DelayMs > e.th.ReactionLateMs || r.PeakSpeed < e.th.ReactionMinPeak
	return r, true
}
