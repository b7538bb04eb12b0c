package analytics

import (
	"context"
	"sort"

	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TransitionType tells whether the player's team just gained or lost the ball.
type TransitionType string

// Transition directions.
const (
	DefenseToOffense TransitionType = "defense_to_offense"
	OffenseToDefense TransitionType = "offense_to_defense"
)

// Effort buckets a player's peak speed after a change of possession.
type Effort string

// Effort buckets.
const (
	EffortSprint Effort = "sprint"
	EffortJog    Effort = "jog"
	EffortWalk   Effort = "walk"
)

// Score returns 100, 60 or 20.
func (e Effort) Score() float64 {
	switch e {
	case EffortSprint:
		return 100
	case EffortJog:
		return 60
	}
	return 20
}

// TransitionEffort is one player's response to one possession change.
type TransitionEffort struct {
	Frame     int            `json:"possession_change_frame"`
	TrackID   int            `json:"track_id"`
	TeamID    int            `json:"team_id"`
	Type      TransitionType `json:"transition_type"`
	PeakSpeed float64        `json:"max_speed_mps"`
	AvgSpeed  float64        `json:"avg_speed_mps"`
	Effort    Effort         `json:"effort_type"`
	Score     float64        `json:"effort_score"`
}

// PlayerTransition averages one player's transitions.
type PlayerTransition struct {
	TrackID     int     `json:"track_id"`
	Transitions int     `json:"transitions"`
	AvgScore    float64 `json:"avg_score"`
	AvgPeak     float64 `json:"avg_peak_speed_mps"`
	Walks       int     `json:"walks"`
}

// TransitionSummary aggregates transitions.
type TransitionSummary struct {
	Changes  int                `json:"possession_changes"`
	Efforts  int                `json:"efforts"`
	AvgScore float64            `json:"avg_score"`
	WalkRate float64            `json:"walk_rate"`
	Players  []PlayerTransition `json:"players"`
}

// TransitionResult is the transition effort module output.
type TransitionResult struct {
	Changes          []int              `json:"changes"`
	Efforts          []TransitionEffort `json:"efforts"`
	Summary          TransitionSummary  `json:"summary"`
	InsufficientData bool               `json:"insufficient_data"`
}

// Transitions grades how hard every player ran in the seconds after each change of possession.
func (e *Engine) Transitions(ctx context.Context, in Input) (*TransitionResult, error) {
	res := &TransitionResult{Changes: make([]int, 0), Efforts: make([]TransitionEffort, 0)}
	window := int(e.th.TransitionWindowSeconds * in.FPS)
	last := model.NoTeam
	for f := range in.Possession {
		team := in.team(f, in.possessor(f))
		if team == model.NoTeam {
			continue
		}
		if last != model.NoTeam && team != last {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res.Changes = append(res.Changes, f)
			res.Efforts = append(res.Efforts, e.efforts(in, f, team, window)...)
		}
		last = team
	}
	if len(res.Efforts) == 0 {
		res.InsufficientData = true
		res.Summary.Changes = len(res.Changes)
		res.Summary.Players = make([]PlayerTransition, 0)
		return res, nil
	}
	res.Summary = summarizeTransitions(res.Changes, res.Efforts)
	return res, nil
}

func (e *Engine) efforts(in Input, frame, newTeam, window int) []TransitionEffort {
	var out []TransitionEffort
	for _, team := range []int{model.Team1, model.Team2} {
		for _, p := range in.players(frame, team) {
			speeds := make([]float64, 0, window)
			for f := frame; f < frame+window && f < in.TotalFrames; f++ {
				speeds = append(speeds, in.Motion.Speed(f, p.TrackID))
			}
			if len(speeds) == 0 {
				continue
			}
			te := TransitionEffort{
				Frame:     frame,
				TrackID:   p.TrackID,
				TeamID:    team,
				Type:      OffenseToDefense,
				PeakSpeed: floats.Max(speeds),
				AvgSpeed:  stat.Mean(speeds, nil),
			}
			if team == newTeam {
				te.Type = DefenseToOffense
			}
			switch {
			case te.PeakSpeed >= e.th.TransitionSprint:
				te.Effort = EffortSprint
			case te.PeakSpeed >= e.th.TransitionJog:
				te.Effort = EffortJog
			default:
				te.Effort = EffortWalk
			}
			te.Score = te.Effort.Score()
			out = append(out, te)
		}
	}
	return out
}

func summarizeTransitions(changes []int, efforts []TransitionEffort) TransitionSummary {
	byPlayer := map[int][]TransitionEffort{}
	scores := make([]float64, len(efforts))
	walks := 0
	for i, te := range efforts {
		byPlayer[te.TrackID] = append(byPlayer[te.TrackID], te)
		scores[i] = te.Score
		if te.Effort == EffortWalk {
			walks++
		}
	}
	players := make([]PlayerTransition, 0, len(byPlayer))
	for id, list := range byPlayer {
		pt := PlayerTransition{TrackID: id, Transitions: len(list)}
		s := make([]float64, len(list))
		p := make([]float64, len(list))
		for i, te := range list {
			s[i], p[i] = te.Score, te.PeakSpeed
			if te.Effort == EffortWalk {
				pt.Walks++
			}
		}
		pt.AvgScore = stat.Mean(s, nil)
		pt.AvgPeak = stat.Mean(p, nil)
		players = append(players, pt)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].TrackID < players[j].TrackID })
	return TransitionSummary{
		Changes:  len(changes),
		Efforts:  len(efforts),
		AvgScore: stat.Mean(scores, nil),
		WalkRate: float64(walks) / float64(len(efforts)),
		Players:  players,
	}
}
