package analytics

import (
	"context"
	"math"
	"sort"

	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const minFatigueWindowSeconds = 2.0

// FatigueLevel grades a speed decline.
type FatigueLevel string

// Fatigue grades.
const (
	FatigueLow    FatigueLevel = "low"
	FatigueMedium FatigueLevel = "medium"
	FatigueHigh   FatigueLevel = "high"
)

// Fatigue level ranks.
const (
	rankLow = iota
	rankMedium
	rankHigh
)

// Rank orders levels from low to high; unknown levels rank as low.
func (l FatigueLevel) Rank() int {
	switch l {
	case FatigueHigh:
		return rankHigh
	case FatigueMedium:
		return rankMedium
	}
	return rankLow
}

// FatigueLevel grades a decline percentage; a larger decline never yields a lower level.
func (t Thresholds) FatigueLevel(declinePct float64) FatigueLevel {
	switch {
	case declinePct < t.FatigueLow:
		return FatigueLow
	case declinePct < t.FatigueMedium:
		return FatigueMedium
	}
	return FatigueHigh
}

// FatigueWindow compares one rolling window with the player's baseline.
type FatigueWindow struct {
	StartSeconds        float64      `json:"start_s"`
	EndSeconds          float64      `json:"end_s"`
	AvgSpeed            float64      `json:"avg_speed_mps"`
	SpeedDeclinePct     float64      `json:"speed_decline_pct"`
	ReactionMs          *float64     `json:"reaction_ms,omitempty"`
	ReactionIncreasePct *float64     `json:"reaction_increase_pct,omitempty"`
	Level               FatigueLevel `json:"fatigue_level"`
}

// PlayerFatigue is one player's fatigue trend.
type PlayerFatigue struct {
	TrackID            int             `json:"track_id"`
	TeamID             int             `json:"team_id"`
	BaselineSpeed      float64         `json:"baseline_speed_mps"`
	BaselineReactionMs *float64        `json:"baseline_reaction_ms,omitempty"`
	Windows            []FatigueWindow `json:"windows"`
	MaxDeclinePct      float64         `json:"max_decline_pct"`
	Level              FatigueLevel    `json:"fatigue_level"`
}

// FatigueSummary counts graded windows.
type FatigueSummary struct {
	Players       int     `json:"players"`
	Measurements  int     `json:"measurements"`
	High          int     `json:"high"`
	Medium        int     `json:"medium"`
	Low           int     `json:"low"`
	AvgDeclinePct float64 `json:"avg_decline_pct"`
	MaxDeclinePct float64 `json:"max_decline_pct"`
}

// FatigueResult is the fatigue module output.
type FatigueResult struct {
	BaselineSeconds  float64         `json:"baseline_s"`
	WindowSeconds    float64         `json:"window_s"`
	Players          []PlayerFatigue `json:"players"`
	Summary          FatigueSummary  `json:"summary"`
	InsufficientData bool            `json:"insufficient_data"`
}

// Fatigue compares each player's moving speed in rolling windows against an early-game baseline.
// Reactions may be nil.
func (e *Engine) Fatigue(ctx context.Context, in Input, defense *DefenseResult) (*FatigueResult, error) {
	baseline, window := e.fatigueWindows(in.Duration())
	res := &FatigueResult{BaselineSeconds: baseline, WindowSeconds: window, Players: make([]PlayerFatigue, 0)}
	if in.FPS <= 0 || in.Motion == nil {
		res.InsufficientData = true
		return res, nil
	}
	bFrames := max(int(baseline*in.FPS), 1)
	wFrames := max(int(window*in.FPS), 1)

	declines := make([]float64, 0)
	for _, id := range e.fatigueCandidates(in) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := e.movingSpeeds(in, id, 0, bFrames)
		if len(base) == 0 {
			continue
		}
		pf := PlayerFatigue{TrackID: id, TeamID: lastTeam(in, id), BaselineSpeed: stat.Mean(base, nil), Windows: make([]FatigueWindow, 0)}
		pf.BaselineReactionMs = meanReaction(defense, id, 0, bFrames)
		for start := bFrames; start < in.TotalFrames; start += wFrames {
			end := min(start+wFrames, in.TotalFrames)
			cur := e.movingSpeeds(in, id, start, end)
			if len(cur) == 0 {
				continue
			}
			w := FatigueWindow{StartSeconds: in.seconds(start), EndSeconds: in.seconds(end), AvgSpeed: stat.Mean(cur, nil)}
			w.SpeedDeclinePct = math.Max(0, (pf.BaselineSpeed-w.AvgSpeed)/pf.BaselineSpeed*100)
			w.ReactionMs = meanReaction(defense, id, start, end)
			if w.ReactionMs != nil && pf.BaselineReactionMs != nil && *pf.BaselineReactionMs > 0 {
				inc := (*w.ReactionMs - *pf.BaselineReactionMs) / *pf.BaselineReactionMs * 100
				w.ReactionIncreasePct = &inc
			}
			w.Level = e.th.FatigueLevel(w.SpeedDeclinePct)
			pf.Windows = append(pf.Windows, w)
			declines = append(declines, w.SpeedDeclinePct)
			switch w.Level {
			case FatigueHigh:
				res.Summary.High++
			case FatigueMedium:
				res.Summary.Medium++
			default:
				res.Summary.Low++
			}
		}
		if len(pf.Windows) == 0 {
			continue
		}
		for _, w := range pf.Windows {
			pf.MaxDeclinePct = math.Max(pf.MaxDeclinePct, w.SpeedDeclinePct)
		}
		pf.Level = e.th.FatigueLevel(pf.MaxDeclinePct)
		res.Players = append(res.Players, pf)
	}
	if len(declines) == 0 {
		res.InsufficientData = true
		return res, nil
	}
	res.Summary.Players = len(res.Players)
	res.Summary.Measurements = len(declines)
	res.Summary.AvgDeclinePct = stat.Mean(declines, nil)
	res.Summary.MaxDeclinePct = floats.Max(declines)
	return res, nil
}

// fatigueWindows returns the baseline and rolling window lengths, shrunk for short videos.
func (e *Engine) fatigueWindows(duration float64) (baseline, window float64) {
	baseline, window = e.th.FatigueBaselineSeconds, e.th.FatigueWindowSeconds
	if duration < baseline+window {
		baseline = math.Max(minFatigueWindowSeconds, duration/3)
		window = math.Max(minFatigueWindowSeconds, duration/5)
	}
	return baseline, window
}

func (e *Engine) fatigueCandidates(in Input) []int {
	seen := map[int]bool{}
	for _, frame := range in.Teams {
		for id := range frame {
			seen[id] = true
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// movingSpeeds collects speeds above the moving threshold in [from, to).
func (e *Engine) movingSpeeds(in Input, id, from, to int) []float64 {
	out := make([]float64, 0)
	for f := from; f < to && f < len(in.Motion.Speeds); f++ {
		if v, ok := in.Motion.Speeds[f][id]; ok && v > e.th.FatigueMovingSpeed {
			out = append(out, v)
		}
	}
	return out
}

func meanReaction(defense *DefenseResult, id, from, to int) *float64 {
	if defense == nil {
		return nil
	}
	delays := make([]float64, 0)
	for _, r := range defense.Reactions {
		if r.DefenderID == id && r.Frame >= from && r.Frame < to {
			delays = append(delays, r.DelayMs)
		}
	}
	if len(delays) == 0 {
		return nil
	}
	m := stat.Mean(delays, nil)
	return &m
}

func lastTeam(in Input, id int) int {
	for f := len(in.Teams) - 1; f >= 0; f-- {
		if t, ok := in.Teams[f][id]; ok {
			return t
		}
	}
	return model.NoTeam
}
