package analytics

import (
	"context"
	"math"

	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
)

// DecisionQuality grades a shot selection.
type DecisionQuality string

// Decision grades.
const (
	HighExpectedValue DecisionQuality = "high_expected_value"
	LowExpectedValue  DecisionQuality = "low_expected_value"
	Acceptable        DecisionQuality = "acceptable"
)

// Decision is the selection grade of one shot.
type Decision struct {
	Frame             int               `json:"shot_frame"`
	ShooterID         int               `json:"shooter_track_id"`
	TeamID            int               `json:"team_id"`
	DefenderDistance  float64           `json:"shooter_contested_distance"`
	OpenTeammates     int               `json:"open_teammates"`
	BestTeammateSpace float64           `json:"best_teammate_space_m"`
	Outcome           model.ShotOutcome `json:"outcome"`
	Quality           DecisionQuality   `json:"decision_quality"`
}

// DecisionSummary counts grades.
type DecisionSummary struct {
	Shots      int     `json:"shots"`
	High       int     `json:"high_expected_value"`
	Low        int     `json:"low_expected_value"`
	Acceptable int     `json:"acceptable"`
	HighPct    float64 `json:"high_pct"`
	LowPct     float64 `json:"low_pct"`
}

// DecisionResult is the decision quality module output.
type DecisionResult struct {
	Decisions        []Decision      `json:"decisions"`
	Summary          DecisionSummary `json:"summary"`
	InsufficientData bool            `json:"insufficient_data"`
}

// Decisions compares the shooter's space with the space of open teammates at every shot.
func (e *Engine) Decisions(ctx context.Context, in Input) (*DecisionResult, error) {
	res := &DecisionResult{Decisions: make([]Decision, 0)}
	for _, s := range in.Shots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if in.Tactical == nil {
			break
		}
		pos, ok := in.Tactical.Player(s.StartFrame, s.PlayerID)
		if !ok {
			continue
		}
		team := s.TeamID
		if team == model.NoTeam {
			team = in.team(s.StartFrame, s.PlayerID)
		}
		if team == model.NoTeam {
			continue
		}
		defenders := in.players(s.StartFrame, model.Opponent(team))
		d := Decision{
			Frame:            s.StartFrame,
			ShooterID:        s.PlayerID,
			TeamID:           team,
			Outcome:          s.Outcome,
			DefenderDistance: space(pos.Point(), defenders),
		}
		for _, mate := range in.players(s.StartFrame, team) {
			if mate.TrackID == s.PlayerID {
				continue
			}
			sp := space(mate.Point(), defenders)
			d.BestTeammateSpace = math.Max(d.BestTeammateSpace, sp)
			if sp > e.th.DecisionOpen {
				d.OpenTeammates++
			}
		}
		switch {
		case d.DefenderDistance >= e.th.DecisionContested:
			d.Quality = HighExpectedValue
		case d.OpenTeammates > 0:
			d.Quality = LowExpectedValue
		default:
			d.Quality = Acceptable
		}
		res.Decisions = append(res.Decisions, d)
	}
	n := len(res.Decisions)
	if n == 0 {
		res.InsufficientData = true
		return res, nil
	}
	for _, d := range res.Decisions {
		switch d.Quality {
		case HighExpectedValue:
			res.Summary.High++
		case LowExpectedValue:
			res.Summary.Low++
		default:
			res.Summary.Acceptable++
		}
	}
	res.Summary.Shots = n
	res.Summary.HighPct = pct(res.Summary.High, n)
	res.Summary.LowPct = pct(res.Summary.Low, n)
	return res, nil
}

// space is the distance to the nearest defender, capped at the court length when nobody defends.
func space(p model.Point, defenders []model.TacticalPosition) float64 {
	if _, d, ok := nearest(p, defenders); ok {
		return d
	}
	return court.Length
}
