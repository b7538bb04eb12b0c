package analytics

import (
	"context"

	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SpacingQuality grades the average distance between offensive players.
type SpacingQuality string

// Spacing grades.
const (
	SpacingGood    SpacingQuality = "good"
	SpacingAverage SpacingQuality = "average"
	SpacingPoor    SpacingQuality = "poor"
)

// Score maps the grade to 3, 2 or 1.
func (q SpacingQuality) Score() float64 {
	switch q {
	case SpacingGood:
		return 3
	case SpacingAverage:
		return 2
	}
	return 1
}

// SpacingFrame is the offensive spacing of one frame.
type SpacingFrame struct {
	Frame          int            `json:"frame"`
	Timestamp      float64        `json:"timestamp"`
	TeamID         int            `json:"team_id"`
	Players        int            `json:"players"`
	AvgDistance    float64        `json:"avg_distance_m"`
	MinDistance    float64        `json:"min_distance_m"`
	MaxDistance    float64        `json:"max_distance_m"`
	ClusteredPairs int            `json:"clustered_pairs"`
	PaintPlayers   int            `json:"paint_players"`
	Quality        SpacingQuality `json:"quality"`
}

// SpacingSummary aggregates spacing over the run.
type SpacingSummary struct {
	FramesAnalyzed int     `json:"frames_analyzed"`
	GoodPct        float64 `json:"good_pct"`
	AveragePct     float64 `json:"average_pct"`
	PoorPct        float64 `json:"poor_pct"`
	AvgDistance    float64 `json:"avg_distance_m"`
}

// SpacingResult is the spacing module output.
type SpacingResult struct {
	Frames           []SpacingFrame `json:"frames"`
	Summary          SpacingSummary `json:"summary"`
	InsufficientData bool           `json:"insufficient_data"`
}

// Spacing measures, for every frame with a team in possession, how spread that team's players are.
func (e *Engine) Spacing(ctx context.Context, in Input) (*SpacingResult, error) {
	res := &SpacingResult{Frames: make([]SpacingFrame, 0)}
	counts := map[SpacingQuality]int{}
	avgs := make([]float64, 0)
	for f := range in.Possession {
		if f%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		team := in.team(f, in.possessor(f))
		if team == model.NoTeam {
			continue
		}
		ps := in.players(f, team)
		if len(ps) < 2 {
			continue
		}
		sf := e.spacingFrame(ps)
		sf.Frame, sf.Timestamp, sf.TeamID = f, in.seconds(f), team
		res.Frames = append(res.Frames, sf)
		counts[sf.Quality]++
		avgs = append(avgs, sf.AvgDistance)
	}
	n := len(res.Frames)
	if n == 0 {
		res.InsufficientData = true
		return res, nil
	}
	res.Summary = SpacingSummary{
		FramesAnalyzed: n,
		GoodPct:        pct(counts[SpacingGood], n),
		AveragePct:     pct(counts[SpacingAverage], n),
		PoorPct:        pct(counts[SpacingPoor], n),
		AvgDistance:    stat.Mean(avgs, nil),
	}
	return res, nil
}

func (e *Engine) spacingFrame(ps []model.TacticalPosition) SpacingFrame {
	dists := make([]float64, 0, len(ps)*(len(ps)-1)/2)
	sf := SpacingFrame{Players: len(ps)}
	for i := range ps {
		if court.InPaint(ps[i].Point()) {
			sf.PaintPlayers++
		}
		for j := i + 1; j < len(ps); j++ {
			d := ps[i].Point().Dist(ps[j].Point())
			dists = append(dists, d)
			if d < e.th.SpacingClustered {
				sf.ClusteredPairs++
			}
		}
	}
	sf.AvgDistance = stat.Mean(dists, nil)
	sf.MinDistance = floats.Min(dists)
	sf.MaxDistance = floats.Max(dists)
	switch {
	case sf.AvgDistance >= e.th.SpacingGood:
		sf.Quality = SpacingGood
	case sf.AvgDistance >= e.th.SpacingAverage:
		sf.Quality = SpacingAverage
	default:
		sf.Quality = SpacingPoor
	}
	return sf
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
