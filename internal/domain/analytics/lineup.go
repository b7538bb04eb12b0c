package analytics

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// LineupStats is the impact of one uninterrupted five-player segment.
type LineupStats struct {
	LineupID           string  `json:"lineup_id"`
	TeamID             int     `json:"team_id"`
	Players            []int   `json:"player_track_ids"`
	StartFrame         int     `json:"start_frame"`
	EndFrame           int     `json:"end_frame"`
	Minutes            float64 `json:"minutes"`
	PointsFor          int     `json:"points_scored"`
	PointsAgainst      int     `json:"points_allowed"`
	Possessions        int     `json:"possessions"`
	OffensiveRating    float64 `json:"offensive_rating"`
	DefensiveRating    float64 `json:"defensive_rating"`
	NetRating          float64 `json:"net_rating"`
	AvgSpacingScore    float64 `json:"avg_spacing_score"`
	Turnovers          int     `json:"turnovers"`
	DefensiveErrorRate float64 `json:"defensive_error_rate"`
}

// LineupSummary names the best and worst segments by net rating.
type LineupSummary struct {
	Lineups      int     `json:"lineups"`
	TotalMinutes float64 `json:"total_minutes"`
	Best         string  `json:"best_lineup_id,omitempty"`
	BestNet      float64 `json:"best_net_rating"`
	Worst        string  `json:"worst_lineup_id,omitempty"`
	WorstNet     float64 `json:"worst_net_rating"`
}

// LineupResult is the lineup impact module output.
type LineupResult struct {
	Lineups          []LineupStats `json:"lineups"`
	Summary          LineupSummary `json:"summary"`
	InsufficientData bool          `json:"insufficient_data"`
}

type segment struct {
	team       int
	key        string
	players    []int
	start, end int // [start, end)
}

// LineupID joins sorted track ids with underscores.
func LineupID(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, "_")
}

// Lineups rates every five-player segment that lasted long enough. Spacing and defense may be nil.
func (e *Engine) Lineups(ctx context.Context, in Input, spacing *SpacingResult, defense *DefenseResult) (*LineupResult, error) {
	res := &LineupResult{Lineups: make([]LineupStats, 0)}
	if in.FPS <= 0 {
		res.InsufficientData = true
		return res, nil
	}
	minFrames := int(e.th.LineupMinSeconds * in.FPS)
	for _, seg := range e.segments(in) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seg.end-seg.start < minFrames {
			continue
		}
		res.Lineups = append(res.Lineups, rateSegment(in, seg, spacing, defense))
	}
	if len(res.Lineups) == 0 {
		res.InsufficientData = true
		return res, nil
	}
	best, worst := res.Lineups[0], res.Lineups[0]
	for _, l := range res.Lineups {
		res.Summary.TotalMinutes += l.Minutes
		if l.NetRating > best.NetRating {
			best = l
		}
		if l.NetRating < worst.NetRating {
			worst = l
		}
	}
	res.Summary.Lineups = len(res.Lineups)
	res.Summary.Best, res.Summary.BestNet = best.LineupID, best.NetRating
	res.Summary.Worst, res.Summary.WorstNet = worst.LineupID, worst.NetRating
	return res, nil
}

// segments splits each team's frames into runs of one unchanged lineup. A frame where a team
// does not field exactly LineupSize players ends its run.
func (e *Engine) segments(in Input) []segment {
	var out []segment
	open := map[int]*segment{}
	closeRun := func(team, frame int) {
		if s := open[team]; s != nil {
			s.end = frame
			out = append(out, *s)
			delete(open, team)
		}
	}
	for f := 0; f < in.TotalFrames; f++ {
		byTeam := map[int][]int{}
		if f < len(in.Teams) {
			for id, team := range in.Teams[f] {
				byTeam[team] = append(byTeam[team], id)
			}
		}
		for _, team := range []int{model.Team1, model.Team2} {
			ids := byTeam[team]
			if len(ids) != e.th.LineupSize {
				closeRun(team, f)
				continue
			}
			key := LineupID(ids)
			if s := open[team]; s != nil && s.key == key {
				continue
			}
			closeRun(team, f)
			sort.Ints(ids)
			open[team] = &segment{team: team, key: key, players: ids, start: f}
		}
	}
	for _, team := range []int{model.Team1, model.Team2} {
		closeRun(team, in.TotalFrames)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func rateSegment(in Input, seg segment, spacing *SpacingResult, defense *DefenseResult) LineupStats {
	inSeg := func(f int) bool { return f >= seg.start && f < seg.end }
	opp := model.Opponent(seg.team)
	l := LineupStats{
		LineupID:   seg.key,
		TeamID:     seg.team,
		Players:    seg.players,
		StartFrame: seg.start,
		EndFrame:   seg.end,
		Minutes:    float64(seg.end-seg.start) / in.FPS / 60,
	}
	oppPoss := 0
	for _, s := range in.Shots {
		if !inSeg(s.StartFrame) {
			continue
		}
		switch s.TeamID {
		case seg.team:
			l.Possessions++
			if s.Outcome == model.OutcomeMade {
				l.PointsFor += s.Type.Points()
			}
		case opp:
			oppPoss++
			if s.Outcome == model.OutcomeMade {
				l.PointsAgainst += s.Type.Points()
			}
		}
	}
	l.Possessions = max(l.Possessions, 1)
	oppPoss = max(oppPoss, 1)
	l.OffensiveRating = 100 * float64(l.PointsFor) / float64(l.Possessions)
	l.DefensiveRating = 100 * float64(l.PointsAgainst) / float64(oppPoss)
	l.NetRating = l.OffensiveRating - l.DefensiveRating

	if spacing != nil {
		scores := make([]float64, 0)
		for _, sf := range spacing.Frames {
			if sf.TeamID == seg.team && inSeg(sf.Frame) {
				scores = append(scores, sf.Quality.Score())
			}
		}
		if len(scores) > 0 {
			l.AvgSpacingScore = stat.Mean(scores, nil)
		}
	}
	for _, ic := range in.Interceptions {
		if ic.TeamID == opp && inSeg(ic.Frame) {
			l.Turnovers++
		}
	}
	if defense != nil {
		late, total := 0, 0
		for _, r := range defense.Reactions {
			if r.OffenseTeam == opp && inSeg(r.Frame) {
				total++
				if r.Late {
					late++
				}
			}
		}
		if total > 0 {
			l.DefensiveErrorRate = float64(late) / float64(total)
		}
	}
	return l
}
