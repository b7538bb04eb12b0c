package shots

import (
	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Tally counts attempts by outcome. Percentage covers decided attempts only.
type Tally struct {
	Attempts   int     `json:"attempts"`
	Made       int     `json:"made"`
	Missed     int     `json:"missed"`
	Unknown    int     `json:"unknown"`
	Percentage float64 `json:"percentage"`
}

func (t *Tally) add(s model.Shot) {
	t.Attempts++
	switch s.Outcome {
	case model.OutcomeMade:
		t.Made++
	case model.OutcomeMissed:
		t.Missed++
	default:
		t.Unknown++
	}
	if decided := t.Made + t.Missed; decided > 0 {
		t.Percentage = 100 * float64(t.Made) / float64(decided)
	}
}

// Stats aggregates a run's shots.
type Stats struct {
	Tally
	ByType        map[model.ShotType]*Tally `json:"by_type"`
	ByTeam        map[int]*Tally            `json:"by_team"`
	AvgConfidence float64                   `json:"avg_confidence"`
}

// Summarize aggregates shots. Every shot type and both teams are always present.
func Summarize(shots []model.Shot) Stats {
	s := Stats{
		ByType: map[model.ShotType]*Tally{model.ShotLayup: {}, model.ShotMidRange: {}, model.ShotThree: {}},
		ByTeam: map[int]*Tally{model.Team1: {}, model.Team2: {}},
	}
	conf := make([]float64, 0, len(shots))
	for _, shot := range shots {
		s.add(shot)
		if t, ok := s.ByType[shot.Type]; ok {
			t.add(shot)
		}
		if t, ok := s.ByTeam[shot.TeamID]; ok {
			t.add(shot)
		}
		conf = append(conf, shot.Confidence)
	}
	if len(conf) > 0 {
		s.AvgConfidence = stat.Mean(conf, nil)
	}
	return s
}
