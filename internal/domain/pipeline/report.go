package pipeline

import (
	"fmt"
	"sort"

	"github.com/okian/hoopiq/internal/domain/analytics"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/motion"
	"github.com/okian/hoopiq/internal/domain/shots"
)

// Status is the final state of a report.
type Status string

// Report states.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// PossessionShare is each team's share of frames with possession, in percent.
type PossessionShare struct {
	Team1Pct float64 `json:"team1_pct"`
	Team2Pct float64 `json:"team2_pct"`
}

// TeamCount counts events per team.
type TeamCount struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

func (c *TeamCount) add(team int) {
	switch team {
	case model.Team1:
		c.Team1++
	case model.Team2:
		c.Team2++
	}
}

// Movement summarizes speed and distance.
type Movement struct {
	TotalDistance float64                 `json:"total_distance_m"`
	AvgSpeed      float64                 `json:"avg_speed_mps"`
	MaxSpeed      float64                 `json:"max_speed_mps"`
	Players       []motion.PlayerMovement `json:"players"`
}

// Report is the aggregated result of one run. Slices are never nil.
type Report struct {
	VideoID           string            `json:"video_id"`
	Status            Status            `json:"status"`
	Error             string            `json:"error,omitempty"`
	TotalFrames       int               `json:"total_frames"`
	FPS               float64           `json:"fps"`
	DurationSeconds   float64           `json:"duration_seconds"`
	PlayersDetected   int               `json:"players_detected"`
	Possession        PossessionShare   `json:"possession"`
	Passes            TeamCount         `json:"passes"`
	Interceptions     TeamCount         `json:"interceptions"`
	Shots             shots.Stats       `json:"shots"`
	ShotList          []model.Shot      `json:"shot_list"`
	Movement          Movement          `json:"movement"`
	Events            []model.Event     `json:"events"`
	Analytics         *analytics.Bundle `json:"analytics,omitempty"`
	ProcessingSeconds float64           `json:"processing_seconds"`
}

// FailedReport is the report of a run that could not complete.
func FailedReport(videoID string, err error) *Report {
	r := &Report{
		VideoID:    videoID,
		Status:     StatusFailed,
		Possession: PossessionShare{Team1Pct: 50, Team2Pct: 50},
		Shots:      shots.Summarize(nil),
		ShotList:   make([]model.Shot, 0),
		Movement:   Movement{Players: make([]motion.PlayerMovement, 0)},
		Events:     make([]model.Event, 0),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Timeline merges passes, interceptions and shots into one list ordered by frame.
func Timeline(fps float64, passes []model.PassEvent, interceptions []model.InterceptionEvent, list []model.Shot) []model.Event {
	ts := func(f int) float64 {
		if fps <= 0 {
			return 0
		}
		return float64(f) / fps
	}
	out := make([]model.Event, 0, len(passes)+len(interceptions)+len(list))
	for _, p := range passes {
		out = append(out, model.Event{Frame: p.Frame, Timestamp: ts(p.Frame), Type: model.EventPass, TeamID: p.TeamID, PlayerID: p.To,
			Detail: fmt.Sprintf("%d to %d", p.From, p.To)})
	}
	for _, ic := range interceptions {
		out = append(out, model.Event{Frame: ic.Frame, Timestamp: ts(ic.Frame), Type: model.EventInterception, TeamID: ic.TeamID, PlayerID: ic.To,
			Detail: fmt.Sprintf("%d stolen from %d", ic.To, ic.From)})
	}
	for _, s := range list {
		out = append(out, model.Event{Frame: s.StartFrame, Timestamp: ts(s.StartFrame), Type: model.EventShot, TeamID: s.TeamID, PlayerID: s.PlayerID,
			Detail: fmt.Sprintf("%s %s", s.Type, s.Outcome)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out
}
