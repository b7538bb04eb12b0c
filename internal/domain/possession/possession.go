// Package possession assigns ball possession per frame and derives passes and interceptions.
package possession

import (
	"math"

	"github.com/okian/hoopiq/internal/domain/model"
)

const (
	defaultMaxDistance = 50.0
	defaultMinFrames   = 3
)

// Detector assigns the ball to the closest player within a pixel distance.
type Detector struct {
	maxDistance float64
	minFrames   int
}

// Option configures a Detector.
type Option func(*Detector)

// WithMaxDistance sets the largest ball-to-player distance, in pixels, that counts as possession.
func WithMaxDistance(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.maxDistance = px
		}
	}
}

// WithMinFrames sets how many consecutive frames a closer candidate needs before taking the ball
// from a possessor who is still within range.
func WithMinFrames(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minFrames = n
		}
	}
}

// NewDetector creates a possession Detector.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{maxDistance: defaultMaxDistance, minFrames: defaultMinFrames}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Possession returns the possessing track id of every frame, or model.NoPossession.
// A returned id is always present in that frame's player tracks.
func (d *Detector) Possession(players, ball *model.TrackStore) []int {
	out := make([]int, players.Len())
	current, candidate, streak := model.NoPossession, model.NoPossession, 0
	for f := range out {
		out[f] = model.NoPossession
		b, ok := ball.Get(f, model.BallTrackID)
		if !ok {
			streak = 0
			continue
		}
		nearest := d.nearest(players.Frame(f), b.BBox.Center())
		if nearest == model.NoPossession {
			streak = 0
			continue
		}
		if nearest == candidate {
			streak++
		} else {
			candidate, streak = nearest, 1
		}
		switch {
		case nearest == current:
		case !d.inRange(players, f, current, b.BBox.Center()) || streak >= d.minFrames:
			current = nearest
		}
		out[f] = current
	}
	return out
}

// inRange reports whether track id is in frame f and close enough to hold the ball.
func (d *Detector) inRange(players *model.TrackStore, f, id int, ball model.Point) bool {
	b, ok := players.Get(f, id)
	if !ok {
		return false
	}
	return math.Min(ball.Dist(b.BBox.Foot()), ball.Dist(b.BBox.Center())) <= d.maxDistance
}

// nearest returns the player whose foot or body center is closest to the ball, within range.
func (d *Detector) nearest(frame map[int]model.TrackBox, ball model.Point) int {
	best, bestDist := model.NoPossession, math.Inf(1)
	for id, b := range frame {
		if b.Class == model.ClassReferee {
			continue
		}
		dist := math.Min(ball.Dist(b.BBox.Foot()), ball.Dist(b.BBox.Center()))
		if dist > d.maxDistance {
			continue
		}
		if dist < bestDist || (dist == bestDist && id < best) {
			best, bestDist = id, dist
		}
	}
	return best
}

// Events walks the possession sequence and emits a pass when the ball moves to a teammate and
// an interception when it moves to the other team. Frames without possession are ignored.
func Events(possession []int, teams []map[int]int) ([]model.PassEvent, []model.InterceptionEvent) {
	passes := []model.PassEvent{}
	interceptions := []model.InterceptionEvent{}
	prev, prevTeam := model.NoPossession, model.NoTeam
	for f, p := range possession {
		if p == model.NoPossession {
			continue
		}
		team := teamOf(teams, f, p)
		if prev != model.NoPossession && p != prev && team != model.NoTeam && prevTeam != model.NoTeam {
			if team == prevTeam {
				passes = append(passes, model.PassEvent{Frame: f, TeamID: team, From: prev, To: p})
			} else {
				interceptions = append(interceptions, model.InterceptionEvent{Frame: f, TeamID: team, From: prev, To: p})
			}
		}
		prev, prevTeam = p, team
	}
	return passes, interceptions
}

// Percentages returns each team's share of frames with possession; 50/50 when nobody held the ball.
func Percentages(possession []int, teams []map[int]int) (team1, team2 float64) {
	var c1, c2 int
	for f, p := range possession {
		switch teamOf(teams, f, p) {
		case model.Team1:
			c1++
		case model.Team2:
			c2++
		}
	}
	if c1+c2 == 0 {
		return 50, 50
	}
	total := float64(c1 + c2)
	return 100 * float64(c1) / total, 100 * float64(c2) / total
}

// TeamAt returns the team holding the ball at frame, or model.NoTeam.
func TeamAt(possession []int, teams []map[int]int, f int) int {
	if f < 0 || f >= len(possession) {
		return model.NoTeam
	}
	return teamOf(teams, f, possession[f])
}

func teamOf(teams []map[int]int, f, id int) int {
	if id == model.NoPossession || f >= len(teams) || teams[f] == nil {
		return model.NoTeam
	}
	return teams[f][id]
}
