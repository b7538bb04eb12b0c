// Package motion differentiates tactical positions into speed and distance per track.
package motion

import (
	"sort"

	"github.com/okian/hoopiq/internal/domain/court"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultFPS      = 30.0
	defaultMaxSpeed = 12.0 // m/s; faster steps are projection noise
)

// PlayerMovement summarizes one track.
type PlayerMovement struct {
	TrackID  int     `json:"track_id"`
	TeamID   int     `json:"team_id"`
	Distance float64 `json:"distance_m"`
	AvgSpeed float64 `json:"avg_speed_mps"`
	MaxSpeed float64 `json:"max_speed_mps"`
}

// Result holds per-frame speeds and cumulative distances plus per-player totals.
type Result struct {
	// Speeds[f][id] is the speed in m/s between frame f-1 and f.
	Speeds []map[int]float64
	// Distances[f][id] is the distance covered by id up to frame f.
	Distances     []map[int]float64
	Players       []PlayerMovement
	TotalDistance float64
	AvgSpeed      float64
	MaxSpeed      float64
}

// Speed returns a track's speed at frame, zero when unknown.
func (r *Result) Speed(frame, id int) float64 {
	if r == nil || frame < 0 || frame >= len(r.Speeds) {
		return 0
	}
	return r.Speeds[frame][id]
}

// Calculator computes movement metrics.
type Calculator struct {
	fps      float64
	maxSpeed float64
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithFPS sets the frame rate.
func WithFPS(fps float64) Option {
	return func(c *Calculator) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithMaxSpeed sets the plausibility cap in m/s.
func WithMaxSpeed(mps float64) Option {
	return func(c *Calculator) {
		if mps > 0 {
			c.maxSpeed = mps
		}
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{fps: defaultFPS, maxSpeed: defaultMaxSpeed}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute derives speed and distance. A frame missing either endpoint contributes no displacement.
func (c *Calculator) Compute(t *court.Tactical, teams []map[int]int) *Result {
	n := t.Frames()
	r := &Result{
		Speeds:    make([]map[int]float64, n),
		Distances: make([]map[int]float64, n),
		Players:   []PlayerMovement{},
	}
	total := map[int]float64{}
	speeds := map[int][]float64{}
	team := map[int]int{}

	for f := 0; f < n; f++ {
		r.Speeds[f] = make(map[int]float64)
		r.Distances[f] = make(map[int]float64)
		for id, p := range t.Players[f] {
			if f < len(teams) && teams[f] != nil {
				if tm, ok := teams[f][id]; ok {
					team[id] = tm
				}
			}
			if prev, ok := t.Player(f-1, id); ok {
				step := prev.Point().Dist(p.Point())
				speed := step * c.fps
				if speed > c.maxSpeed {
					step, speed = 0, 0
				}
				total[id] += step
				r.Speeds[f][id] = speed
				speeds[id] = append(speeds[id], speed)
			}
			r.Distances[f][id] = total[id]
		}
	}

	ids := make([]int, 0, len(total))
	for id := range total {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var dists, avgs []float64
	for _, id := range ids {
		pm := PlayerMovement{TrackID: id, TeamID: team[id], Distance: total[id]}
		if s := speeds[id]; len(s) > 0 {
			pm.AvgSpeed = stat.Mean(s, nil)
			pm.MaxSpeed = floats.Max(s)
		}
		r.Players = append(r.Players, pm)
		dists = append(dists, pm.Distance)
		avgs = append(avgs, pm.AvgSpeed)
		if pm.MaxSpeed > r.MaxSpeed {
			r.MaxSpeed = pm.MaxSpeed
		}
	}
	if len(ids) > 0 {
		r.TotalDistance = floats.Sum(dists)
		r.AvgSpeed = stat.Mean(avgs, nil)
	}
	return r
}
