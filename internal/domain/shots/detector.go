// Package shots finds shot attempts in the ball trajectory and decides their outcome.
package shots

import (
	"context"
	"math"

	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/pkg/logger"
	"gonum.org/v1/gonum/floats"
)

const (
	defaultMinArcHeight    = 50.0
	defaultApexDrop        = 20.0
	defaultWindow          = 30
	defaultSuccessWindow   = 30
	defaultUpwardVelocity  = -5.0
	defaultSmoothing       = 3
	defaultRimTolerance    = 40.0
	defaultLayupPx         = 150.0
	defaultThreePx         = 400.0
	defaultLayupMeters     = 2.0
	defaultThreeMeters     = 6.75
	defaultMaxGap          = 5
	defaultShooterLookback = 10

	resumeAfterPeak   = 5
	towardHoopFactor  = 1.5
	minConfidence     = 0.3
	unknownConfidence = 0.3
)

// Input is everything the detector reads from earlier stages. Only Trajectory and Hoops are
// required; the rest enrich the shot with shooter, team and metric distance.
type Input struct {
	Trajectory []model.BallTrajectoryPoint
	// Hoops holds the best hoop box per frame, nil where none was seen.
	Hoops      []*model.BBox
	Possession []int
	Teams      []map[int]int
	Tactical   *court.Tactical
}

// Detector finds shot attempts.
type Detector struct {
	minArcHeight    float64
	apexDrop        float64
	window          int
	successWindow   int
	upwardVelocity  float64
	smoothing       int
	rimTolerance    float64
	layupPx         float64
	threePx         float64
	layupMeters     float64
	threeMeters     float64
	maxGap          int
	shooterLookback int
	logger          logger.Logger
}

// NewDetector creates a shot detector with the given options.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		minArcHeight:    defaultMinArcHeight,
		apexDrop:        defaultApexDrop,
		window:          defaultWindow,
		successWindow:   defaultSuccessWindow,
		upwardVelocity:  defaultUpwardVelocity,
		smoothing:       defaultSmoothing,
		rimTolerance:    defaultRimTolerance,
		layupPx:         defaultLayupPx,
		threePx:         defaultThreePx,
		layupMeters:     defaultLayupMeters,
		threeMeters:     defaultThreeMeters,
		maxGap:          defaultMaxGap,
		shooterLookback: defaultShooterLookback,
		logger:          logger.Get().Named("shots"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the attempts in trajectory order. Each StartFrame appears at most once.
func (d *Detector) Detect(ctx context.Context, in Input) []model.Shot {
	traj := in.Trajectory
	out := make([]model.Shot, 0)
	discarded := 0
	for i := 0; i < len(traj); {
		if !d.launching(traj, i) {
			i++
			continue
		}
		start := traj[i]
		peakIdx := d.apex(traj, i)
		peak := traj[peakIdx]
		if start.Y-peak.Y < d.minArcHeight {
			i++
			continue
		}
		if sightings(in.Hoops, start.Frame, start.Frame+d.window) == 0 {
			discarded++
			i = peakIdx + resumeAfterPeak
			continue
		}
		hoop, ok := locateHoop(in.Hoops, peak.Frame, start.Frame+d.window)
		if !ok {
			discarded++
			i = peakIdx + resumeAfterPeak
			continue
		}
		rim := hoop.Center()
		if math.Abs(peak.X-rim.X) >= math.Abs(start.X-rim.X)*towardHoopFactor {
			i++
			continue
		}

		shot := model.Shot{StartFrame: start.Frame, PeakFrame: peak.Frame, Origin: model.Point{X: start.X, Y: start.Y}}
		shot.Outcome, shot.OutcomeFrame, shot.Confidence = d.outcome(traj, peakIdx, rim.X, hoop.Y1)
		shot.PlayerID, shot.TeamID = d.shooter(in, start.Frame)
		shot.Distance, shot.Metric = d.distance(in.Tactical, shot.PlayerID, start, rim)
		shot.Type = d.classify(shot.Distance, shot.Metric)
		out = append(out, shot)
		i = peakIdx + resumeAfterPeak
	}
	d.logger.Debug(ctx, "shots detected",
		logger.Int("shots", len(out)),
		logger.Int("discarded_without_hoop", discarded))
	return out
}

// launching reports whether the ball leaves point i upward: the next velocity and the mean of
// the next smoothing velocities are both below the threshold.
func (d *Detector) launching(traj []model.BallTrajectoryPoint, i int) bool {
	if i+d.smoothing >= len(traj) {
		return false
	}
	vy := make([]float64, d.smoothing)
	for k := range vy {
		vy[k] = traj[i+1+k].VY
	}
	return vy[0] < d.upwardVelocity && floats.Sum(vy)/float64(len(vy)) < d.upwardVelocity
}

// apex returns the index of the highest point within the window after start.
func (d *Detector) apex(traj []model.BallTrajectoryPoint, start int) int {
	peak := start
	for j := start + 1; j < len(traj) && traj[j].Frame-traj[start].Frame <= d.window; j++ {
		if traj[j].Y < traj[peak].Y {
			peak = j
			continue
		}
		if traj[j].Y > traj[peak].Y+d.apexDrop {
			break
		}
	}
	return peak
}

// outcome scans after the apex for the first downward pass through rim level. An apex at or
// below the rim is a miss with the confidence floor.
func (d *Detector) outcome(traj []model.BallTrajectoryPoint, peakIdx int, rimX, rimY float64) (model.ShotOutcome, int, float64) {
	peak := traj[peakIdx]
	if peak.Y >= rimY {
		return model.OutcomeMissed, peak.Frame, minConfidence
	}
	last := peak.Frame
	for j := peakIdx + 1; j < len(traj) && traj[j].Frame-peak.Frame <= d.successWindow; j++ {
		prev, cur := traj[j-1], traj[j]
		if cur.Frame-prev.Frame > d.maxGap {
			return model.OutcomeUnknown, prev.Frame, unknownConfidence
		}
		last = cur.Frame
		if prev.Y >= rimY || cur.Y < rimY {
			continue
		}
		x := cur.X
		if cur.Y != prev.Y {
			x = prev.X + (rimY-prev.Y)/(cur.Y-prev.Y)*(cur.X-prev.X)
		}
		dx := math.Abs(x - rimX)
		conf := math.Max(minConfidence, math.Min(1, 1-dx/(3*d.rimTolerance)))
		if cur.VY > 0 && dx <= d.rimTolerance {
			return model.OutcomeMade, cur.Frame, conf
		}
		return model.OutcomeMissed, cur.Frame, conf
	}
	return model.OutcomeUnknown, last, unknownConfidence
}

// shooter is the possessor at the launch frame or shortly before it.
func (d *Detector) shooter(in Input, start int) (player, team int) {
	for f := start; f >= 0 && f >= start-d.shooterLookback; f-- {
		if f >= len(in.Possession) || in.Possession[f] == model.NoPossession {
			continue
		}
		player = in.Possession[f]
		if f < len(in.Teams) && in.Teams[f] != nil {
			team = in.Teams[f][player]
		}
		return player, team
	}
	return model.NoPossession, model.NoTeam
}

// distance measures the launch point to the hoop, in meters when tactical data covers the launch.
func (d *Detector) distance(t *court.Tactical, player int, start model.BallTrajectoryPoint, rim model.Point) (float64, bool) {
	if t != nil {
		if pos, ok := t.Player(start.Frame, player); ok {
			p := pos.Point()
			return p.Dist(court.NearestHoop(p)), true
		}
		if start.Frame < len(t.Ball) && t.Ball[start.Frame] != nil {
			p := *t.Ball[start.Frame]
			return p.Dist(court.NearestHoop(p)), true
		}
	}
	return model.Point{X: start.X, Y: start.Y}.Dist(rim), false
}

func (d *Detector) classify(dist float64, metric bool) model.ShotType {
	layup, three := d.layupPx, d.threePx
	if metric {
		layup, three = d.layupMeters, d.threeMeters
	}
	switch {
	case dist < layup:
		return model.ShotLayup
	case dist > three:
		return model.ShotThree
	}
	return model.ShotMidRange
}

func sightings(hoops []*model.BBox, from, to int) int {
	n := 0
	for f := max(from, 0); f <= to && f < len(hoops); f++ {
		if hoops[f] != nil {
			n++
		}
	}
	return n
}

// locateHoop returns the most recent hoop at or before frame, else the nearest one after it up to limit.
func locateHoop(hoops []*model.BBox, frame, limit int) (model.BBox, bool) {
	for f := min(frame, len(hoops)-1); f >= 0; f-- {
		if hoops[f] != nil {
			return *hoops[f], true
		}
	}
	for f := frame + 1; f <= limit && f < len(hoops); f++ {
		if hoops[f] != nil {
			return *hoops[f], true
		}
	}
	return model.BBox{}, false
}
