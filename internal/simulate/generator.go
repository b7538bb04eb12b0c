// Package simulate generates synthetic basketball detections and drives the service with them.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/hoopiq/internal/domain/court"
	"github.com/okian/hoopiq/internal/domain/model"
)

// Generator defaults.
const (
	defaultFrames      = 900
	defaultFPS         = 30.0
	defaultWidth       = 1280
	defaultHeight      = 720
	defaultMadeChance  = 0.6
	defaultDropChance  = 0.03
	playersPerTeam     = 5
	playerHeightPx     = 90.0
	playerWidthPx      = 30.0
	ballSizePx         = 14.0
	handOffsetPx       = 30.0
	hoopLiftPx         = 120.0
	shotFrames         = 40
	shotTailFrames     = 10
	looseBallFrames    = 15
	minHoldFrames      = 30
	holdJitterFrames   = 30
	missOffsetPx       = 90.0
	passSpeedPxPerFrm  = 30.0
	minPassFrames      = 6
	shotExtraArcPx     = 150.0
	playerSwayMeters   = 1.5
	keypointJitterPx   = 0.5
	detectionJitterPx  = 1.0
	passChance         = 0.7
	shotChance         = 0.2
)

// camera is the perspective used to render court meters into pixels.
var camera = court.Matrix3{ //nolint:gochecknoglobals // fixed synthetic camera
	{42, 6, 120},
	{-2, 30, 90},
	{0.0004, 0.012, 1},
}

// spots are the base court positions of each team in meters.
var spots = [2][playersPerTeam]model.Point{ //nolint:gochecknoglobals // fixed formation
	{{X: 16, Y: 3}, {X: 16, Y: 12}, {X: 20, Y: 7.5}, {X: 23, Y: 2}, {X: 23, Y: 13}},
	{{X: 18, Y: 4}, {X: 18, Y: 13.5}, {X: 22, Y: 9}, {X: 25, Y: 3}, {X: 25, Y: 14}},
}

// jerseys are the mean jersey colors of each team.
var jerseys = [2][3]float64{{240, 240, 240}, {20, 30, 120}} //nolint:gochecknoglobals // fixed palette

// Option configures a Generator.
type Option func(*Generator)

// WithFrames sets the number of frames.
func WithFrames(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.frames = n
		}
	}
}

// WithFPS sets the frame rate.
func WithFPS(fps float64) Option {
	return func(g *Generator) {
		if fps > 0 {
			g.fps = fps
		}
	}
}

// WithSeed makes the game reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithVideoID sets the video id.
func WithVideoID(id string) Option {
	return func(g *Generator) {
		if id != "" {
			g.videoID = id
		}
	}
}

// WithSourcePath records a source video path in the header.
func WithSourcePath(path string) Option {
	return func(g *Generator) { g.sourcePath = path }
}

// WithMadeChance sets the probability that a shot goes in.
func WithMadeChance(p float64) Option {
	return func(g *Generator) {
		if p >= 0 && p <= 1 {
			g.madeChance = p
		}
	}
}

// WithDropChance sets the probability that a detection is missed.
func WithDropChance(p float64) Option {
	return func(g *Generator) {
		if p >= 0 && p < 1 {
			g.dropChance = p
		}
	}
}

// Generator renders a half-court scrimmage: both teams attack the right hoop, the ball is held,
// passed, stolen and shot according to a seeded script.
type Generator struct {
	frames     int
	fps        float64
	seed       uint64
	videoID    string
	sourcePath string
	madeChance float64
	dropChance float64
	rng        *rand.Rand
	sway       [2][playersPerTeam][2]float64 // angular speed and phase per player
}

// Shot is a scripted attempt, exported so callers can compare detections with the script.
type Shot struct {
	Frame   int
	Shooter int
	Made    bool
}

// NewGenerator creates a generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		frames:     defaultFrames,
		fps:        defaultFPS,
		seed:       1,
		videoID:    "simulated",
		madeChance: defaultMadeChance,
		dropChance: defaultDropChance,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the game and returns its detections and scripted shots.
func (g *Generator) Generate() (*model.Video, []Shot) {
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	for t := range g.sway {
		for i := range g.sway[t] {
			g.sway[t][i] = [2]float64{0.3 + 0.5*g.rng.Float64(), 2 * math.Pi * g.rng.Float64()}
		}
	}
	balls, script := g.script()
	video := &model.Video{
		ID:         g.videoID,
		FPS:        g.fps,
		Width:      defaultWidth,
		Height:     defaultHeight,
		SourcePath: g.sourcePath,
		Frames:     make([]model.FrameDetections, g.frames),
	}
	hoop := g.hoopPixel()
	for f := 0; f < g.frames; f++ {
		fd := model.FrameDetections{Frame: f, Detections: make([]model.Detection, 0, 2*playersPerTeam+2)}
		for team := 0; team < 2; team++ {
			for i := 0; i < playersPerTeam; i++ {
				if g.dropped() {
					continue
				}
				foot := g.jitter(g.foot(team, i, f), detectionJitterPx)
				fd.Detections = append(fd.Detections, model.Detection{
					Frame:      f,
					Class:      model.ClassPlayer,
					BBox:       model.BBox{X1: foot.X - playerWidthPx/2, Y1: foot.Y - playerHeightPx, X2: foot.X + playerWidthPx/2, Y2: foot.Y},
					Confidence: 0.8 + 0.15*g.rng.Float64(),
					Color:      g.jersey(team),
				})
			}
		}
		if b := balls[f]; !g.dropped() {
			fd.Detections = append(fd.Detections, model.Detection{
				Frame:      f,
				Class:      model.ClassBall,
				BBox:       model.BBox{X1: b.X - ballSizePx/2, Y1: b.Y - ballSizePx/2, X2: b.X + ballSizePx/2, Y2: b.Y + ballSizePx/2},
				Confidence: 0.6 + 0.3*g.rng.Float64(),
			})
		}
		fd.Detections = append(fd.Detections, model.Detection{
			Frame:      f,
			Class:      model.ClassHoop,
			BBox:       model.BBox{X1: hoop.X - 20, Y1: hoop.Y - 10, X2: hoop.X + 20, Y2: hoop.Y + 10},
			Confidence: 0.9,
		})
		fd.Keypoints = g.keypoints()
		video.Frames[f] = fd
	}
	return video, script
}

// position returns a player's court position in meters at frame f.
func (g *Generator) position(team, i, f int) model.Point {
	t := float64(f) / g.fps
	w, phase := g.sway[team][i][0], g.sway[team][i][1]
	base := spots[team][i]
	return model.Point{
		X: base.X + playerSwayMeters*math.Sin(w*t+phase),
		Y: base.Y + playerSwayMeters*0.5*math.Cos(w*t+phase),
	}
}

func (g *Generator) foot(team, i, f int) model.Point {
	p, _ := camera.Apply(g.position(team, i, f))
	return p
}

func (g *Generator) hand(player, f int) model.Point {
	p := g.foot(player/playersPerTeam, player%playersPerTeam, f)
	return model.Point{X: p.X, Y: p.Y - handOffsetPx}
}

func (g *Generator) hoopPixel() model.Point {
	p, _ := camera.Apply(court.HoopPositions[1])
	return model.Point{X: p.X, Y: p.Y - hoopLiftPx}
}

func (g *Generator) keypoints() []model.Point {
	out := make([]model.Point, len(court.Keypoints))
	for i, k := range court.Keypoints {
		p, _ := camera.Apply(k)
		out[i] = g.jitter(p, keypointJitterPx)
	}
	return out
}

func (g *Generator) jersey(team int) []float64 {
	c := jerseys[team]
	return []float64{c[0] + 10*g.rng.NormFloat64(), c[1] + 10*g.rng.NormFloat64(), c[2] + 10*g.rng.NormFloat64()}
}

func (g *Generator) jitter(p model.Point, sigma float64) model.Point {
	return model.Point{X: p.X + sigma*g.rng.NormFloat64(), Y: p.Y + sigma*g.rng.NormFloat64()}
}

func (g *Generator) dropped() bool {
	return g.rng.Float64() < g.dropChance
}

// script plays out possession and returns the ball position of every frame. Players are
// numbered 0-4 for the first team and 5-9 for the second.
func (g *Generator) script() ([]model.Point, []Shot) {
	balls := make([]model.Point, g.frames)
	var shots []Shot
	holder := 0
	f := 0
	hold := func(n int) {
		for end := min(f+n, g.frames); f < end; f++ {
			balls[f] = g.hand(holder, f)
		}
	}
	travel := func(to, n int) {
		from := f
		for end := min(f+n, g.frames); f < end; f++ {
			t := float64(f-from+1) / float64(n)
			a, b := g.hand(holder, from), g.hand(to, f)
			balls[f] = model.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
		}
		holder = to
	}
	first := true
	for f < g.frames {
		hold(minHoldFrames + g.rng.IntN(holdJitterFrames))
		if f >= g.frames {
			break
		}
		team := holder / playersPerTeam
		roll := g.rng.Float64()
		switch {
		case first || roll >= passChance && roll < passChance+shotChance:
			first = false
			made := g.rng.Float64() < g.madeChance
			shots = append(shots, Shot{Frame: f, Shooter: holder, Made: made})
			end := g.shoot(balls, f, holder, made)
			f = end
			if f >= g.frames {
				break
			}
			rebounder := (1-team)*playersPerTeam + g.rng.IntN(playersPerTeam)
			from := balls[f-1]
			start := f
			for stop := min(f+looseBallFrames, g.frames); f < stop; f++ {
				t := float64(f-start+1) / looseBallFrames
				b := g.hand(rebounder, f)
				balls[f] = model.Point{X: from.X + (b.X-from.X)*t, Y: from.Y + (b.Y-from.Y)*t}
			}
			holder = rebounder
		case roll < passChance:
			to := team*playersPerTeam + (holder%playersPerTeam+1+g.rng.IntN(playersPerTeam-1))%playersPerTeam
			travel(to, g.passFrames(holder, to, f))
		default:
			to := (1-team)*playersPerTeam + g.rng.IntN(playersPerTeam)
			travel(to, g.passFrames(holder, to, f))
		}
	}
	return balls, shots
}

func (g *Generator) passFrames(from, to, f int) int {
	d := g.hand(from, f).Dist(g.hand(to, f))
	return max(minPassFrames, int(math.Ceil(d/passSpeedPxPerFrm)))
}

// shoot draws a parabola from the shooter's hand that descends through the rim, or beside it on
// a miss, and returns the first frame after the shot.
func (g *Generator) shoot(balls []model.Point, start, shooter int, made bool) int {
	from := g.hand(shooter, start)
	target := g.hoopPixel()
	if !made {
		target.X += missOffsetPx
	}
	drop := from.Y - target.Y
	arc := math.Max(drop, 0) + shotExtraArcPx
	f := start
	for end := min(start+shotFrames+shotTailFrames, g.frames); f < end; f++ {
		u := float64(f-start) / shotFrames
		balls[f] = model.Point{
			X: from.X + (target.X-from.X)*u,
			Y: from.Y + (target.Y-from.Y)*u - 4*arc*u*(1-u),
		}
	}
	return f
}

// String describes the generator settings.
func (g *Generator) String() string {
	return fmt.Sprintf("simulate(id=%s frames=%d fps=%.0f seed=%d)", g.videoID, g.frames, g.fps, g.seed)
}
