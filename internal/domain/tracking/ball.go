package tracking

import (
	"math"

	"github.com/okian/hoopiq/internal/domain/model"
)

// Default ball tracker configuration.
const (
	defaultBallMaxDistance = 60.0
	defaultBallGapFactor   = 10
	defaultBallMaxGap      = 30
	defaultBallEdgeFill    = 3
)

// BallTracker builds the single ball track: best detection per frame, outlier rejection,
// then bounded interpolation.
type BallTracker struct {
	maxDistance  float64
	maxGapFactor int
	maxGap       int
	edgeFill     int
}

// NewBallTracker creates a ball tracker with the given options.
func NewBallTracker(opts ...BallOption) *BallTracker {
	b := &BallTracker{
		maxDistance:  defaultBallMaxDistance,
		maxGapFactor: defaultBallGapFactor,
		maxGap:       defaultBallMaxGap,
		edgeFill:     defaultBallEdgeFill,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Track runs selection, outlier rejection and interpolation and stores the result under BallTrackID.
func (b *BallTracker) Track(frames []model.FrameDetections) *model.TrackStore {
	obs := b.Interpolate(b.RejectOutliers(b.Select(frames)))
	store := model.NewTrackStore(len(frames))
	for i, o := range obs {
		if o != nil {
			store.Set(i, *o)
		}
	}
	return store
}

// Select keeps the highest-confidence ball detection of every frame; nil marks no ball.
func (b *BallTracker) Select(frames []model.FrameDetections) []*model.TrackBox {
	out := make([]*model.TrackBox, len(frames))
	for i := range frames {
		var best *model.Detection
		for j := range frames[i].Detections {
			d := &frames[i].Detections[j]
			if d.Class != model.ClassBall {
				continue
			}
			if best == nil || d.Confidence > best.Confidence {
				best = d
			}
		}
		if best != nil {
			out[i] = &model.TrackBox{TrackID: model.BallTrackID, Class: model.ClassBall, BBox: best.BBox, Confidence: best.Confidence}
		}
	}
	return out
}

// RejectOutliers drops positions that jumped farther than maxDistance per elapsed frame
// (elapsed frames capped at maxGapFactor) from the last accepted position.
func (b *BallTracker) RejectOutliers(obs []*model.TrackBox) []*model.TrackBox {
	out := make([]*model.TrackBox, len(obs))
	last := -1
	for i, o := range obs {
		if o == nil {
			continue
		}
		if last >= 0 {
			gap := i - last
			if gap > b.maxGapFactor {
				gap = b.maxGapFactor
			}
			if o.BBox.Center().Dist(obs[last].BBox.Center()) > b.maxDistance*float64(gap) {
				continue
			}
		}
		out[i] = o
		last = i
	}
	return out
}

// Interpolate fills interior gaps of at most maxGap frames linearly and extends the first and
// last known boxes by at most edgeFill frames. Longer gaps stay empty.
func (b *BallTracker) Interpolate(obs []*model.TrackBox) []*model.TrackBox {
	out := make([]*model.TrackBox, len(obs))
	copy(out, obs)

	first, prev := -1, -1
	for i, o := range obs {
		if o == nil {
			continue
		}
		if first < 0 {
			first = i
		}
		if prev >= 0 && i-prev > 1 && i-prev-1 <= b.maxGap {
			for k := prev + 1; k < i; k++ {
				t := float64(k-prev) / float64(i-prev)
				out[k] = &model.TrackBox{
					TrackID:    model.BallTrackID,
					Class:      model.ClassBall,
					BBox:       model.Lerp(obs[prev].BBox, o.BBox, t),
					Confidence: math.Min(obs[prev].Confidence, o.Confidence),
				}
			}
		}
		prev = i
	}
	if first < 0 {
		return out
	}
	for k := first - 1; k >= 0 && first-k <= b.edgeFill; k-- {
		c := *obs[first]
		out[k] = &c
	}
	for k := prev + 1; k < len(out) && k-prev <= b.edgeFill; k++ {
		c := *obs[prev]
		out[k] = &c
	}
	return out
}

// Trajectory converts a track into center points with per-frame velocity from the previous kept
// point. Frames without a box are skipped, so velocities span gaps.
func Trajectory(store *model.TrackStore, id int) []model.BallTrajectoryPoint {
	var pts []model.BallTrajectoryPoint
	for f := 0; f < store.Len(); f++ {
		box, ok := store.Get(f, id)
		if !ok {
			continue
		}
		c := box.BBox.Center()
		p := model.BallTrajectoryPoint{Frame: f, X: c.X, Y: c.Y}
		if n := len(pts); n > 0 {
			prev := pts[n-1]
			dt := float64(f - prev.Frame)
			p.VX = (c.X - prev.X) / dt
			p.VY = (c.Y - prev.Y) / dt
			p.Speed = math.Hypot(p.VX, p.VY)
		}
		pts = append(pts, p)
	}
	return pts
}

// BestPerFrame returns the highest-confidence box of one class per frame, nil where absent.
// The pipeline uses it for hoop detections.
func BestPerFrame(frames []model.FrameDetections, class model.Class) []*model.BBox {
	out := make([]*model.BBox, len(frames))
	for i := range frames {
		best := -1.0
		for _, d := range frames[i].Detections {
			if d.Class == class && d.Confidence > best {
				b := d.BBox
				out[i], best = &b, d.Confidence
			}
		}
	}
	return out
}
