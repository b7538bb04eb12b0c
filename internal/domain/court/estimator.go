package court

import (
	"context"
	"errors"
	"math"

	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/pkg/logger"
)

const (
	defaultRatioTolerance = 0.8
	minValidationPoints   = 3
)

// Estimator validates detected keypoints and keeps the last good transform per run.
// Not safe for concurrent use.
type Estimator struct {
	tolerance float64
	last      *Homography
	logger    logger.Logger
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithRatioTolerance sets the maximum relative error of distance ratios.
func WithRatioTolerance(tol float64) EstimatorOption {
	return func(e *Estimator) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// NewEstimator creates an Estimator.
func NewEstimator(opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		tolerance: defaultRatioTolerance,
		logger:    logger.Get().Named("court"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate returns a copy of kps where keypoints whose distance ratios to two other detected
// keypoints disagree with the template are zeroed. Indices beyond the template are dropped.
func (e *Estimator) Validate(kps []model.Point) []model.Point {
	n := len(kps)
	if n > len(Keypoints) {
		n = len(Keypoints)
	}
	out := make([]model.Point, n)
	copy(out, kps[:n])

	detected := func(i int) bool { return out[i].X > 0 && out[i].Y > 0 }
	count := 0
	for i := range out {
		if detected(i) {
			count++
		}
	}
	if count < minValidationPoints {
		return out
	}

	for i := range out {
		if !detected(i) {
			continue
		}
		others := make([]int, 0, 2)
		for j := range out {
			if j != i && detected(j) {
				others = append(others, j)
				if len(others) == 2 {
					break
				}
			}
		}
		if len(others) < 2 {
			continue
		}
		j, k := others[0], others[1]
		dij, dik := out[i].Dist(out[j]), out[i].Dist(out[k])
		tij, tik := Keypoints[i].Dist(Keypoints[j]), Keypoints[i].Dist(Keypoints[k])
		if dik == 0 || tik == 0 {
			continue
		}
		want := tij / tik
		if want == 0 {
			continue
		}
		if math.Abs(dij/dik-want)/want > e.tolerance {
			out[i] = model.Point{}
		}
	}
	return out
}

// Update validates one frame's keypoints and solves a new transform when possible.
// It returns the transform to use for this frame, which may be carried from an earlier frame,
// and false when no transform has ever been valid.
func (e *Estimator) Update(ctx context.Context, frame int, kps []model.Point) (*Homography, bool) {
	valid := e.Validate(kps)
	var src, dst []model.Point
	for i, p := range valid {
		if p.X > 0 && p.Y > 0 {
			src = append(src, p)
			dst = append(dst, Keypoints[i])
		}
	}

	if len(src) >= minCorrespondences {
		m, err := Solve(src, dst)
		switch {
		case err == nil:
			e.last = &Homography{Source: src, Target: dst, Transform: m, Frame: frame}
		case errors.Is(err, ErrDegenerateHomography):
			e.logger.Debug(ctx, "degenerate keypoints, carrying transform", logger.Int("frame", frame))
		}
	}
	return e.last, e.last != nil
}

// Estimate runs Update over every frame. Entries are nil until a first transform is solved.
func (e *Estimator) Estimate(ctx context.Context, frames []model.FrameDetections) []*Homography {
	out := make([]*Homography, len(frames))
	solved := 0
	for i := range frames {
		if h, ok := e.Update(ctx, i, frames[i].Keypoints); ok {
			out[i] = h
			if h.Frame == i {
				solved++
			}
		}
	}
	e.logger.Debug(ctx, "court homography estimated",
		logger.Int("frames", len(frames)),
		logger.Int("solved", solved),
	)
	return out
}
