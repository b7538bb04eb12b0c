package court

import (
	"fmt"
	"math"

	"github.com/okian/hoopiq/internal/domain/model"
	"gonum.org/v1/gonum/mat"
)

const (
	minCorrespondences = 4
	degenerateEpsilon  = 1e-12
)

// Matrix3 is a row-major 3x3 projective transform.
type Matrix3 [3][3]float64

// Apply maps p through the transform. ok is false when p maps to infinity.
func (m Matrix3) Apply(p model.Point) (model.Point, bool) {
	w := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	if math.Abs(w) < degenerateEpsilon {
		return model.Point{}, false
	}
	x := (m[0][0]*p.X + m[0][1]*p.Y + m[0][2]) / w
	y := (m[1][0]*p.X + m[1][1]*p.Y + m[1][2]) / w
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return model.Point{}, false
	}
	return model.Point{X: x, Y: y}, true
}

// Homography is a pixel to court-meter transform and the correspondences it was solved from.
type Homography struct {
	Source    []model.Point `json:"source"`
	Target    []model.Point `json:"target"`
	Transform Matrix3       `json:"transform"`
	// Frame is where the transform was solved; later frames may carry it forward.
	Frame int `json:"frame"`
}

// Project maps a pixel point to court meters.
func (h *Homography) Project(p model.Point) (model.Point, bool) {
	return h.Transform.Apply(p)
}

// Solve estimates the transform mapping src onto dst with the normalized direct linear transform.
func Solve(src, dst []model.Point) (Matrix3, error) {
	n := len(src)
	if n != len(dst) || n < minCorrespondences {
		return Matrix3{}, ErrInsufficientKeypoints
	}

	ts, ns := normalize(src)
	td, nd := normalize(dst)

	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := ns[i].X, ns[i].Y
		u, v := nd[i].X, nd[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Matrix3{}, fmt.Errorf("svd factorization: %w", ErrDegenerateHomography)
	}
	values := svd.Values(nil)
	if len(values) < 8 || values[7] < degenerateEpsilon*values[0] {
		// rank below 8 means collinear or repeated points
		return Matrix3{}, ErrDegenerateHomography
	}
	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, mat.Col(nil, 8, &v))

	var tdInv mat.Dense
	if err := tdInv.Inverse(td); err != nil {
		return Matrix3{}, fmt.Errorf("denormalize: %w", ErrDegenerateHomography)
	}
	var tmp, h mat.Dense
	tmp.Mul(&tdInv, hn)
	h.Mul(&tmp, ts)

	scale := h.At(2, 2)
	if math.Abs(scale) < degenerateEpsilon {
		return Matrix3{}, ErrDegenerateHomography
	}
	if math.Abs(mat.Det(&h)) < degenerateEpsilon {
		return Matrix3{}, ErrDegenerateHomography
	}
	var m Matrix3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = h.At(r, c) / scale
		}
	}
	return m, nil
}

// normalize translates points to their centroid and scales them to mean distance sqrt(2).
func normalize(pts []model.Point) (*mat.Dense, []model.Point) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))
	var mean float64
	for _, p := range pts {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= float64(len(pts))
	s := 1.0
	if mean > 0 {
		s = math.Sqrt2 / mean
	}
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		out[i] = model.Point{X: (p.X - cx) * s, Y: (p.Y - cy) * s}
	}
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
	return t, out
}
