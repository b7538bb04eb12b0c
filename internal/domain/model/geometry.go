package model

import "math"

// Point is a 2D coordinate, in pixels or court meters depending on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// IsZero reports whether p is the absent-keypoint marker.
func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

// BBox is an axis-aligned box in pixel space.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the box center.
func (b BBox) Center() Point { return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2} }

// Foot returns the bottom-center of the box.
func (b BBox) Foot() Point { return Point{X: (b.X1 + b.X2) / 2, Y: b.Y2} }

// Width of the box.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height of the box.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Area of the box; degenerate boxes have zero area.
func (b BBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns intersection over union of two boxes.
func (b BBox) IoU(o BBox) float64 {
	ix := math.Min(b.X2, o.X2) - math.Max(b.X1, o.X1)
	iy := math.Min(b.Y2, o.Y2) - math.Max(b.Y1, o.Y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Lerp linearly interpolates between a and b at t in [0,1].
func Lerp(a, b BBox, t float64) BBox {
	return BBox{
		X1: a.X1 + (b.X1-a.X1)*t,
		Y1: a.Y1 + (b.Y1-a.Y1)*t,
		X2: a.X2 + (b.X2-a.X2)*t,
		Y2: a.Y2 + (b.Y2-a.Y2)*t,
	}
}
