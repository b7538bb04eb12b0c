// Package court maps pixel coordinates onto the canonical top-down court in meters.
package court

import "github.com/okian/hoopiq/internal/domain/model"

// Canonical court size in meters.
const (
	Length = 28.0
	Width  = 15.0

	freeThrowX = 5.79
	laneTopY   = 5.18
	laneLowY   = 10.0
	cornerY1   = 0.91
	cornerY2   = 14.1
)

// Keypoints lists the canonical court keypoints in meters, in detector index order.
var Keypoints = []model.Point{ //nolint:gochecknoglobals // fixed court template
	{X: 0, Y: 0},
	{X: 0, Y: cornerY1},
	{X: 0, Y: laneTopY},
	{X: 0, Y: laneLowY},
	{X: 0, Y: cornerY2},
	{X: 0, Y: Width},
	{X: Length / 2, Y: Width},
	{X: Length / 2, Y: 0},
	{X: freeThrowX, Y: laneTopY},
	{X: freeThrowX, Y: laneLowY},
	{X: Length, Y: Width},
	{X: Length, Y: cornerY2},
	{X: Length, Y: laneLowY},
	{X: Length, Y: laneTopY},
	{X: Length, Y: cornerY1},
	{X: Length, Y: 0},
	{X: Length - freeThrowX, Y: laneTopY},
	{X: Length - freeThrowX, Y: laneLowY},
}

// InBounds reports whether p lies within the court expanded by margin meters.
func InBounds(p model.Point, margin float64) bool {
	return p.X >= -margin && p.X <= Length+margin && p.Y >= -margin && p.Y <= Width+margin
}

// InPaint reports whether p is inside either restricted-lane rectangle.
func InPaint(p model.Point) bool {
	if p.Y < laneTopY-0.13 || p.Y > laneLowY-0.05 {
		return false
	}
	return p.X <= freeThrowX || p.X >= Length-freeThrowX
}

// HoopPositions are the basket centers in meters.
var HoopPositions = [2]model.Point{{X: 1.575, Y: Width / 2}, {X: Length - 1.575, Y: Width / 2}} //nolint:gochecknoglobals // fixed court template

// NearestHoop returns the basket closer to p.
func NearestHoop(p model.Point) model.Point {
	if p.Dist(HoopPositions[0]) <= p.Dist(HoopPositions[1]) {
		return HoopPositions[0]
	}
	return HoopPositions[1]
}
