// Package teams assigns player tracks to team 1 or 2 through a pluggable classifier.
package teams

import (
	"context"
	"math"
	"sync"

	"github.com/okian/hoopiq/internal/domain/model"
)

// DefaultLabels are the jersey descriptions offered to a classifier.
var DefaultLabels = [2]string{"white shirt", "dark blue shirt"} //nolint:gochecknoglobals // default prompt labels

// Crop describes the player appearance handed to a classifier.
type Crop struct {
	Frame   int
	TrackID int
	BBox    model.BBox
	// Color is the mean jersey color supplied by the detection source, if any.
	Color []float64
}

// Classifier decides which of two labels applies to a crop. It returns 0 or 1.
type Classifier interface {
	Classify(ctx context.Context, crop Crop, labels [2]string) (int, error)
}

const defaultSplitDistance = 60.0

// ColorClassifier separates two teams by clustering jersey colors around two running centroids.
// The first color seen seeds label 0; the first color farther than the split distance seeds label 1.
type ColorClassifier struct {
	mu        sync.Mutex
	split     float64
	centroids [2][]float64
	counts    [2]int
}

// ColorOption configures a ColorClassifier.
type ColorOption func(*ColorClassifier)

// WithSplitDistance sets the color distance needed to seed the second team.
func WithSplitDistance(d float64) ColorOption {
	return func(c *ColorClassifier) {
		if d > 0 {
			c.split = d
		}
	}
}

// NewColorClassifier creates a ColorClassifier.
func NewColorClassifier(opts ...ColorOption) *ColorClassifier {
	c := &ColorClassifier{split: defaultSplitDistance}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements Classifier.
func (c *ColorClassifier) Classify(ctx context.Context, crop Crop, _ [2]string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(crop.Color) == 0 {
		return 0, ErrNoAppearance
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.counts[0] == 0:
		c.absorb(0, crop.Color)
		return 0, nil
	case c.counts[1] == 0:
		if colorDist(c.centroids[0], crop.Color) > c.split {
			c.absorb(1, crop.Color)
			return 1, nil
		}
		c.absorb(0, crop.Color)
		return 0, nil
	}
	idx := 0
	if colorDist(c.centroids[1], crop.Color) < colorDist(c.centroids[0], crop.Color) {
		idx = 1
	}
	c.absorb(idx, crop.Color)
	return idx, nil
}

// Hint adapts the classifier for detection-level team guesses during tracking.
func (c *ColorClassifier) Hint(d model.Detection) int {
	idx, err := c.Classify(context.Background(), Crop{Frame: d.Frame, BBox: d.BBox, Color: d.Color}, DefaultLabels)
	if err != nil {
		return model.NoTeam
	}
	return idx + 1
}

func (c *ColorClassifier) absorb(idx int, color []float64) {
	if c.centroids[idx] == nil {
		c.centroids[idx] = append([]float64(nil), color...)
		c.counts[idx] = 1
		return
	}
	c.counts[idx]++
	n := float64(c.counts[idx])
	for i := range c.centroids[idx] {
		if i < len(color) {
			c.centroids[idx][i] += (color[i] - c.centroids[idx][i]) / n
		}
	}
}

func colorDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		if i < len(b) {
			d := a[i] - b[i]
			s += d * d
		}
	}
	return math.Sqrt(s)
}
