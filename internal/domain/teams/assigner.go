package teams

import (
	"context"

	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/pkg/logger"
)

const defaultRecheckInterval = 50

// Cache remembers team votes per track for one analysis run.
type Cache struct {
	votes   map[int]*[2]int
	checked map[int]int
}

// NewCache creates an empty per-run cache.
func NewCache() *Cache {
	return &Cache{votes: make(map[int]*[2]int), checked: make(map[int]int)}
}

// Team returns the majority team for a track.
func (c *Cache) Team(trackID int) (int, bool) {
	v, ok := c.votes[trackID]
	if !ok {
		return model.NoTeam, false
	}
	if v[1] > v[0] {
		return model.Team2, true
	}
	return model.Team1, true
}

// Len returns the number of cached tracks.
func (c *Cache) Len() int { return len(c.votes) }

func (c *Cache) vote(trackID, frame, idx int) {
	v, ok := c.votes[trackID]
	if !ok {
		v = &[2]int{}
		c.votes[trackID] = v
	}
	v[idx]++
	c.checked[trackID] = frame
}

// Assigner orchestrates classification: once per track, then every recheck interval.
type Assigner struct {
	classifier Classifier
	labels     [2]string
	recheck    int
	logger     logger.Logger
}

// AssignerOption configures an Assigner.
type AssignerOption func(*Assigner)

// WithLabels sets the two labels passed to the classifier.
func WithLabels(labels [2]string) AssignerOption {
	return func(a *Assigner) {
		if labels[0] != "" && labels[1] != "" {
			a.labels = labels
		}
	}
}

// WithRecheckInterval sets how many frames pass before a cached track is classified again.
func WithRecheckInterval(frames int) AssignerOption {
	return func(a *Assigner) {
		if frames > 0 {
			a.recheck = frames
		}
	}
}

// NewAssigner creates an Assigner around a classifier.
func NewAssigner(c Classifier, opts ...AssignerOption) *Assigner {
	a := &Assigner{
		classifier: c,
		labels:     DefaultLabels,
		recheck:    defaultRecheckInterval,
		logger:     logger.Get().Named("teams"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assign returns, per frame, the team of every player track. Classifier failures fall back to the
// cached team, or team 1 for a track never classified.
func (a *Assigner) Assign(ctx context.Context, players *model.TrackStore, cache *Cache) ([]map[int]int, error) {
	out := make([]map[int]int, players.Len())
	failures := 0
	for f := 0; f < players.Len(); f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[f] = make(map[int]int)
		for _, b := range players.SortedFrame(f) {
			last, seen := cache.checked[b.TrackID]
			if !seen || f-last >= a.recheck {
				idx, err := a.classifier.Classify(ctx, Crop{Frame: f, TrackID: b.TrackID, BBox: b.BBox, Color: b.Color}, a.labels)
				if err != nil {
					failures++
					if !seen {
						cache.vote(b.TrackID, f, 0)
					} else {
						cache.checked[b.TrackID] = f
					}
				} else {
					cache.vote(b.TrackID, f, idx)
				}
			}
			team, _ := cache.Team(b.TrackID)
			out[f][b.TrackID] = team
		}
	}
	if failures > 0 {
		a.logger.Warn(ctx, "team classification fell back to cached teams", logger.Int("failures", failures))
	}
	a.logger.Debug(ctx, "teams assigned", logger.Int("tracks", cache.Len()))
	return out, nil
}
