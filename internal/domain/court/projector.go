package court

import (
	"github.com/okian/hoopiq/internal/domain/model"
)

const defaultBoundsMargin = 10.0

// Tactical holds per-frame court positions. Ball and Hoop entries are nil when unknown.
type Tactical struct {
	Players []map[int]model.TacticalPosition
	Ball    []*model.Point
	Hoop    []*model.Point
}

// Player returns a player's position at frame.
func (t *Tactical) Player(frame, id int) (model.TacticalPosition, bool) {
	if t == nil || frame < 0 || frame >= len(t.Players) {
		return model.TacticalPosition{}, false
	}
	p, ok := t.Players[frame][id]
	return p, ok
}

// Frames returns the number of frames covered.
func (t *Tactical) Frames() int {
	if t == nil {
		return 0
	}
	return len(t.Players)
}

// Projector applies per-frame homographies to tracked objects.
type Projector struct {
	margin float64
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithBoundsMargin sets how far outside the court a projection may land, in meters.
func WithBoundsMargin(m float64) ProjectorOption {
	return func(p *Projector) {
		if m >= 0 {
			p.margin = m
		}
	}
}

// NewProjector creates a Projector.
func NewProjector(opts ...ProjectorOption) *Projector {
	p := &Projector{margin: defaultBoundsMargin}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project maps player feet, ball centers and hoop centers to the court. Only the players store is
// projected as people, so referee tracks never appear. Frames without a transform stay empty.
func (p *Projector) Project(players, ball *model.TrackStore, hoops []*model.BBox, hs []*Homography) *Tactical {
	n := players.Len()
	t := &Tactical{
		Players: make([]map[int]model.TacticalPosition, n),
		Ball:    make([]*model.Point, n),
		Hoop:    make([]*model.Point, n),
	}
	for f := 0; f < n; f++ {
		t.Players[f] = make(map[int]model.TacticalPosition)
		if f >= len(hs) || hs[f] == nil {
			continue
		}
		h := hs[f]
		for id, b := range players.Frame(f) {
			if b.Class == model.ClassReferee {
				continue
			}
			if q, ok := p.point(h, b.BBox.Foot()); ok {
				t.Players[f][id] = model.TacticalPosition{TrackID: id, X: q.X, Y: q.Y}
			}
		}
		if ball != nil {
			if b, ok := ball.Get(f, model.BallTrackID); ok {
				if q, ok := p.point(h, b.BBox.Center()); ok {
					t.Ball[f] = &q
				}
			}
		}
		if f < len(hoops) && hoops[f] != nil {
			if q, ok := p.point(h, hoops[f].Center()); ok {
				t.Hoop[f] = &q
			}
		}
	}
	return t
}

func (p *Projector) point(h *Homography, px model.Point) (model.Point, bool) {
	q, ok := h.Project(px)
	if !ok || !InBounds(q, p.margin) {
		return model.Point{}, false
	}
	return q, true
}
