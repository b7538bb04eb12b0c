package model

import "sort"

// TrackBox is a track's box in one frame.
type TrackBox struct {
	TrackID    int       `json:"track_id"`
	Class      Class     `json:"class"`
	BBox       BBox      `json:"bbox"`
	Confidence float64   `json:"confidence"`
	Color      []float64 `json:"-"`
}

// TrackStore holds per-frame boxes keyed by track id. A track has at most one box per frame.
type TrackStore struct {
	frames []map[int]TrackBox
}

// NewTrackStore allocates an empty store for n frames.
func NewTrackStore(n int) *TrackStore {
	s := &TrackStore{frames: make([]map[int]TrackBox, n)}
	for i := range s.frames {
		s.frames[i] = make(map[int]TrackBox)
	}
	return s
}

// Len returns the number of frames.
func (s *TrackStore) Len() int { return len(s.frames) }

// Set stores b at frame, replacing any box the track already had there.
func (s *TrackStore) Set(frame int, b TrackBox) {
	if frame < 0 || frame >= len(s.frames) {
		return
	}
	s.frames[frame][b.TrackID] = b
}

// Delete removes a track's box from a frame.
func (s *TrackStore) Delete(frame, id int) {
	if frame < 0 || frame >= len(s.frames) {
		return
	}
	delete(s.frames[frame], id)
}

// Get returns a track's box at frame.
func (s *TrackStore) Get(frame, id int) (TrackBox, bool) {
	if frame < 0 || frame >= len(s.frames) {
		return TrackBox{}, false
	}
	b, ok := s.frames[frame][id]
	return b, ok
}

// Frame returns the boxes of one frame. The map must not be modified.
func (s *TrackStore) Frame(frame int) map[int]TrackBox {
	if frame < 0 || frame >= len(s.frames) {
		return nil
	}
	return s.frames[frame]
}

// IDs returns every track id seen, sorted.
func (s *TrackStore) IDs() []int {
	seen := make(map[int]struct{})
	for _, f := range s.frames {
		for id := range f {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SortedFrame returns one frame's boxes ordered by track id.
func (s *TrackStore) SortedFrame(frame int) []TrackBox {
	f := s.Frame(frame)
	out := make([]TrackBox, 0, len(f))
	for _, b := range f {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

// BallTrackID is the fixed id of the single ball track.
const BallTrackID = 1

// BallTrajectoryPoint is one kept ball position with velocity from the previous kept point.
type BallTrajectoryPoint struct {
	Frame int     `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Speed float64 `json:"speed"`
}
