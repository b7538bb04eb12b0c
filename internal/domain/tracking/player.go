// Package tracking associates per-frame detections into stable player, referee and ball tracks.
package tracking

import (
	"context"
	"sort"

	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/pkg/logger"
)

// Default player tracker configuration.
const (
	defaultPlayerMinConfidence  = 0.3
	defaultRefereeMinConfidence = 0.5
	defaultMaxPlayers           = 10
	defaultMaxPerTeam           = 5
	defaultLostBuffer           = 60
	defaultMinIoU               = 0.1
	defaultCenterGate           = 80.0

	iouWeight       = 0.7
	proximityWeight = 0.3
)

// TeamHint guesses a detection's team before tracks exist. Returning model.NoTeam skips the
// per-team cap for that detection.
type TeamHint func(d model.Detection) int

// PlayerTracker assigns stable ids to player and referee detections across frames.
// It is stateful and not safe for concurrent use; one instance serves one analysis run.
type PlayerTracker struct {
	playerMinConfidence  float64
	refereeMinConfidence float64
	maxPlayers           int
	maxPerTeam           int
	lostBuffer           int
	minIoU               float64
	centerGate           float64
	teamHint             TeamHint

	tracks []*track
	nextID int
	logger logger.Logger
}

type track struct {
	id    int
	class model.Class
	box   model.BBox
	vel   model.Point
	conf  float64
	color []float64
	lost  int
}

// predicted returns the box shifted by the track velocity over the frames since the last match.
func (t *track) predicted() model.BBox {
	steps := float64(t.lost + 1)
	dx, dy := t.vel.X*steps, t.vel.Y*steps
	return model.BBox{X1: t.box.X1 + dx, Y1: t.box.Y1 + dy, X2: t.box.X2 + dx, Y2: t.box.Y2 + dy}
}

// NewPlayerTracker creates a tracker with the given options.
func NewPlayerTracker(opts ...PlayerOption) *PlayerTracker {
	t := &PlayerTracker{
		playerMinConfidence:  defaultPlayerMinConfidence,
		refereeMinConfidence: defaultRefereeMinConfidence,
		maxPlayers:           defaultMaxPlayers,
		maxPerTeam:           defaultMaxPerTeam,
		lostBuffer:           defaultLostBuffer,
		minIoU:               defaultMinIoU,
		centerGate:           defaultCenterGate,
		nextID:               1,
		logger:               logger.Get().Named("player-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track runs the tracker over every frame and returns the player and referee stores.
func (t *PlayerTracker) Track(ctx context.Context, frames []model.FrameDetections) (players, referees *model.TrackStore) {
	players = model.NewTrackStore(len(frames))
	referees = model.NewTrackStore(len(frames))
	for i := range frames {
		for _, b := range t.Update(frames[i].Detections) {
			if b.Class == model.ClassReferee {
				referees.Set(i, b)
			} else {
				players.Set(i, b)
			}
		}
	}
	t.logger.Debug(ctx, "player tracking done",
		logger.Int("frames", len(frames)),
		logger.Int("player_tracks", len(players.IDs())),
		logger.Int("referee_tracks", len(referees.IDs())),
	)
	return players, referees
}

// Update consumes one frame of detections and returns the boxes of tracks matched or born in it.
// A frame without detections ages every track and returns an empty slice.
func (t *PlayerTracker) Update(dets []model.Detection) []model.TrackBox {
	players, referees := t.filter(dets)

	matched := make(map[*track]bool, len(t.tracks))
	out := make([]model.TrackBox, 0, len(players)+len(referees))
	out = t.associate(players, model.ClassPlayer, matched, out)
	out = t.associate(referees, model.ClassReferee, matched, out)

	alive := t.tracks[:0]
	for _, tr := range t.tracks {
		if !matched[tr] {
			tr.lost++
		}
		if tr.lost <= t.lostBuffer {
			alive = append(alive, tr)
		}
	}
	t.tracks = alive
	return out
}

// filter applies class confidence floors and the player caps.
func (t *PlayerTracker) filter(dets []model.Detection) (players, referees []model.Detection) {
	for _, d := range dets {
		switch d.Class {
		case model.ClassPlayer:
			if d.Confidence >= t.playerMinConfidence {
				players = append(players, d)
			}
		case model.ClassReferee:
			if d.Confidence >= t.refereeMinConfidence {
				referees = append(referees, d)
			}
		}
	}
	sort.SliceStable(players, func(i, j int) bool { return players[i].Confidence > players[j].Confidence })

	kept := players[:0]
	perTeam := map[int]int{}
	for _, d := range players {
		if len(kept) >= t.maxPlayers {
			break
		}
		if t.teamHint != nil {
			if team := t.teamHint(d); team != model.NoTeam {
				if perTeam[team] >= t.maxPerTeam {
					continue
				}
				perTeam[team]++
			}
		}
		kept = append(kept, d)
	}
	return kept, referees
}

type candidate struct {
	det   int
	tr    *track
	score float64
}

// associate greedily matches detections of one class to live tracks by descending hybrid score.
func (t *PlayerTracker) associate(dets []model.Detection, class model.Class, matched map[*track]bool, out []model.TrackBox) []model.TrackBox {
	var cands []candidate
	for i, d := range dets {
		for _, tr := range t.tracks {
			if tr.class != class {
				continue
			}
			if score, ok := t.score(d.BBox, tr); ok {
				cands = append(cands, candidate{det: i, tr: tr, score: score})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	used := make([]bool, len(dets))
	for _, c := range cands {
		if used[c.det] || matched[c.tr] {
			continue
		}
		used[c.det] = true
		matched[c.tr] = true
		t.advance(c.tr, dets[c.det])
		out = append(out, boxOf(c.tr))
	}

	for i, d := range dets {
		if used[i] {
			continue
		}
		tr := &track{id: t.nextID, class: class, box: d.BBox, conf: d.Confidence, color: d.Color}
		t.nextID++
		t.tracks = append(t.tracks, tr)
		matched[tr] = true
		out = append(out, boxOf(tr))
	}
	return out
}

// score combines IoU with center proximity; pairs outside both gates are rejected.
func (t *PlayerTracker) score(b model.BBox, tr *track) (float64, bool) {
	pred := tr.predicted()
	iou := b.IoU(pred)
	dist := b.Center().Dist(pred.Center())
	gate := t.centerGate * float64(1+tr.lost/10)
	if iou < t.minIoU && dist > gate {
		return 0, false
	}
	proximity := 1 - dist/gate
	if proximity < 0 {
		proximity = 0
	}
	return iouWeight*iou + proximityWeight*proximity, true
}

func (t *PlayerTracker) advance(tr *track, d model.Detection) {
	steps := float64(tr.lost + 1)
	prev, cur := tr.box.Center(), d.BBox.Center()
	tr.vel = model.Point{X: (cur.X - prev.X) / steps, Y: (cur.Y - prev.Y) / steps}
	tr.box = d.BBox
	tr.conf = d.Confidence
	if len(d.Color) > 0 {
		tr.color = d.Color
	}
	tr.lost = 0
}

func boxOf(tr *track) model.TrackBox {
	return model.TrackBox{TrackID: tr.id, Class: tr.class, BBox: tr.box, Confidence: tr.conf, Color: tr.color}
}
