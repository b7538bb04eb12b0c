package tracking

import "github.com/okian/hoopiq/pkg/logger"

// PlayerOption configures a PlayerTracker.
type PlayerOption func(*PlayerTracker)

// WithConfidenceFloors sets the minimum confidence for player and referee detections.
func WithConfidenceFloors(player, referee float64) PlayerOption {
	return func(t *PlayerTracker) {
		if player > 0 {
			t.playerMinConfidence = player
		}
		if referee > 0 {
			t.refereeMinConfidence = referee
		}
	}
}

// WithPlayerCaps bounds simultaneous player detections overall and per team.
func WithPlayerCaps(total, perTeam int) PlayerOption {
	return func(t *PlayerTracker) {
		if total > 0 {
			t.maxPlayers = total
		}
		if perTeam > 0 {
			t.maxPerTeam = perTeam
		}
	}
}

// WithLostBuffer sets how many unmatched frames a track survives.
func WithLostBuffer(frames int) PlayerOption {
	return func(t *PlayerTracker) {
		if frames > 0 {
			t.lostBuffer = frames
		}
	}
}

// WithMatchGates sets the IoU floor and the center-distance gate in pixels.
func WithMatchGates(minIoU, centerGate float64) PlayerOption {
	return func(t *PlayerTracker) {
		if minIoU > 0 {
			t.minIoU = minIoU
		}
		if centerGate > 0 {
			t.centerGate = centerGate
		}
	}
}

// WithTeamHint enables the per-team cap using a detection-level team guess.
func WithTeamHint(h TeamHint) PlayerOption {
	return func(t *PlayerTracker) {
		t.teamHint = h
	}
}

// WithPlayerLogger sets a custom logger.
func WithPlayerLogger(l logger.Logger) PlayerOption {
	return func(t *PlayerTracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// BallOption configures a BallTracker.
type BallOption func(*BallTracker)

// WithMaxDistance sets the per-frame outlier distance in pixels and the cap on the frame-gap factor.
func WithMaxDistance(pixels float64, gapCap int) BallOption {
	return func(b *BallTracker) {
		if pixels > 0 {
			b.maxDistance = pixels
		}
		if gapCap > 0 {
			b.maxGapFactor = gapCap
		}
	}
}

// WithInterpolation sets the longest interior gap filled and the edge fill length.
func WithInterpolation(maxGap, edgeFill int) BallOption {
	return func(b *BallTracker) {
		if maxGap > 0 {
			b.maxGap = maxGap
		}
		if edgeFill >= 0 {
			b.edgeFill = edgeFill
		}
	}
}
