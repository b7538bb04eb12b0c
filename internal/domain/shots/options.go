package shots

// Option configures a Detector.
type Option func(*Detector)

// WithArc sets the minimum rise of an attempt and how far the ball may fall below the apex
// before the apex scan stops, both in pixels.
func WithArc(minHeight, apexDrop float64) Option {
	return func(d *Detector) {
		if minHeight > 0 {
			d.minArcHeight = minHeight
		}
		if apexDrop > 0 {
			d.apexDrop = apexDrop
		}
	}
}

// WithWindows sets the trajectory window and the post-apex success window, in frames.
func WithWindows(trajectory, success int) Option {
	return func(d *Detector) {
		if trajectory > 0 {
			d.window = trajectory
		}
		if success > 0 {
			d.successWindow = success
		}
	}
}

// WithUpwardVelocity sets the launch threshold (negative, pixels per frame) and the number of
// outgoing velocities averaged.
func WithUpwardVelocity(threshold float64, smoothing int) Option {
	return func(d *Detector) {
		if threshold < 0 {
			d.upwardVelocity = threshold
		}
		if smoothing > 0 {
			d.smoothing = smoothing
		}
	}
}

// WithRimTolerance sets the horizontal distance from the rim center that still counts as made.
func WithRimTolerance(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.rimTolerance = px
		}
	}
}

// WithTypeThresholds sets the layup and three-point distances, in pixels and in meters.
func WithTypeThresholds(layupPx, threePx, layupMeters, threeMeters float64) Option {
	return func(d *Detector) {
		if layupMeters > 0 {
			d.layupMeters = layupMeters
		}
		if layupPx > 0 {
			d.layupPx = layupPx
		}
		if threePx > 0 {
			d.threePx = threePx
		}
		if threeMeters > 0 {
			d.threeMeters = threeMeters
		}
	}
}

// WithMaxGap sets the largest frame gap inside a trajectory before the outcome is unknown.
func WithMaxGap(frames int) Option {
	return func(d *Detector) {
		if frames > 0 {
			d.maxGap = frames
		}
	}
}

// WithShooterLookback sets how many frames before the launch the possessor is searched.
func WithShooterLookback(frames int) Option {
	return func(d *Detector) {
		if frames >= 0 {
			d.shooterLookback = frames
		}
	}
}
