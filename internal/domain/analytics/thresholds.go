package analytics

// Thresholds tunes every analytics module. Zero fields take the default.
type Thresholds struct {
	SpacingGood      float64 `koanf:"spacing_good"`
	SpacingAverage   float64 `koanf:"spacing_average"`
	SpacingClustered float64 `koanf:"spacing_clustered"`

	ReactionWindowFrames int     `koanf:"reaction_window_frames"`
	ReactionActivation   float64 `koanf:"reaction_activation"`
	ReactionLateMs       float64 `koanf:"reaction_late_ms"`
	ReactionMinPeak      float64 `koanf:"reaction_min_peak"`

	TransitionWindowSeconds float64 `koanf:"transition_window_seconds"`
	TransitionSprint        float64 `koanf:"transition_sprint"`
	TransitionJog           float64 `koanf:"transition_jog"`

	DecisionOpen      float64 `koanf:"decision_open"`
	DecisionContested float64 `koanf:"decision_contested"`

	LineupMinSeconds float64 `koanf:"lineup_min_seconds"`
	LineupSize       int     `koanf:"lineup_size"`

	FatigueBaselineSeconds float64 `koanf:"fatigue_baseline_seconds"`
	FatigueWindowSeconds   float64 `koanf:"fatigue_window_seconds"`
	FatigueMovingSpeed     float64 `koanf:"fatigue_moving_speed"`
	FatigueLow             float64 `koanf:"fatigue_low"`
	FatigueMedium          float64 `koanf:"fatigue_medium"`

	ClipSeconds        float64 `koanf:"clip_seconds"`
	ClipSpacingEvery   int     `koanf:"clip_spacing_every"`
	ClipSpacingMax     int     `koanf:"clip_spacing_max"`
	ClipLateMax        int     `koanf:"clip_late_max"`
	ClipTransitionMax  int     `koanf:"clip_transition_max"`
	ClipLowDecisionMax int     `koanf:"clip_low_decision_max"`
}

// DefaultThresholds returns the canonical threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpacingGood:      3.0,
		SpacingAverage:   2.0,
		SpacingClustered: 1.5,

		ReactionWindowFrames: 30,
		ReactionActivation:   3.0,
		ReactionLateMs:       500,
		ReactionMinPeak:      4.0,

		TransitionWindowSeconds: 3,
		TransitionSprint:        5.5,
		TransitionJog:           3.0,

		DecisionOpen:      2.5,
		DecisionContested: 1.5,

		LineupMinSeconds: 30,
		LineupSize:       5,

		FatigueBaselineSeconds: 180,
		FatigueWindowSeconds:   120,
		FatigueMovingSpeed:     0.5,
		FatigueLow:             5,
		FatigueMedium:          15,

		ClipSeconds:        10,
		ClipSpacingEvery:   10,
		ClipSpacingMax:     10,
		ClipLateMax:        20,
		ClipTransitionMax:  15,
		ClipLowDecisionMax: 20,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fillInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.SpacingGood, d.SpacingGood)
	fill(&t.SpacingAverage, d.SpacingAverage)
	fill(&t.SpacingClustered, d.SpacingClustered)
	fillInt(&t.ReactionWindowFrames, d.ReactionWindowFrames)
	fill(&t.ReactionActivation, d.ReactionActivation)
	fill(&t.ReactionLateMs, d.ReactionLateMs)
	fill(&t.ReactionMinPeak, d.ReactionMinPeak)
	fill(&t.TransitionWindowSeconds, d.TransitionWindowSeconds)
	fill(&t.TransitionSprint, d.TransitionSprint)
	fill(&t.TransitionJog, d.TransitionJog)
	fill(&t.DecisionOpen, d.DecisionOpen)
	fill(&t.DecisionContested, d.DecisionContested)
	fill(&t.LineupMinSeconds, d.LineupMinSeconds)
	fillInt(&t.LineupSize, d.LineupSize)
	fill(&t.FatigueBaselineSeconds, d.FatigueBaselineSeconds)
	fill(&t.FatigueWindowSeconds, d.FatigueWindowSeconds)
	fill(&t.FatigueMovingSpeed, d.FatigueMovingSpeed)
	fill(&t.FatigueLow, d.FatigueLow)
	fill(&t.FatigueMedium, d.FatigueMedium)
	fill(&t.ClipSeconds, d.ClipSeconds)
	fillInt(&t.ClipSpacingEvery, d.ClipSpacingEvery)
	fillInt(&t.ClipSpacingMax, d.ClipSpacingMax)
	fillInt(&t.ClipLateMax, d.ClipLateMax)
	fillInt(&t.ClipTransitionMax, d.ClipTransitionMax)
	fillInt(&t.ClipLowDecisionMax, d.ClipLowDecisionMax)
	return t
}
