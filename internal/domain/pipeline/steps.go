package pipeline

// Step names a progress milestone of a run.
type Step string

// Milestones in run order.
const (
	StepLoading         Step = "loading"
	StepInitializing    Step = "initializing"
	StepTrackingPlayers Step = "tracking players"
	StepTrackingBall    Step = "tracking ball"
	StepCourtKeypoints  Step = "court keypoints"
	StepTeamAssignment  Step = "team assignment"
	StepPossession      Step = "possession"
	StepPasses          Step = "passes"
	StepTactical        Step = "tactical"
	StepSpeed           Step = "speed"
	StepShots           Step = "shots"
	StepAnalytics       Step = "analytics"
	StepStatistics      Step = "statistics"
	StepFinalizing      Step = "finalizing"
	StepComplete        Step = "complete"
)

// Steps lists every milestone in order.
var Steps = []Step{ //nolint:gochecknoglobals // fixed milestone order
	StepLoading, StepInitializing, StepTrackingPlayers, StepTrackingBall, StepCourtKeypoints,
	StepTeamAssignment, StepPossession, StepPasses, StepTactical, StepSpeed, StepShots,
	StepAnalytics, StepStatistics, StepFinalizing, StepComplete,
}

// Percent returns the overall completion reached when the step starts.
func (s Step) Percent() int {
	switch s {
	case StepLoading:
		return 5
	case StepInitializing:
		return 10
	case StepTrackingPlayers:
		return 20
	case StepTrackingBall:
		return 30
	case StepCourtKeypoints:
		return 40
	case StepTeamAssignment:
		return 50
	case StepPossession:
		return 60
	case StepPasses:
		return 65
	case StepTactical:
		return 70
	case StepSpeed:
		return 75
	case StepShots:
		return 80
	case StepAnalytics:
		return 90
	case StepStatistics:
		return 94
	case StepFinalizing:
		return 98
	case StepComplete:
		return 100
	}
	return 0
}

// ProgressFunc receives milestones. It must not block.
type ProgressFunc func(step Step, percent int)
