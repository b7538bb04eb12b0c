package model

// NoPossession marks a frame where nobody controls the ball.
const NoPossession = -1

// Team ids. NoTeam marks an unknown or unassigned team.
const (
	NoTeam = 0
	Team1  = 1
	Team2  = 2
)

// Opponent returns the other team id, or NoTeam.
func Opponent(team int) int {
	switch team {
	case Team1:
		return Team2
	case Team2:
		return Team1
	}
	return NoTeam
}

// TacticalPosition is a track position on the canonical court, in meters.
type TacticalPosition struct {
	TrackID int     `json:"track_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Point returns the position as a Point.
func (t TacticalPosition) Point() Point { return Point{X: t.X, Y: t.Y} }

// PassEvent is a possession change between teammates.
type PassEvent struct {
	Frame  int `json:"frame"`
	TeamID int `json:"team_id"`
	From   int `json:"from"`
	To     int `json:"to"`
}

// InterceptionEvent is a possession change to the other team; TeamID is the gaining team.
type InterceptionEvent struct {
	Frame  int `json:"frame"`
	TeamID int `json:"team_id"`
	From   int `json:"from"`
	To     int `json:"to"`
}

// ShotOutcome is the immutable result of a shot attempt.
type ShotOutcome string

// Shot outcomes.
const (
	OutcomeMade    ShotOutcome = "made"
	OutcomeMissed  ShotOutcome = "missed"
	OutcomeUnknown ShotOutcome = "unknown"
)

// ShotType classifies a shot by distance from the hoop.
type ShotType string

// Shot types.
const (
	ShotLayup    ShotType = "layup"
	ShotMidRange ShotType = "mid-range"
	ShotThree    ShotType = "three-pointer"
)

// Points returns what a made shot of this type is worth.
func (t ShotType) Points() int {
	if t == ShotThree {
		return 3
	}
	return 2
}

// Shot is a detected attempt, identified by StartFrame.
type Shot struct {
	StartFrame   int         `json:"start_frame"`
	PeakFrame    int         `json:"peak_frame"`
	OutcomeFrame int         `json:"outcome_frame"`
	Outcome      ShotOutcome `json:"outcome"`
	Confidence   float64     `json:"confidence"`
	Type         ShotType    `json:"shot_type"`
	TeamID       int         `json:"team_id"`
	PlayerID     int         `json:"player_id"`
	Origin       Point       `json:"origin"`
	// Distance to the hoop, in meters when Metric is set and pixels otherwise.
	Distance float64 `json:"distance"`
	Metric   bool    `json:"metric"`
}

// EventType names a timeline entry.
type EventType string

// Timeline event types.
const (
	EventPass         EventType = "pass"
	EventInterception EventType = "interception"
	EventShot         EventType = "shot"
)

// Event is one entry of the report's frame-ordered timeline.
type Event struct {
	Frame     int       `json:"frame"`
	Timestamp float64   `json:"timestamp"`
	Type      EventType `json:"type"`
	TeamID    int       `json:"team_id"`
	PlayerID  int       `json:"player_id"`
	Detail    string    `json:"detail,omitempty"`
}
