package simulate

import "time"

// Mode selects where simulated games are analyzed.
type Mode string

// Run modes.
const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Config holds the simulate command configuration.
type Config struct {
	Mode         Mode          // local pipeline or remote service
	BaseURL      string        // Base URL of the service
	Games        int           // Number of games to generate
	Frames       int           // Frames per game
	FPS          float64       // Frame rate of generated games
	Seed         uint64        // Seed of the first game; game i uses Seed+i
	Workers      int           // Concurrent submitters in remote mode
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between status polls
	Output       string        // Report output file for local mode (stdout when empty)
	StreamFile   string        // Optional file receiving the first game's detection stream
	Analytics    bool          // Run advanced analytics in local mode
	Verbose      bool          // Enable verbose logging
}

// SubmitResponse is the service acknowledgement of a submitted game.
type SubmitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// JobResponse is the subset of the job view the driver polls for.
type JobResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Step     string `json:"step"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Stats holds driver statistics.
type Stats struct {
	GamesGenerated int
	Submitted      int
	Rejected       int
	Completed      int
	Failed         int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
