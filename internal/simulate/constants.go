package simulate

import "time"

// Driver defaults.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultGames        = 4
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond

	ndjsonContentType = "application/x-ndjson"
	filePermission    = 0o600
	maxBodyBytes      = 64 << 20
)
