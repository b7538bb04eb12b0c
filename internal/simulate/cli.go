package simulate

import (
	"fmt"
	"os"

	"github.com/okian/hoopiq/pkg/logger"
)

// SetupLogging initializes the logger for the driver.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetOutput(os.Stderr)
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulate tool.
func ShowHelp() {
	os.Stdout.WriteString(`hoopiq game simulator
=====================

Generates synthetic basketball detections and analyzes them.

Usage:
  go run ./cmd/simulate [options]

Options:
  -mode string
        local runs the pipeline in-process, remote posts to the service (default "local")
  -url string
        Base URL of the service (default "http://localhost:9080")
  -games int
        Number of games to generate (default 4)
  -frames int
        Frames per game (default 900)
  -fps float
        Frame rate (default 30)
  -seed uint
        Seed of the first game (default 1)
  -workers int
        Concurrent submitters in remote mode
  -timeout duration
        HTTP request timeout (default 30s)
  -poll duration
        Status poll interval (default 500ms)
  -output string
        Report file in local mode (default stdout)
  -stream string
        Write the first game's detection stream to this file
  -analytics
        Run advanced analytics in local mode
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -games 1 -analytics
  go run ./cmd/simulate -mode remote -games 20 -workers 8
  go run ./cmd/simulate -games 1 -stream game.jsonl -output report.json
`)
}
