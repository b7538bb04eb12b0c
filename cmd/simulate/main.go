package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/hoopiq/internal/simulate"
)

// Default configuration constants.
const (
	defaultFrames  = 900
	defaultFPS     = 30.0
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultRunTime = 30 * time.Minute
)

func main() {
	var (
		mode      = flag.String("mode", string(simulate.ModeLocal), "local or remote")
		baseURL   = flag.String("url", simulate.DefaultBaseURL, "Base URL of the service")
		games     = flag.Int("games", simulate.DefaultGames, "Number of games to generate")
		frames    = flag.Int("frames", defaultFrames, "Frames per game")
		fps       = flag.Float64("fps", defaultFPS, "Frame rate")
		seed      = flag.Uint64("seed", 1, "Seed of the first game")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters in remote mode")
		timeout   = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		poll      = flag.Duration("poll", simulate.DefaultPollInterval, "Status poll interval")
		output    = flag.String("output", "", "Report file in local mode (default stdout)")
		stream    = flag.String("stream", "", "Write the first game's detection stream to this file")
		analytics = flag.Bool("analytics", false, "Run advanced analytics in local mode")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	config := &simulate.Config{
		Mode:         simulate.Mode(*mode),
		BaseURL:      *baseURL,
		Games:        *games,
		Frames:       *frames,
		FPS:          *fps,
		Seed:         *seed,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *poll,
		Output:       *output,
		StreamFile:   *stream,
		Analytics:    *analytics,
		Verbose:      *verbose,
	}

	if err := run(config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(config *simulate.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTime)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := simulate.Run(ctx, config, os.Stdout)
	return err
}
