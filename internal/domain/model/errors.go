package model

import "errors"

var (
	// ErrNoFrames reports a video with nothing to analyze.
	ErrNoFrames = errors.New("no frames in video")

	// ErrBackpressure reports a submission refused because the analysis queue is full.
	ErrBackpressure = errors.New("analysis queue is full")

	// ErrInFlight reports a submission whose idempotency key another submission is still creating.
	ErrInFlight = errors.New("a submission with this idempotency key is in flight")
)
