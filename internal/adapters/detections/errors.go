package detections

import "errors"

// Detection stream errors.
var (
	ErrInvalidHeader = errors.New("invalid detection header")
	ErrInvalidFrame  = errors.New("invalid detection frame")
	ErrNoDetections  = errors.New("no detections for video")
	ErrFrameGap      = errors.New("frame index too far ahead")
)
