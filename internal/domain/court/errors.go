package court

import "errors"

// Sentinel errors for homography estimation.
var (
	ErrInsufficientKeypoints = errors.New("fewer than four valid court keypoints")
	ErrDegenerateHomography  = errors.New("degenerate homography")
)
