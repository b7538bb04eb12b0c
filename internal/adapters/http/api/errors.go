package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrPathDisabled = errors.New("path submissions are disabled")
	ErrPathOutside  = errors.New("path is outside the data directory")
	ErrInvalidLimit = errors.New("limit must be a non-negative integer")
	ErrMissingJobID = errors.New("missing job id")
)
