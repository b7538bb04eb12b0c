package clipper

import "errors"

// ErrExtractFailed reports an ffmpeg run that did not produce the clip.
var ErrExtractFailed = errors.New("clip extraction failed")
