package ffmpeg

import "errors"

// ErrNotFound indicates no usable ffmpeg binary: FFMPEG_PATH points nowhere
// and the binary is not on PATH.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrFailed indicates ffmpeg ran but exited with an error.
var ErrFailed = errors.New("ffmpeg failed")
