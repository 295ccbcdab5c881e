package audio

import "errors"

// ErrDecode indicates the input could not be decoded as audio.
var ErrDecode = errors.New("audio decode failed")

// ErrChunkingFailed indicates a segment could not be written to disk.
var ErrChunkingFailed = errors.New("audio chunking failed")

// ErrInvalidOverlap indicates the overlap is not shorter than the segment length.
var ErrInvalidOverlap = errors.New("overlap must be shorter than segment duration")

// ErrUnsupportedFormat indicates no configured decoder handles the file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")
