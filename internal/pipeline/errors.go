package pipeline

import "errors"

var (
	// ErrFileNotFound indicates the downloaded file is missing.
	ErrFileNotFound = errors.New("file not found")

	// ErrEmptyFile indicates a zero-byte input.
	ErrEmptyFile = errors.New("file is empty")

	// ErrFileTooLarge indicates the input exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedFormat indicates content that is clearly not audio.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDurationTooLong indicates the audio exceeds the configured duration limit.
	ErrDurationTooLong = errors.New("audio too long")
)

// ValidationError rejects an input before any chunking or transcription.
// Reason is a short human-readable explanation for logs and CLI output.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
