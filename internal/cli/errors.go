package cli

import "errors"

// CLI-specific sentinel errors.
// Failures of individual chunks never surface here; these describe the
// outcome of a whole offline run.

var (
	// ErrNoSpeech indicates every chunk was processed but none produced text.
	ErrNoSpeech = errors.New("no speech recognised")

	// ErrRecognitionFailed indicates every chunk failed in the backend.
	ErrRecognitionFailed = errors.New("recognition failed")
)
