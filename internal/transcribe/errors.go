package transcribe

import "errors"

// ErrBackendUnavailable indicates the recognition service could not be
// reached or answered with a temporary failure (network, timeout, rate
// limit, 5xx, crashed local helper). The pipeline skips the chunk.
var ErrBackendUnavailable = errors.New("transcription backend unavailable")

// ErrTranscriptionFailed indicates the backend rejected or failed to process
// the audio for any other reason. The pipeline skips the chunk.
var ErrTranscriptionFailed = errors.New("transcription failed")

// ErrBackendNotCompiled indicates the selected backend needs a build tag
// this binary was built without.
var ErrBackendNotCompiled = errors.New("backend not compiled into this binary")

// ErrUnknownBackend indicates STT_BACKEND names no known backend.
var ErrUnknownBackend = errors.New("unknown transcription backend")
