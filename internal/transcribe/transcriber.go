// Package transcribe turns audio files into text through interchangeable
// speech recognition backends: a local faster-whisper helper process,
// whisper.cpp bindings, and the OpenAI, Groq and Google cloud APIs.
package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/apierr"
)

// Options configures a single transcription call.
type Options struct {
	// Language is an ISO 639-1 code. Empty means auto-detect.
	Language string

	// BeamSize is the decoder beam width for local models.
	BeamSize int

	// VADFilter drops non-speech audio before decoding.
	VADFilter bool
}

// Transcriber transcribes audio files to text.
type Transcriber interface {
	// Transcribe converts an audio file to text.
	// No detected speech is reported as "" with a nil error.
	// Failures wrap ErrBackendUnavailable or ErrTranscriptionFailed;
	// a cancelled or expired ctx is returned as ctx.Err().
	Transcribe(ctx context.Context, audioPath string, opts Options) (string, error)
}

// Backend is a Transcriber owning resources (a model, a helper process).
type Backend interface {
	Transcriber

	// Name returns the STT_BACKEND value that selects this backend.
	Name() string

	// Close releases the backend. It is safe to call once at shutdown.
	Close() error
}

// wrapAPIError maps a classified provider error (see apierr) onto the two
// sentinels callers act on. Context errors pass through untouched.
func wrapAPIError(backend string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apierr.IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", backend, ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", backend, ErrTranscriptionFailed, err)
}
