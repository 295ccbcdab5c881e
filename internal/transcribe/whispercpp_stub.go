//go:build !whisper

package transcribe

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
)

// NewWhisperCpp reports that whisper.cpp support was not compiled in.
// Build with -tags whisper and the whisper.cpp library installed.
func NewWhisperCpp(modelPath string, _ audio.Decoder, _ int, _ *log.Logger) (Backend, error) {
	return nil, fmt.Errorf("whispercpp (%s): %w: rebuild with -tags whisper", modelPath, ErrBackendNotCompiled)
}
