package transcribe

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

// New builds the backend selected by cfg.Backend and limits it to
// cfg.BackendConcurrency concurrent calls. Local models are loaded here,
// so a non-nil error means the bot cannot start.
// decoder feeds backends that need raw PCM (whispercpp, google fallback).
func New(ctx context.Context, cfg config.Config, decoder audio.Decoder, logger *log.Logger) (Backend, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendFasterWhisper:
		b, err = NewFasterWhisper(ctx, FasterWhisperConfig{
			PythonBin:   cfg.PythonBin,
			Model:       cfg.WhisperModel,
			Device:      cfg.WhisperDevice,
			ComputeType: cfg.WhisperComputeType,
			Threads:     cfg.WhisperThreads,
		}, WithHelperLogger(logger))
	case config.BackendWhisperCpp:
		b, err = NewWhisperCpp(config.ExpandPath(cfg.WhisperModel), decoder, cfg.WhisperThreads, logger)
	case config.BackendOpenAI:
		b = NewOpenAI(cfg.OpenAIKey, WithModel(cfg.OpenAIModel))
	case config.BackendGroq:
		b = NewGroq(cfg.GroqKey)
	case config.BackendGoogle:
		b = NewGoogle(cfg.GoogleKey, WithGoogleDecoder(decoder))
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Backend, ErrUnknownBackend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("transcription backend ready", "backend", b.Name(), "concurrency", max(cfg.BackendConcurrency, 1))
	return Serialize(b, cfg.BackendConcurrency), nil
}
