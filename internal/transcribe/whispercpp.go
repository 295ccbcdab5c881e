//go:build whisper

package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

var _ Backend = (*WhisperCpp)(nil)

// WhisperCpp runs a ggml Whisper model in-process through whisper.cpp.
// The model is shared; each call gets its own context and calls are
// serialised because inference saturates the configured threads anyway.
type WhisperCpp struct {
	mu      sync.Mutex
	model   whisper.Model
	decoder audio.Decoder
	threads uint
	logger  *log.Logger
}

// NewWhisperCpp loads the model file at modelPath.
func NewWhisperCpp(modelPath string, decoder audio.Decoder, threads int, logger *log.Logger) (Backend, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Info("loading whisper.cpp model", "path", modelPath)

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model: %w: %w", ErrBackendUnavailable, err)
	}
	logger.Info("whisper.cpp model loaded", "multilingual", model.IsMultilingual())

	if threads < 0 {
		threads = 0
	}
	return &WhisperCpp{model: model, decoder: decoder, threads: uint(threads), logger: logger}, nil
}

// Name returns the backend name.
func (w *WhisperCpp) Name() string { return "whispercpp" }

// Close releases the model.
func (w *WhisperCpp) Close() error { return w.model.Close() }

// Transcribe decodes the file to 16 kHz PCM and runs inference.
// Inference itself cannot be interrupted: on ctx expiry the call returns
// ctx.Err() at once and the abandoned run finishes in the background.
func (w *WhisperCpp) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	samples, err := w.decoder.Decode(ctx, audioPath)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whispercpp: decode: %w: %w", ErrTranscriptionFailed, err)
	}
	if opts.VADFilter {
		samples = audio.TrimSilence(samples)
	}
	if len(samples) == 0 {
		return "", nil
	}

	type result struct {
		text string
		err  error
	}
	out := make(chan result, 1)
	go func() {
		text, err := w.infer(audio.Float32(samples), opts)
		out <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-out:
		if r.err != nil {
			return "", fmt.Errorf("whispercpp: %w: %w", ErrTranscriptionFailed, r.err)
		}
		return r.text, nil
	}
}

func (w *WhisperCpp) infer(samples []float32, opts Options) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}

	language := lang.BaseCode(opts.Language)
	if language == "" {
		language = lang.Auto
	}
	if err := wctx.SetLanguage(language); err != nil {
		w.logger.Warn("whisper.cpp rejected language", "language", language, "err", err)
	}
	if w.threads > 0 {
		wctx.SetThreads(w.threads)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var text strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		text.WriteString(segment.Text)
	}
	return strings.TrimSpace(text.String()), nil
}
