package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/bot"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/ffmpeg"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/metrics"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

// loadConfig reads and validates the configuration, then builds the
// logger it asks for. getenv may layer flag overrides over env.Getenv.
func loadConfig(env *Env, getenv func(string) string) (config.Config, *log.Logger, error) {
	cfg, err := config.Load(getenv)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(env.Stderr, cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// withOverrides returns a getenv that answers from overrides first.
// Empty override values are ignored so unset flags keep the environment.
func withOverrides(getenv func(string) string, overrides map[string]string) func(string) string {
	return func(key string) string {
		if v := overrides[key]; v != "" {
			return v
		}
		return getenv(key)
	}
}

// newDecoder builds the decoder chain. ffmpeg is optional unless
// FFMPEG_PATH points at it explicitly.
func newDecoder(ctx context.Context, env *Env, cfg config.Config, logger *log.Logger) (*audio.ChainDecoder, error) {
	opts := []audio.ChainOption{audio.WithDecoderLogger(logger)}

	path, err := env.FFmpegResolver.Resolve(cfg.FFmpegPath)
	switch {
	case err == nil:
		env.FFmpegResolver.CheckVersion(ctx, path, logger)
		opts = append(opts, audio.WithFFmpeg(audio.NewFFmpegDecoder(ffmpeg.NewExecutor(path))))
		logger.Debug("ffmpeg resolved", "path", path)
	case cfg.FFmpegPath != "":
		return nil, err
	default:
		logger.Warn("ffmpeg not found, only WAV and OGG/Opus input is accepted")
	}
	return audio.NewChainDecoder(opts...), nil
}

// newSegmenter builds the segmenter from the segment settings.
func newSegmenter(cfg config.Config, decoder audio.Decoder, logger *log.Logger) (*audio.Segmenter, error) {
	seg, err := audio.NewSegmenter(decoder, cfg.SegmentDuration, cfg.SegmentOverlap, audio.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("segmenter: %w", err)
	}
	return seg, nil
}

// newPipeline wires the pipeline limits and recognition options from cfg.
// m may be nil.
func newPipeline(cfg config.Config, seg *audio.Segmenter, t transcribe.Transcriber, logger *log.Logger, m *metrics.Metrics) *pipeline.Pipeline {
	return pipeline.New(seg, t,
		pipeline.WithOptions(transcribe.Options{
			Language:  cfg.Language,
			BeamSize:  cfg.BeamSize,
			VADFilter: cfg.VADFilter,
		}),
		pipeline.WithMaxFileSize(cfg.MaxFileSize()),
		pipeline.WithMaxDuration(cfg.MaxDuration),
		pipeline.WithChunkTimeout(cfg.ChunkTimeout),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	)
}

// handlerLimits derives the chat limits from cfg. The declared-size check
// never allows more than the Bot API will let the bot download.
func handlerLimits(cfg config.Config, logger *log.Logger) bot.Limits {
	size := cfg.MaxFileSize()
	if size > bot.MaxDownloadSize {
		logger.Warn("file size limit capped at the Bot API download limit",
			"configured", format.Size(size),
			"effective", format.Size(bot.MaxDownloadSize))
		size = bot.MaxDownloadSize
	}
	return bot.Limits{
		MaxFileSize:   size,
		MaxDuration:   cfg.MaxDuration,
		MaxTextLength: cfg.MaxTextLength,
	}
}

// closeBackend releases the backend; failures are only logged.
func closeBackend(b transcribe.Backend, logger *log.Logger) {
	if err := b.Close(); err != nil {
		logger.Warn("backend close failed", "backend", b.Name(), "err", err)
	}
}
