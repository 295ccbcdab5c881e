package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/bot"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/ffmpeg"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects
	FFmpegResolver FFmpegResolver
	BackendFactory BackendFactory
	BotFactory     BotFactory
}

// FFmpegResolver locates the optional ffmpeg binary.
type FFmpegResolver interface {
	// Resolve returns the binary path. configured is FFMPEG_PATH, may be empty.
	Resolve(configured string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, logger *log.Logger)
}

// BackendFactory creates the speech recognition backend.
type BackendFactory interface {
	NewBackend(ctx context.Context, cfg config.Config, decoder audio.Decoder, logger *log.Logger) (transcribe.Backend, error)
}

// Bot is a chat transport driving a bot.Handler.
type Bot interface {
	Downloader() bot.Downloader
	Run(ctx context.Context, h *bot.Handler) error
}

// BotFactory connects to the chat service.
type BotFactory interface {
	NewBot(token string, logger *log.Logger) (Bot, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithBackendFactory sets the backend factory.
func WithBackendFactory(f BackendFactory) EnvOption {
	return func(e *Env) {
		e.BackendFactory = f
	}
}

// WithBotFactory sets the bot factory.
func WithBotFactory(f BotFactory) EnvOption {
	return func(e *Env) {
		e.BotFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Getenv:         os.Getenv,
		Now:            time.Now,
		FFmpegResolver: defaultFFmpegResolver{},
		BackendFactory: defaultBackendFactory{},
		BotFactory:     defaultBotFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(configured string) (string, error) {
	return ffmpeg.NewResolver(ffmpeg.WithConfiguredPath(configured)).Resolve()
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, logger *log.Logger) {
	ffmpeg.NewExecutor(ffmpegPath).CheckVersion(ctx, logger)
}

type defaultBackendFactory struct{}

func (defaultBackendFactory) NewBackend(ctx context.Context, cfg config.Config, decoder audio.Decoder, logger *log.Logger) (transcribe.Backend, error) {
	return transcribe.New(ctx, cfg, decoder, logger)
}

type defaultBotFactory struct{}

func (defaultBotFactory) NewBot(token string, logger *log.Logger) (Bot, error) {
	t, err := bot.NewTelegram(token, logger)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver = defaultFFmpegResolver{}
	_ BackendFactory = defaultBackendFactory{}
	_ BotFactory     = defaultBotFactory{}
	_ Bot            = (*bot.Telegram)(nil)
)
