package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/bot"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/metrics"
)

// ServeCmd creates the serve command.
// The env parameter provides injectable dependencies for testing.
func ServeCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long: `Run the Telegram bot until interrupted.

Voice messages, audio files, video notes and audio documents are downloaded,
split into overlapping segments, recognised one segment at a time and sent
back as a message, or as a text file when the transcript is too long.

Configuration is read from the environment (and a .env file if present).
Run "config" to see the effective values.`,
		Example: `  TELEGRAM_TOKEN=123:abc transcribebot serve
  STT_BACKEND=openai OPENAI_API_KEY=sk-... transcribebot serve
  METRICS_ADDR=:9090 LOG_LEVEL=debug transcribebot serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), env)
		},
	}
}

// runServe wires every component and blocks until ctx is done.
// Setup order: config -> token -> scratch dir -> decoder -> backend -> bot.
func runServe(ctx context.Context, env *Env) error {
	cfg, logger, err := loadConfig(env, env.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	if err := config.ValidDir(cfg.ScratchDir); err != nil {
		return fmt.Errorf("%s: %w", config.EnvScratchDir, err)
	}

	decoder, err := newDecoder(ctx, env, cfg, logger)
	if err != nil {
		return err
	}
	seg, err := newSegmenter(cfg, decoder, logger)
	if err != nil {
		return err
	}

	backend, err := env.BackendFactory.NewBackend(ctx, cfg, decoder, logger)
	if err != nil {
		return fmt.Errorf("backend %s: %w", cfg.Backend, err)
	}
	defer closeBackend(backend, logger)
	logger.Info("backend ready",
		"backend", backend.Name(),
		"language", lang.DisplayName(cfg.Language),
		"segment", cfg.SegmentDuration,
		"overlap", cfg.SegmentOverlap)

	tg, err := env.BotFactory.NewBot(cfg.TelegramToken, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	handler := bot.NewHandler(
		newPipeline(cfg, seg, backend, logger, m),
		tg.Downloader(),
		handlerLimits(cfg, logger),
		cfg.ScratchDir,
		bot.WithLogger(logger),
		bot.WithMetrics(m),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tg.Run(gctx, handler)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return m.Serve(gctx, cfg.MetricsAddr, logger)
		})
	}

	err = g.Wait()
	logger.Info("bot stopped")
	return err
}
