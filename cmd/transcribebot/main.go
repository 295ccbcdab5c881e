package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/cli"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/ffmpeg"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/interrupt"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitInterrupt     = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First SIGINT/SIGTERM cancels ctx for a graceful stop, a second one exits.
	signals, ctx := interrupt.NewHandler(context.Background())
	code := run(ctx, cli.DefaultEnv(), os.Args[1:])
	signals.Stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, env *cli.Env, args []string) int {
	rootCmd := newRootCmd(env)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(env.Stderr, "Error:", err)
		return exitCode(err)
	}
	return ExitOK
}

func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "transcribebot",
		Short:   "Telegram bot that turns voice messages into text",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(env.Stdout)
	rootCmd.SetErr(env.Stderr)

	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Validation errors (ExitValidation = 4): bad configuration values or input.
	// Checked before setup because a joined config error may carry both.
	if errors.Is(err, config.ErrInvalid) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, logging.ErrInvalidLevel) || errors.Is(err, audio.ErrInvalidOverlap) ||
		errors.Is(err, pipeline.ErrFileNotFound) || errors.Is(err, pipeline.ErrEmptyFile) ||
		errors.Is(err, pipeline.ErrFileTooLarge) || errors.Is(err, pipeline.ErrUnsupportedFormat) ||
		errors.Is(err, pipeline.ErrDurationTooLong) || errors.Is(err, audio.ErrDecode) {
		return ExitValidation
	}

	// Setup errors (ExitSetup = 3): missing token or keys, no ffmpeg, no backend.
	if errors.Is(err, config.ErrMissing) || errors.Is(err, ffmpeg.ErrNotFound) ||
		errors.Is(err, transcribe.ErrBackendUnavailable) || errors.Is(err, transcribe.ErrBackendNotCompiled) ||
		errors.Is(err, transcribe.ErrUnknownBackend) {
		return ExitSetup
	}

	// Transcription errors (ExitTranscription = 5).
	if errors.Is(err, cli.ErrNoSpeech) || errors.Is(err, cli.ErrRecognitionFailed) {
		return ExitTranscription
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
