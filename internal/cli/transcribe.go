package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/delivery"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
)

// transcribeOptions holds the transcribe flags.
type transcribeOptions struct {
	outputDir string
	language  string
	backend   string
}

// overrides maps flags onto the variables they replace.
func (o transcribeOptions) overrides() map[string]string {
	return map[string]string{
		config.EnvLanguage: o.language,
		config.EnvBackend:  o.backend,
	}
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a local audio file",
		Long: `Transcribe a local audio file with the same pipeline the bot uses.

The file is decoded, split into overlapping segments and recognised one
segment at a time. Segments that fail are skipped and reported. A transcript
that fits in one chat message (MAX_TEXT_LENGTH) is printed to stdout; a longer
one is written to a text file in the output directory.`,
		Example: `  transcribebot transcribe voice.ogg
  transcribebot transcribe lecture.mp3 -l en -o ~/transcripts
  transcribebot transcribe memo.wav --backend openai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd.Context(), env, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "Directory for transcripts too long to print")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Audio language (ISO 639-1 code or auto; overrides LANGUAGE)")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "Speech backend (overrides STT_BACKEND)")

	return cmd
}

// runTranscribe runs the pipeline once on a local file.
func runTranscribe(ctx context.Context, env *Env, input string, opts transcribeOptions) error {
	cfg, logger, err := loadConfig(env, withOverrides(env.Getenv, opts.overrides()))
	if err != nil {
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

	req, err := pipeline.NewRequest(cfg.ScratchDir, 0, logger)
	if err != nil {
		return err
	}
	defer req.Close()

	fmt.Fprintf(env.Stderr, "Transcribing %s with %s...\n", filepath.Base(input), backend.Name())
	progress := func(done, total int) {
		if done < total {
			fmt.Fprintf(env.Stderr, "  Part %d/%d...\n", done+1, total)
		}
	}

	res, err := newPipeline(cfg, seg, backend, logger, nil).Run(ctx, req, input, progress)
	if err != nil {
		return err
	}

	if res.Empty() {
		if res.Failed > 0 && res.Failed == res.Total {
			return fmt.Errorf("%w: all %d parts failed", ErrRecognitionFailed, res.Total)
		}
		return fmt.Errorf("%w in %s of audio", ErrNoSpeech, format.Duration(res.Duration))
	}
	if res.Partial() {
		fmt.Fprintf(env.Stderr, "Warning: recognised %d of %d parts\n", res.Recognized(), res.Total)
	}

	plan := delivery.Decide(res.Text(), cfg.MaxTextLength, env.Now())
	if plan.Mode == delivery.Inline {
		fmt.Fprintln(env.Stdout, plan.Text)
		return nil
	}

	outputDir := config.ExpandPath(opts.outputDir)
	if err := config.ValidDir(outputDir); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	path, err := delivery.WriteAttachment(outputDir, plan)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Transcript longer than %d characters, written to file\n", cfg.MaxTextLength)
	fmt.Fprintln(env.Stdout, path)
	return nil
}
