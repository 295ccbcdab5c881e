package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
)

// SplitCmd creates the split command.
// The env parameter provides injectable dependencies for testing.
func SplitCmd(env *Env) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "split <audio-file>",
		Short: "Cut an audio file into the segments the bot would recognise",
		Long: `Decode an audio file and write the overlapping segments the pipeline would
send to the speech backend, as 16 kHz mono WAV files.

Segments use SEGMENT_DURATION and SEGMENT_OVERLAP. Audio no longer than one
segment is not split. Useful to check segmentation settings without a backend.`,
		Example: `  transcribebot split lecture.ogg -o /tmp/segments
  SEGMENT_DURATION=60 SEGMENT_OVERLAP=5 transcribebot split talk.mp3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd.Context(), env, args[0], outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory to create the segment folder in")

	return cmd
}

// runSplit prints one line per segment: span, then path.
func runSplit(ctx context.Context, env *Env, input, outputDir string) error {
	cfg, logger, err := loadConfig(env, env.Getenv)
	if err != nil {
		return err
	}

	if _, err := os.Stat(input); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", pipeline.ErrFileNotFound, input)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	outputDir = config.ExpandPath(outputDir)
	if err := config.ValidDir(outputDir); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	decoder, err := newDecoder(ctx, env, cfg, logger)
	if err != nil {
		return err
	}
	seg, err := newSegmenter(cfg, decoder, logger)
	if err != nil {
		return err
	}

	src, err := seg.Load(ctx, input)
	if err != nil {
		return err
	}
	chunks, err := seg.Split(ctx, src, outputDir)
	if err != nil {
		return err
	}

	if len(chunks) == 1 && chunks[0].Original {
		fmt.Fprintf(env.Stderr, "%s fits in one segment, nothing written\n", format.Duration(src.Duration))
	} else {
		fmt.Fprintf(env.Stderr, "%s split into %d segments\n", format.Duration(src.Duration), len(chunks))
	}
	for _, c := range chunks {
		fmt.Fprintf(env.Stdout, "%s\t%s\n", format.Span(c.Start, c.End), c.Path)
	}
	return nil
}
