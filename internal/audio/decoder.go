package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-audio/wav"
	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

// Compile-time interface implementation checks.
var (
	_ Decoder = WAVDecoder{}
	_ Decoder = OpusDecoder{}
	_ Decoder = (*FFmpegDecoder)(nil)
	_ Decoder = (*ChainDecoder)(nil)
)

// Decoder turns an audio file into 16 kHz mono PCM.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]int16, error)
}

// ---------------------------------------------------------------------------
// WAVDecoder - native RIFF/WAVE PCM
// ---------------------------------------------------------------------------

// WAVDecoder reads uncompressed PCM WAV files of any rate, depth and
// channel count.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(_ context.Context, path string) ([]int16, error) {
	f, err := os.Open(path) // #nosec G304 -- path is inside the request scratch dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a PCM wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("wav contains no samples")
	}

	depth := int(dec.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = scaleTo16(v, depth)
	}
	return normalize(samples, buf.Format.SampleRate, buf.Format.NumChannels)
}

// scaleTo16 rescales a PCM integer of the given bit depth to 16 bits.
func scaleTo16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8) // #nosec G115 -- 8-bit PCM is unsigned
	case 24:
		return int16(v >> 8) // #nosec G115
	case 32:
		return int16(v >> 16) // #nosec G115
	default:
		return int16(v) // #nosec G115
	}
}

// ---------------------------------------------------------------------------
// OpusDecoder - pure Go OGG/Opus (Telegram voice notes)
// ---------------------------------------------------------------------------

// Opus always decodes at 48 kHz; the rate in the Ogg header only records
// what the encoder was fed.
const (
	opusRate     = 48000
	maxFrameSize = 5760 // 120 ms at 48 kHz, per channel
)

// OpusDecoder decodes OGG/Opus without ffmpeg. The underlying library does
// not support every Opus mode and can panic on unusual streams; panics are
// recovered and reported as errors.
type OpusDecoder struct{}

// Decode implements Decoder.
func (OpusDecoder) Decode(_ context.Context, path string) (samples []int16, err error) {
	defer func() {
		if r := recover(); r != nil {
			samples, err = nil, fmt.Errorf("opus decoder panic: %v", r)
		}
	}()

	f, err := os.Open(path) // #nosec G304 -- path is inside the request scratch dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	ogg, header, err := oggreader.NewWith(f)
	if err != nil {
		return nil, fmt.Errorf("parse ogg container: %w", err)
	}

	decoder := opus.NewDecoder()
	out := make([]byte, maxFrameSize*2*2) // stereo s16le

	var all []int16
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse ogg page: %w", err)
		}
		for _, seg := range segments {
			if len(seg) == 0 {
				continue
			}
			n, err := opusPacketSamples(seg)
			if err != nil {
				continue // OpusHead and OpusTags are not audio
			}
			clear(out)
			_, stereo, err := decoder.Decode(seg, out)
			if err != nil {
				continue
			}
			channels := 1
			if stereo {
				channels = 2
			}
			frame := bytesToInt16(out[:n*channels*2])
			if stereo {
				frame = toMono(frame, 2)
			}
			all = append(all, frame...)
		}
	}

	// Pre-skip is encoder priming, not audio.
	all = all[min(int(header.PreSkip), len(all)):]
	if len(all) == 0 {
		return nil, fmt.Errorf("no opus frames decoded")
	}
	return normalize(all, opusRate, 1)
}

// opusFrameSizes holds the frame length in 48 kHz samples for each TOC
// configuration (RFC 6716, section 3.1).
var opusFrameSizes = [32]int{
	480, 960, 1920, 2880, // SILK NB
	480, 960, 1920, 2880, // SILK MB
	480, 960, 1920, 2880, // SILK WB
	480, 960, // Hybrid SWB
	480, 960, // Hybrid FB
	120, 240, 480, 960, // CELT NB
	120, 240, 480, 960, // CELT WB
	120, 240, 480, 960, // CELT SWB
	120, 240, 480, 960, // CELT FB
}

// opusPacketSamples returns how many 48 kHz samples per channel a packet
// decodes to, read from its TOC byte and frame count.
func opusPacketSamples(packet []byte) (int, error) {
	if len(packet) == 0 {
		return 0, fmt.Errorf("empty opus packet")
	}
	if magic := string(packet[:min(len(packet), 8)]); magic == "OpusHead" || magic == "OpusTags" {
		return 0, fmt.Errorf("opus header packet")
	}

	toc := packet[0]
	size := opusFrameSizes[toc>>3]

	frames := 1
	switch toc & 0x03 {
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) < 2 {
			return 0, fmt.Errorf("opus packet missing frame count")
		}
		frames = int(packet[1] & 0x3f)
	}

	n := size * frames
	if n == 0 || n > maxFrameSize {
		return 0, fmt.Errorf("opus packet of %d samples", n)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// FFmpegDecoder - anything ffmpeg reads
// ---------------------------------------------------------------------------

// pcmRunner is satisfied by *ffmpeg.Executor.
type pcmRunner interface {
	DecodePCM(ctx context.Context, input string) ([]byte, error)
}

// FFmpegDecoder shells out to ffmpeg for containers Go cannot read natively
// (mp3, m4a, flac, webm, video with an audio track).
type FFmpegDecoder struct {
	run pcmRunner
}

// NewFFmpegDecoder creates a decoder backed by an ffmpeg executor.
func NewFFmpegDecoder(run pcmRunner) *FFmpegDecoder {
	return &FFmpegDecoder{run: run}
}

// Decode implements Decoder.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) ([]int16, error) {
	raw, err := d.run.DecodePCM(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("ffmpeg produced no audio")
	}
	return bytesToInt16(raw), nil
}

// ---------------------------------------------------------------------------
// ChainDecoder - pick decoders by extension, first success wins
// ---------------------------------------------------------------------------

// ChainDecoder routes a file to the decoders able to read it:
//   - .wav: native WAV, then ffmpeg
//   - .ogg/.oga/.opus: ffmpeg, then pure Go Opus
//   - anything else: ffmpeg only
//
// The ffmpeg stage is skipped when no ffmpeg is configured.
type ChainDecoder struct {
	ffmpeg Decoder // nil when ffmpeg is unavailable
	logger *log.Logger
}

// ChainOption configures a ChainDecoder.
type ChainOption func(*ChainDecoder)

// WithFFmpeg enables the ffmpeg stage.
func WithFFmpeg(d Decoder) ChainOption {
	return func(c *ChainDecoder) { c.ffmpeg = d }
}

// WithDecoderLogger sets the logger used to report fallbacks.
func WithDecoderLogger(l *log.Logger) ChainOption {
	return func(c *ChainDecoder) { c.logger = l }
}

// NewChainDecoder creates a ChainDecoder.
func NewChainDecoder(opts ...ChainOption) *ChainDecoder {
	c := &ChainDecoder{logger: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type namedDecoder struct {
	name string
	dec  Decoder
}

func (c *ChainDecoder) candidates(path string) []namedDecoder {
	var out []namedDecoder
	add := func(name string, d Decoder) {
		if d != nil {
			out = append(out, namedDecoder{name, d})
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		add("wav", WAVDecoder{})
		add("ffmpeg", c.ffmpeg)
	case ".ogg", ".oga", ".opus":
		add("ffmpeg", c.ffmpeg)
		add("opus", OpusDecoder{})
	default:
		add("ffmpeg", c.ffmpeg)
	}
	return out
}

// Decode implements Decoder.
func (c *ChainDecoder) Decode(ctx context.Context, path string) ([]int16, error) {
	candidates := c.candidates(path)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s (install ffmpeg to accept this format)",
			ErrUnsupportedFormat, filepath.Ext(path))
	}

	var errs []error
	for _, cand := range candidates {
		samples, err := cand.dec.Decode(ctx, path)
		if err == nil {
			return samples, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("decoder failed, trying next", "decoder", cand.name, "file", filepath.Base(path), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", cand.name, err))
	}
	return nil, errors.Join(errs...)
}
