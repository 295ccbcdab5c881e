// Package pipeline turns one downloaded audio file into a transcript:
// validate, plan overlapping windows, transcribe each window in order and
// join the texts. A window that fails is skipped, not fatal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/metrics"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

// ProgressFunc reports how many windows are done. It is called with done=0
// before the first window and after each window, only when total > 1.
type ProgressFunc func(done, total int)

// Result is the ordered outcome of a run.
type Result struct {
	Texts    []string      // Non-empty window texts, in window order.
	Total    int           // Windows planned.
	Failed   int           // Windows skipped on error or timeout.
	Duration time.Duration // Decoded audio duration.
}

// Text joins the window texts with single spaces.
func (r Result) Text() string {
	return strings.Join(r.Texts, " ")
}

// Empty reports whether nothing was recognised.
func (r Result) Empty() bool {
	return len(r.Texts) == 0
}

// Partial reports whether some windows failed while others produced text.
func (r Result) Partial() bool {
	return r.Failed > 0 && !r.Empty()
}

// Recognized returns how many windows were processed without error.
func (r Result) Recognized() int {
	return r.Total - r.Failed
}

// fileStatter abstracts os.Stat for testing.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

type osStatter struct{}

func (osStatter) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// Pipeline runs transcriptions. It holds no per-request state and is safe
// for concurrent use when its Transcriber is.
type Pipeline struct {
	segmenter    *audio.Segmenter
	transcriber  transcribe.Transcriber
	opts         transcribe.Options
	maxFileSize  int64
	maxDuration  time.Duration
	chunkTimeout time.Duration
	logger       *log.Logger
	metrics      *metrics.Metrics
	statter      fileStatter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOptions sets the options passed to every Transcribe call.
func WithOptions(o transcribe.Options) Option {
	return func(p *Pipeline) { p.opts = o }
}

// WithMaxFileSize sets the input size limit in bytes. 0 disables it.
func WithMaxFileSize(n int64) Option {
	return func(p *Pipeline) { p.maxFileSize = n }
}

// WithMaxDuration sets the audio duration limit. 0 disables it.
func WithMaxDuration(d time.Duration) Option {
	return func(p *Pipeline) { p.maxDuration = d }
}

// WithChunkTimeout bounds each Transcribe call. 0 disables it.
func WithChunkTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.chunkTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// withStatter replaces os.Stat (for testing).
func withStatter(s fileStatter) Option {
	return func(p *Pipeline) { p.statter = s }
}

// New creates a Pipeline.
func New(segmenter *audio.Segmenter, t transcribe.Transcriber, opts ...Option) *Pipeline {
	p := &Pipeline{
		segmenter:   segmenter,
		transcriber: t,
		logger:      logging.Discard(),
		statter:     osStatter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run transcribes the file at path. Chunk files are written under req.Dir
// and removed before Run returns, whatever the outcome.
//
// Errors:
//   - *ValidationError for unusable input (also matches audio.ErrDecode
//     when decoding failed)
//   - audio.ErrChunkingFailed when the chunk directory cannot be created
//   - ctx.Err() when the parent context ends
//
// Individual window failures are not errors; they show in Result.Failed.
func (p *Pipeline) Run(ctx context.Context, req *Request, path string, progress ProgressFunc) (Result, error) {
	started := time.Now()
	logger := p.logger.With("request", req.ID, "user", req.UserID)

	src, err := p.load(ctx, path)
	if err != nil {
		return Result{}, err
	}
	p.metrics.ObserveAudio(src.Duration)

	windows := p.segmenter.Plan(src)
	logger.Info("transcribing",
		"file", filepath.Base(path),
		"size", format.Size(src.Size),
		"duration", format.Duration(src.Duration),
		"chunks", len(windows))

	res := Result{Total: len(windows), Duration: src.Duration}

	if len(windows) == 1 {
		// No physical split: the source itself is the only chunk.
		chunk := audio.Chunk{Path: src.Path, Index: 1, Window: windows[0], Original: true}
		if err := p.transcribeChunk(ctx, logger, chunk, &res); err != nil {
			return Result{}, err
		}
	} else {
		chunkDir, err := p.segmenter.ChunkDir(req.Dir)
		if err != nil {
			return Result{}, err
		}
		defer p.segmenter.RemoveChunkDir(chunkDir)

		if progress != nil {
			progress(0, len(windows))
		}
		for i, w := range windows {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}

			chunk, err := p.segmenter.Extract(src, w, i+1, chunkDir)
			if err != nil {
				logger.Warn("chunk extraction failed, skipping", "chunk", i+1, "err", err)
				p.metrics.Chunk(metrics.ChunkBadSlice)
				res.Failed++
			} else {
				err = p.transcribeChunk(ctx, logger, chunk, &res)
				p.segmenter.RemoveChunk(chunk)
				if err != nil {
					return Result{}, err
				}
			}

			if progress != nil {
				progress(i+1, len(windows))
			}
		}
	}

	elapsed := time.Since(started)
	p.metrics.ObservePipeline(elapsed)
	logger.Info("transcription finished",
		"chunks", res.Total,
		"failed", res.Failed,
		"chars", len([]rune(res.Text())),
		"took", elapsed.Round(time.Millisecond))
	return res, nil
}

// load validates the input and decodes it. Every rejection is a
// *ValidationError.
func (p *Pipeline) load(ctx context.Context, path string) (*audio.Source, error) {
	info, err := p.statter.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ValidationError{Reason: "file not found", Err: ErrFileNotFound}
		}
		return nil, &ValidationError{Reason: err.Error(), Err: ErrFileNotFound}
	}
	if info.IsDir() {
		return nil, &ValidationError{Reason: "not a regular file", Err: ErrFileNotFound}
	}
	if info.Size() == 0 {
		return nil, &ValidationError{Reason: "file is empty", Err: ErrEmptyFile}
	}
	if p.maxFileSize > 0 && info.Size() > p.maxFileSize {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("file is %s, limit is %s", format.Size(info.Size()), format.Size(p.maxFileSize)),
			Err:    ErrFileTooLarge,
		}
	}

	if err := sniff(path); err != nil {
		return nil, err
	}

	src, err := p.segmenter.Load(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ValidationError{Reason: "cannot decode audio", Err: err}
	}

	if p.maxDuration > 0 && src.Duration > p.maxDuration {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("audio is %s, limit is %s", format.Duration(src.Duration), format.Duration(p.maxDuration)),
			Err:    ErrDurationTooLong,
		}
	}
	return src, nil
}

// sniff rejects content that is recognisably not audio. Unknown content
// is let through for the decoder to judge.
func sniff(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return &ValidationError{Reason: err.Error(), Err: ErrFileNotFound}
	}
	if acceptedMIME(mtype) {
		return nil
	}
	return &ValidationError{Reason: "not an audio file (" + mtype.String() + ")", Err: ErrUnsupportedFormat}
}

func acceptedMIME(m *mimetype.MIME) bool {
	s := m.String()
	switch {
	case strings.HasPrefix(s, "audio/"), strings.HasPrefix(s, "video/"):
		return true
	case m.Is("application/ogg"), m.Is("application/octet-stream"):
		return true
	}
	return false
}

// transcribeChunk runs one window and records the outcome in res.
// Only parent-context cancellation is returned; everything else is a skip.
func (p *Pipeline) transcribeChunk(ctx context.Context, logger *log.Logger, chunk audio.Chunk, res *Result) error {
	chunkCtx := ctx
	if p.chunkTimeout > 0 {
		var cancel context.CancelFunc
		chunkCtx, cancel = context.WithTimeout(ctx, p.chunkTimeout)
		defer cancel()
	}

	started := time.Now()
	text, err := p.transcriber.Transcribe(chunkCtx, chunk.Path, p.opts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		outcome := metrics.ChunkFailed
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.ChunkTimeout
		}
		logger.Warn("chunk failed, skipping", "chunk", chunk.Index, "span", chunk.Window.String(), "err", err)
		p.metrics.Chunk(outcome)
		res.Failed++
		return nil
	}

	text = strings.TrimSpace(text)
	logger.Debug("chunk transcribed",
		"chunk", chunk.Index,
		"span", chunk.Window.String(),
		"took", time.Since(started).Round(time.Millisecond),
		"text", logging.Preview(text))

	if text == "" {
		p.metrics.Chunk(metrics.ChunkEmpty)
		return nil
	}
	p.metrics.Chunk(metrics.ChunkOK)
	res.Texts = append(res.Texts, text)
	return nil
}
