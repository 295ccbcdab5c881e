// Package bot answers chat messages: it downloads the audio, runs the
// transcription pipeline and delivers the result. The Telegram transport
// lives in telegram.go; everything else is written against small
// interfaces so it runs without Telegram in tests.
package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/delivery"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/metrics"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
)

// Request outcomes reported to metrics.
const (
	outcomeOK             = "ok"
	outcomePartial        = "partial"
	outcomeNoSpeech       = "no_speech"
	outcomeFailed         = "recognition_failed"
	outcomeRejected       = "rejected"
	outcomeDeliveryFailed = "delivery_failed"
	outcomeError          = "error"
	outcomeCancelled      = "cancelled"
)

// MessageRef identifies a sent message so it can be edited.
type MessageRef struct {
	ChatID int64
	ID     int
}

// Responder talks back to the chat a message came from.
type Responder interface {
	delivery.Sender

	// Reply sends a new message and returns a handle for Edit.
	Reply(ctx context.Context, text string) (MessageRef, error)

	// Edit replaces the text of a message sent by Reply.
	Edit(ctx context.Context, ref MessageRef, text string) error
}

// Attachment describes an incoming audio file as declared by the chat.
type Attachment struct {
	FileID   string
	FileName string        // local name to store the download under
	MIME     string        // declared type, may be empty
	Size     int64         // declared size in bytes, 0 when unknown
	Duration time.Duration // declared duration, 0 when unknown
}

// ErrTooLarge is returned by a Downloader when the chat refuses to hand
// over a file because of its size.
var ErrTooLarge = errors.New("file too large to download")

// Downloader fetches an attachment into a local file.
type Downloader interface {
	Download(ctx context.Context, att Attachment, dst string) error
}

// Runner is the transcription pipeline.
type Runner interface {
	Run(ctx context.Context, req *pipeline.Request, path string, progress pipeline.ProgressFunc) (pipeline.Result, error)
}

var _ Runner = (*pipeline.Pipeline)(nil)

// Limits bounds what the handler accepts and how it answers.
type Limits struct {
	MaxFileSize   int64         // bytes
	MaxDuration   time.Duration // 0 = unlimited
	MaxTextLength int           // longest transcript sent inline, in characters
}

// Handler processes one message at a time per call; calls may run
// concurrently for different messages.
type Handler struct {
	runner     Runner
	downloader Downloader
	limits     Limits
	scratchDir string
	logger     *log.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithClock replaces time.Now (attachment names).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a Handler. Per-message scratch directories are
// created under scratchDir.
func NewHandler(runner Runner, downloader Downloader, limits Limits, scratchDir string, opts ...HandlerOption) *Handler {
	h := &Handler{
		runner:     runner,
		downloader: downloader,
		limits:     limits,
		scratchDir: scratchDir,
		logger:     logging.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start answers the /start command.
func (h *Handler) Start(ctx context.Context, r Responder) error {
	_, err := r.Reply(ctx, MsgGreeting)
	return err
}

// NoAudio answers a message that carries nothing to transcribe.
func (h *Handler) NoAudio(ctx context.Context, r Responder) error {
	_, err := r.Reply(ctx, MsgNoAudio)
	return err
}

// HandleAudio runs the whole flow for one message. It never returns
// processing errors: every failure is logged and answered with a fixed
// text. The returned error is only a failure to send that text.
func (h *Handler) HandleAudio(ctx context.Context, r Responder, userID int64, att *Attachment) (err error) {
	logger := h.logger.With("user", userID)
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while handling message", "panic", rec, "stack", string(debug.Stack()))
			h.metrics.Request(outcomeError)
			err = h.say(ctx, r, MsgInternalError)
		}
	}()

	if att == nil {
		h.metrics.Request(outcomeRejected)
		return h.say(ctx, r, MsgNoAudio)
	}
	logger = logger.With("file_id", att.FileID)
	logger.Info("new audio message", "name", att.FileName, "mime", att.MIME, "size", att.Size, "duration", att.Duration)

	// Declared metadata is checked before downloading anything.
	if h.limits.MaxFileSize > 0 && att.Size > h.limits.MaxFileSize {
		h.metrics.Request(outcomeRejected)
		return h.say(ctx, r, fileTooLargeText(h.limits.MaxFileSize))
	}
	if h.limits.MaxDuration > 0 && att.Duration > h.limits.MaxDuration {
		h.metrics.Request(outcomeRejected)
		return h.say(ctx, r, durationTooLongText(h.limits.MaxDuration))
	}

	ack, ackErr := r.Reply(ctx, MsgProcessing)
	if ackErr != nil {
		logger.Warn("acknowledgement not sent", "err", ackErr)
	}

	req, err := pipeline.NewRequest(h.scratchDir, userID, logger)
	if err != nil {
		logger.Error("cannot create scratch directory", "err", err)
		h.metrics.Request(outcomeError)
		return h.say(ctx, r, MsgInternalError)
	}
	defer req.Close()
	logger = logger.With("request", req.ID)

	src := req.Path(att.FileName)
	if err := h.downloader.Download(ctx, *att, src); err != nil {
		if ctx.Err() != nil {
			h.metrics.Request(outcomeCancelled)
			return nil
		}
		if errors.Is(err, ErrTooLarge) {
			logger.Info("rejected", "reason", err)
			h.metrics.Request(outcomeRejected)
			return h.say(ctx, r, fileTooLargeText(h.limits.MaxFileSize))
		}
		logger.Error("download failed", "err", err)
		h.metrics.Request(outcomeError)
		return h.say(ctx, r, MsgInternalError)
	}

	progress := func(done, total int) {
		if ackErr != nil || done >= total {
			return
		}
		if err := r.Edit(ctx, ack, progressText(done+1, total)); err != nil {
			logger.Debug("progress edit failed", "err", err)
		}
	}

	res, err := h.runner.Run(ctx, req, src, progress)
	if err != nil {
		return h.fail(ctx, r, logger, err)
	}

	if res.Empty() {
		if res.Failed > 0 && res.Failed == res.Total {
			logger.Warn("every chunk failed", "chunks", res.Total)
			h.metrics.Request(outcomeFailed)
			return h.say(ctx, r, MsgRecognitionFailed)
		}
		logger.Info("no speech recognised", "chunks", res.Total, "failed", res.Failed)
		h.metrics.Request(outcomeNoSpeech)
		return h.say(ctx, r, MsgNotRecognized)
	}

	text := res.Text()
	logger.Debug("raw transcript", "text", logging.Preview(text))

	warning := ""
	if res.Partial() {
		warning = partialWarning(res.Recognized(), res.Total)
	}

	plan := delivery.Decide(text, h.limits.MaxTextLength, h.now())
	prefix := MsgResultPrefix
	if plan.Mode == delivery.Inline && utf8.RuneCountInString(prefix+text) > h.limits.MaxTextLength {
		// The transcript fits on its own; the header goes first, separately.
		if err := h.say(ctx, r, strings.TrimSpace(prefix)); err != nil {
			logger.Debug("result header not sent", "err", err)
		}
		prefix = ""
	}
	caption := MsgAttachmentCaption + warning
	if err := delivery.Deliver(ctx, r, plan, req.Dir, prefix, caption); err != nil {
		logger.Error("delivery failed", "mode", plan.Mode, "err", err)
		h.metrics.Delivery("failed")
		h.metrics.Request(outcomeDeliveryFailed)
		return h.say(ctx, r, MsgDeliveryFailed)
	}
	if plan.Mode == delivery.Inline && warning != "" {
		// The warning rides in a second message so the transcript stays copyable.
		if err := h.say(ctx, r, strings.TrimSpace(warning)); err != nil {
			logger.Debug("partial warning not sent", "err", err)
		}
	}

	h.metrics.Delivery(plan.Mode.String())
	if res.Partial() {
		h.metrics.Request(outcomePartial)
	} else {
		h.metrics.Request(outcomeOK)
	}
	logger.Info("transcript delivered",
		"mode", plan.Mode,
		"chars", utf8.RuneCountInString(text),
		"chunks", res.Total,
		"failed", res.Failed,
		"took", time.Since(started).Round(time.Millisecond))
	return nil
}

// fail maps a pipeline error to its user message.
func (h *Handler) fail(ctx context.Context, r Responder, logger *log.Logger, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("processing cancelled", "err", err)
		h.metrics.Request(outcomeCancelled)
		return nil
	}

	switch {
	case errors.Is(err, pipeline.ErrFileTooLarge):
		logger.Info("rejected", "reason", reason(err))
		h.metrics.Request(outcomeRejected)
		return h.say(ctx, r, fileTooLargeText(h.limits.MaxFileSize))
	case errors.Is(err, pipeline.ErrDurationTooLong):
		logger.Info("rejected", "reason", reason(err))
		h.metrics.Request(outcomeRejected)
		return h.say(ctx, r, durationTooLongText(h.limits.MaxDuration))
	case errors.Is(err, audio.ErrDecode),
		errors.Is(err, audio.ErrChunkingFailed),
		errors.Is(err, pipeline.ErrUnsupportedFormat),
		errors.Is(err, pipeline.ErrEmptyFile):
		logger.Warn("audio unusable", "reason", reason(err))
		h.metrics.Request(outcomeRejected)
		return h.say(ctx, r, MsgDecodeFailed)
	}

	logger.Error("processing failed", "err", err)
	h.metrics.Request(outcomeError)
	return h.say(ctx, r, MsgInternalError)
}

func reason(err error) string {
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return err.Error()
}

func (h *Handler) say(ctx context.Context, r Responder, text string) error {
	if _, err := r.Reply(ctx, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// attachmentName derives a safe local file name from a declared name,
// falling back to kind plus an extension guessed from the MIME type.
func attachmentName(declared, kind, mime string) string {
	if name := filepath.Base(strings.TrimSpace(declared)); name != "" && name != "." && name != "/" {
		return name
	}
	return kind + extensionFor(mime)
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "audio/ogg", "audio/opus", "application/ogg":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/x-m4a", "audio/m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "video/mp4":
		return ".mp4"
	case "audio/webm", "video/webm":
		return ".webm"
	}
	return ".bin"
}
