package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	tele "gopkg.in/telebot.v4"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

// pollTimeout is the long-polling wait per getUpdates call.
const pollTimeout = 10 * time.Second

// MaxDownloadSize is the largest file the Bot API lets a bot download.
const MaxDownloadSize int64 = 20 << 20

// Telegram connects a Handler to the Bot API through long polling.
type Telegram struct {
	bot     *tele.Bot
	handler *Handler
	logger  *log.Logger
}

// NewTelegram authenticates with token. The handler's Downloader should
// be the one returned by (*Telegram).Downloader.
func NewTelegram(token string, logger *log.Logger) (*Telegram, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	t := &Telegram{logger: logger}

	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c tele.Context) {
			if c != nil && c.Chat() != nil {
				logger.Error("telegram handler error", "chat", c.Chat().ID, "err", err)
				return
			}
			logger.Error("telegram error", "err", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	t.bot = b
	logger.Info("telegram bot authorised", "username", b.Me.Username)
	return t, nil
}

// Downloader returns a Downloader backed by the Bot API file endpoint.
func (t *Telegram) Downloader() Downloader {
	return teleDownloader{bot: t.bot}
}

// Run registers the handlers and polls until ctx is done. Messages are
// dispatched concurrently; each gets a context derived from ctx.
func (t *Telegram) Run(ctx context.Context, h *Handler) error {
	t.handler = h

	t.bot.Handle("/start", func(c tele.Context) error {
		return h.Start(ctx, t.responder(c))
	})
	t.bot.Handle(tele.OnVoice, t.onAudio(ctx))
	t.bot.Handle(tele.OnAudio, t.onAudio(ctx))
	t.bot.Handle(tele.OnVideoNote, t.onAudio(ctx))
	t.bot.Handle(tele.OnDocument, t.onAudio(ctx))
	t.bot.Handle(tele.OnText, func(c tele.Context) error {
		return h.NoAudio(ctx, t.responder(c))
	})

	go func() {
		<-ctx.Done()
		t.logger.Info("stopping telegram polling")
		t.bot.Stop()
	}()

	t.logger.Info("telegram polling started")
	t.bot.Start() // returns after Stop
	return nil
}

func (t *Telegram) onAudio(ctx context.Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Chat().ID
		if s := c.Sender(); s != nil {
			userID = s.ID
		}
		return t.handler.HandleAudio(ctx, t.responder(c), userID, attachmentOf(c.Message()))
	}
}

func (t *Telegram) responder(c tele.Context) Responder {
	return &teleChat{bot: t.bot, chat: c.Chat(), replyTo: c.Message()}
}

// attachmentOf extracts the audio a message carries, or nil.
// Documents count only when their type or name says audio or video.
func attachmentOf(m *tele.Message) *Attachment {
	if m == nil {
		return nil
	}
	switch {
	case m.Voice != nil:
		return &Attachment{
			FileID:   m.Voice.FileID,
			FileName: attachmentName("", "voice", orDefault(m.Voice.MIME, "audio/ogg")),
			MIME:     m.Voice.MIME,
			Size:     m.Voice.FileSize,
			Duration: time.Duration(m.Voice.Duration) * time.Second,
		}
	case m.Audio != nil:
		return &Attachment{
			FileID:   m.Audio.FileID,
			FileName: attachmentName(m.Audio.FileName, "audio", m.Audio.MIME),
			MIME:     m.Audio.MIME,
			Size:     m.Audio.FileSize,
			Duration: time.Duration(m.Audio.Duration) * time.Second,
		}
	case m.VideoNote != nil:
		return &Attachment{
			FileID:   m.VideoNote.FileID,
			FileName: attachmentName("", "video_note", "video/mp4"),
			MIME:     "video/mp4",
			Size:     m.VideoNote.FileSize,
			Duration: time.Duration(m.VideoNote.Duration) * time.Second,
		}
	case m.Document != nil && isMediaDocument(m.Document.MIME, m.Document.FileName):
		return &Attachment{
			FileID:   m.Document.FileID,
			FileName: attachmentName(m.Document.FileName, "document", m.Document.MIME),
			MIME:     m.Document.MIME,
			Size:     m.Document.FileSize,
		}
	}
	return nil
}

func isMediaDocument(mime, name string) bool {
	mime = strings.ToLower(mime)
	if strings.HasPrefix(mime, "audio/") || strings.HasPrefix(mime, "video/") || mime == "application/ogg" {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ogg", ".oga", ".opus", ".mp3", ".m4a", ".wav", ".flac", ".aac", ".amr", ".webm", ".mp4":
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// teleChat answers in the chat of one incoming message.
type teleChat struct {
	bot     *tele.Bot
	chat    *tele.Chat
	replyTo *tele.Message
}

var _ Responder = (*teleChat)(nil)

func (c *teleChat) Reply(_ context.Context, text string) (MessageRef, error) {
	m, err := c.bot.Send(c.chat, text)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: m.Chat.ID, ID: m.ID}, nil
}

func (c *teleChat) Edit(_ context.Context, ref MessageRef, text string) error {
	msg := tele.StoredMessage{MessageID: strconv.Itoa(ref.ID), ChatID: ref.ChatID}
	_, err := c.bot.Edit(msg, text)
	return err
}

func (c *teleChat) SendText(_ context.Context, text string) error {
	_, err := c.bot.Send(c.chat, text, &tele.SendOptions{ReplyTo: c.replyTo})
	return err
}

func (c *teleChat) SendDocument(_ context.Context, path, caption string) error {
	doc := &tele.Document{
		File:     tele.FromDisk(path),
		FileName: filepath.Base(path),
		Caption:  caption,
		MIME:     "text/plain",
	}
	_, err := c.bot.Send(c.chat, doc, &tele.SendOptions{ReplyTo: c.replyTo})
	return err
}

// teleDownloader stores Bot API files on disk.
type teleDownloader struct {
	bot *tele.Bot
}

func (d teleDownloader) Download(ctx context.Context, att Attachment, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.bot.Download(&tele.File{FileID: att.FileID}, dst); err != nil {
		return downloadError(att.FileID, err)
	}
	return nil
}

// downloadError marks the Bot API size refusal with ErrTooLarge.
func downloadError(fileID string, err error) error {
	if errors.Is(err, tele.ErrTooLarge) || strings.Contains(err.Error(), "file is too big") {
		return fmt.Errorf("download %s: %w: %v", fileID, ErrTooLarge, err)
	}
	return fmt.Errorf("download %s: %w", fileID, err)
}
