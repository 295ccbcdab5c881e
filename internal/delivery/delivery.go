// Package delivery decides how a transcript reaches the user and sends it:
// inline when it fits in one message, otherwise as a UTF-8 text file.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"
)

// ErrDelivery indicates the transcript could not be sent.
var ErrDelivery = errors.New("delivery failed")

// FilePrefix starts every attachment name.
const FilePrefix = "Транскрипция_"

// timestampLayout renders YYYYMMDD-HHMMSS.
const timestampLayout = "20060102-150405"

// Mode is the delivery channel.
type Mode int

const (
	// Inline sends the text as a chat message.
	Inline Mode = iota
	// Attachment sends the text as a document.
	Attachment
)

func (m Mode) String() string {
	if m == Attachment {
		return "attachment"
	}
	return "inline"
}

// Plan is the outcome of Decide.
type Plan struct {
	Mode     Mode
	Text     string
	FileName string // set for Attachment
}

// Decide picks Inline when text has at most maxInline characters (runes,
// not bytes) and Attachment otherwise.
func Decide(text string, maxInline int, now time.Time) Plan {
	if utf8.RuneCountInString(text) <= maxInline {
		return Plan{Mode: Inline, Text: text}
	}
	return Plan{Mode: Attachment, Text: text, FileName: FileName(now)}
}

// FileName returns the attachment name for a moment in time.
func FileName(now time.Time) string {
	return FilePrefix + now.Format(timestampLayout) + ".txt"
}

// WriteAttachment writes the transcript into dir. The file is synced and
// closed before the path is returned, so it can be uploaded at once.
func WriteAttachment(dir string, p Plan) (string, error) {
	path := filepath.Join(dir, p.FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", p.FileName, err)
	}
	if _, err := f.WriteString(p.Text); err != nil {
		_ = f.Close()
		_ = os.Remove(path) // best-effort cleanup; original error takes precedence
		return "", fmt.Errorf("write %s: %w", p.FileName, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path) // best-effort cleanup; original error takes precedence
		return "", fmt.Errorf("sync %s: %w", p.FileName, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path) // best-effort cleanup; original error takes precedence
		return "", fmt.Errorf("close %s: %w", p.FileName, err)
	}
	return path, nil
}

// Sender is the chat-side capability delivery needs.
type Sender interface {
	SendText(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path, caption string) error
}

// Deliver sends p through s. inlinePrefix is prepended to inline text and
// caption is attached to documents. An attachment is written into dir and
// removed after the attempt whatever its outcome. Errors wrap ErrDelivery
// and are not retried.
func Deliver(ctx context.Context, s Sender, p Plan, dir, inlinePrefix, caption string) error {
	if p.Mode == Inline {
		if err := s.SendText(ctx, inlinePrefix+p.Text); err != nil {
			return fmt.Errorf("%w: send text: %w", ErrDelivery, err)
		}
		return nil
	}

	path, err := WriteAttachment(dir, p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer func() { _ = os.Remove(path) }() // best-effort cleanup; the scratch dir goes too

	if err := s.SendDocument(ctx, path, caption); err != nil {
		return fmt.Errorf("%w: send document: %w", ErrDelivery, err)
	}
	return nil
}
