package bot_test

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/bot"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
)

// fakeChat records everything the handler says.
type fakeChat struct {
	mu       sync.Mutex
	replies  []string
	edits    []string
	texts    []string
	docs     []string // captions
	docBody  string
	replyErr error
	docErr   error
	nextID   int
}

func (f *fakeChat) Reply(_ context.Context, text string) (bot.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return bot.MessageRef{}, f.replyErr
	}
	f.nextID++
	f.replies = append(f.replies, text)
	return bot.MessageRef{ChatID: 1, ID: f.nextID}, nil
}

func (f *fakeChat) Edit(_ context.Context, _ bot.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeChat) SendText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeChat) SendDocument(_ context.Context, path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, err := os.ReadFile(path); err == nil {
		f.docBody = string(b)
	}
	f.docs = append(f.docs, caption)
	return f.docErr
}

func (f *fakeChat) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

// fakeDownloader writes content to dst, or fails.
type fakeDownloader struct {
	content []byte
	err     error
	calls   int
	dst     string
}

func (d *fakeDownloader) Download(_ context.Context, _ bot.Attachment, dst string) error {
	d.calls++
	d.dst = dst
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(dst, d.content, 0o600)
}

// fakeRunner returns a fixed result and reports progress for total chunks.
type fakeRunner struct {
	res      pipeline.Result
	err      error
	progress int
	panicked bool

	sawFile bool
	reqDir  string
}

func (r *fakeRunner) Run(_ context.Context, req *pipeline.Request, path string, progress pipeline.ProgressFunc) (pipeline.Result, error) {
	if r.panicked {
		panic("decoder exploded")
	}
	r.reqDir = req.Dir
	if _, err := os.Stat(path); err == nil {
		r.sawFile = true
	}
	for i := 0; i <= r.progress && r.progress > 1; i++ {
		progress(i, r.progress)
	}
	return r.res, r.err
}

var errBoom = errors.New("boom")
