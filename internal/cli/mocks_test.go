package cli

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/bot"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/ffmpeg"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

// mockFFmpegResolver reports ffmpeg as missing unless ResolveFunc says otherwise.
type mockFFmpegResolver struct {
	ResolveFunc func(configured string) (string, error)

	mu            sync.Mutex
	resolveCalls  int
	versionChecks int
}

func (m *mockFFmpegResolver) Resolve(configured string) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(configured)
	}
	return "", ffmpeg.ErrNotFound
}

func (m *mockFFmpegResolver) CheckVersion(context.Context, string, *log.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versionChecks++
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock BackendFactory + Backend
// ---------------------------------------------------------------------------

// mockBackend answers chunk n (one-based) with texts[n-1] or errs[n-1].
type mockBackend struct {
	texts []string
	errs  []error

	mu     sync.Mutex
	calls  int
	closed bool
}

func (b *mockBackend) Transcribe(_ context.Context, _ string, _ transcribe.Options) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	i := b.calls - 1
	if i < len(b.errs) && b.errs[i] != nil {
		return "", b.errs[i]
	}
	if i < len(b.texts) {
		return b.texts[i], nil
	}
	return "", nil
}

func (b *mockBackend) Name() string { return "mock" }

func (b *mockBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *mockBackend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *mockBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

var _ transcribe.Backend = (*mockBackend)(nil)

type mockBackendFactory struct {
	backend *mockBackend
	err     error

	mu     sync.Mutex
	gotCfg config.Config
	calls  int
}

func (f *mockBackendFactory) NewBackend(_ context.Context, cfg config.Config, _ audio.Decoder, _ *log.Logger) (transcribe.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	if f.backend == nil {
		f.backend = &mockBackend{}
	}
	return f.backend, nil
}

// ---------------------------------------------------------------------------
// Mock BotFactory + Bot
// ---------------------------------------------------------------------------

type nopDownloader struct{}

func (nopDownloader) Download(context.Context, bot.Attachment, string) error { return nil }

// mockBot blocks in Run until ctx is done, like a long-polling bot.
type mockBot struct {
	RunFunc func(ctx context.Context, h *bot.Handler) error

	mu      sync.Mutex
	handler *bot.Handler
}

func (b *mockBot) Downloader() bot.Downloader { return nopDownloader{} }

func (b *mockBot) Run(ctx context.Context, h *bot.Handler) error {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()

	if b.RunFunc != nil {
		return b.RunFunc(ctx, h)
	}
	<-ctx.Done()
	return nil
}

func (b *mockBot) Handler() *bot.Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler
}

type mockBotFactory struct {
	bot *mockBot
	err error

	mu       sync.Mutex
	gotToken string
}

func (f *mockBotFactory) NewBot(token string, _ *log.Logger) (Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotToken = token
	if f.err != nil {
		return nil, f.err
	}
	if f.bot == nil {
		f.bot = &mockBot{}
	}
	return f.bot, nil
}

func (f *mockBotFactory) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotToken
}
