package cli

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	backends       *mockBackendFactory
	bots           *mockBotFactory
	stdout         *syncBuffer
	stderr         *syncBuffer
}

// testEnv creates an Env with every dependency mocked. vars are layered
// over a base environment pointing SCRATCH_DIR at a test directory.
func testEnv(t *testing.T, vars map[string]string) (*Env, *testMocks) {
	t.Helper()

	base := map[string]string{
		config.EnvScratchDir: t.TempDir(),
		config.EnvLogLevel:   "error",
	}
	for k, v := range vars {
		base[k] = v
	}

	m := &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		backends:       &mockBackendFactory{},
		bots:           &mockBotFactory{},
		stdout:         &syncBuffer{},
		stderr:         &syncBuffer{},
	}
	env := &Env{
		Stdout:         m.stdout,
		Stderr:         m.stderr,
		Getenv:         staticEnv(base),
		Now:            fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		FFmpegResolver: m.ffmpegResolver,
		BackendFactory: m.backends,
		BotFactory:     m.bots,
	}
	return env, m
}

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// writeTestWAV writes a 300 Hz tone of duration d as 16 kHz mono WAV.
func writeTestWAV(t *testing.T, d time.Duration) string {
	t.Helper()

	n := int(d * audio.SampleRate / time.Second)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*300*float64(i)/audio.SampleRate))
	}

	path := filepath.Join(t.TempDir(), "input.wav")
	if err := audio.WriteWAV(path, samples); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	return path
}
