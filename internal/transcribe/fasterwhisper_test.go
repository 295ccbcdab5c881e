package transcribe_test

// Notes:
// - The Python helper is replaced by an in-memory pipe pair (see WithFakeHelper),
//   so these tests exercise the JSON-lines protocol and restart logic only.
// - A blocked helper is released at cleanup so no goroutine outlives the test.

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

const ready = `{"ready":true}`

func answer(req transcribe.HelperRequest, text string) string {
	b, _ := json.Marshal(map[string]any{"id": req.ID, "text": text, "language": "ru", "duration": 1.5})
	return string(b)
}

func newFasterWhisper(t *testing.T, fake transcribe.FakeHelper, starts *atomic.Int32) *transcribe.FasterWhisper {
	t.Helper()

	fw, err := transcribe.NewFasterWhisper(context.Background(),
		transcribe.FasterWhisperConfig{Model: "tiny"},
		transcribe.WithFakeHelper(fake, starts))
	if err != nil {
		t.Fatalf("NewFasterWhisper: %v", err)
	}
	t.Cleanup(func() { _ = fw.Close() })
	return fw
}

// ---------------------------------------------------------------------------
// TestNewFasterWhisper - startup
// ---------------------------------------------------------------------------

func TestNewFasterWhisper(t *testing.T) {
	t.Parallel()

	t.Run("model load failure is fatal", func(t *testing.T) {
		t.Parallel()

		_, err := transcribe.NewFasterWhisper(context.Background(),
			transcribe.FasterWhisperConfig{Model: "nope"},
			transcribe.WithFakeHelper(transcribe.FakeHelper{
				Ready:   `{"ready":false,"error":"load model: not found"}`,
				Respond: func(transcribe.HelperRequest) string { return "" },
			}, nil))
		if !errors.Is(err, transcribe.ErrBackendUnavailable) {
			t.Errorf("error = %v, want ErrBackendUnavailable", err)
		}
	})

	t.Run("process start failure", func(t *testing.T) {
		t.Parallel()

		_, err := transcribe.NewFasterWhisper(context.Background(),
			transcribe.FasterWhisperConfig{Model: "tiny"},
			transcribe.WithFailingStarter(errors.New("python3: not found")))
		if !errors.Is(err, transcribe.ErrBackendUnavailable) {
			t.Errorf("error = %v, want ErrBackendUnavailable", err)
		}
	})

	t.Run("malformed ready line", func(t *testing.T) {
		t.Parallel()

		_, err := transcribe.NewFasterWhisper(context.Background(),
			transcribe.FasterWhisperConfig{Model: "tiny"},
			transcribe.WithFakeHelper(transcribe.FakeHelper{
				Ready:   "Traceback (most recent call last):",
				Respond: func(transcribe.HelperRequest) string { return "" },
			}, nil))
		if !errors.Is(err, transcribe.ErrBackendUnavailable) {
			t.Errorf("error = %v, want ErrBackendUnavailable", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestFasterWhisper_Transcribe
// ---------------------------------------------------------------------------

func TestFasterWhisper_Transcribe(t *testing.T) {
	t.Parallel()

	t.Run("request carries options", func(t *testing.T) {
		t.Parallel()

		var got transcribe.HelperRequest
		fw := newFasterWhisper(t, transcribe.FakeHelper{
			Ready: ready,
			Respond: func(req transcribe.HelperRequest) string {
				got = req
				return answer(req, "  добрый день ")
			},
		}, nil)

		text, err := fw.Transcribe(context.Background(), "/tmp/chunk_000.wav",
			transcribe.Options{Language: "ru-RU", BeamSize: 5, VADFilter: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "добрый день" {
			t.Errorf("text = %q, want %q", text, "добрый день")
		}
		want := transcribe.HelperRequest{ID: 1, Audio: "/tmp/chunk_000.wav", Language: "ru", BeamSize: 5, VADFilter: true}
		if got != want {
			t.Errorf("request = %+v, want %+v", got, want)
		}
	})

	t.Run("empty text is no speech", func(t *testing.T) {
		t.Parallel()

		fw := newFasterWhisper(t, transcribe.FakeHelper{
			Ready:   ready,
			Respond: func(req transcribe.HelperRequest) string { return answer(req, "") },
		}, nil)

		text, err := fw.Transcribe(context.Background(), "a.wav", transcribe.Options{})
		if err != nil || text != "" {
			t.Errorf("got (%q, %v), want empty and nil", text, err)
		}
	})

	t.Run("helper error is transcription failure", func(t *testing.T) {
		t.Parallel()

		fw := newFasterWhisper(t, transcribe.FakeHelper{
			Ready: ready,
			Respond: func(req transcribe.HelperRequest) string {
				b, _ := json.Marshal(map[string]any{"id": req.ID, "error": "Invalid data found"})
				return string(b)
			},
		}, nil)

		_, err := fw.Transcribe(context.Background(), "a.wav", transcribe.Options{})
		if !errors.Is(err, transcribe.ErrTranscriptionFailed) {
			t.Errorf("error = %v, want ErrTranscriptionFailed", err)
		}
	})

	t.Run("helper crash then lazy restart", func(t *testing.T) {
		t.Parallel()

		var starts, calls atomic.Int32
		fw := newFasterWhisper(t, transcribe.FakeHelper{
			Ready: ready,
			Respond: func(req transcribe.HelperRequest) string {
				if calls.Add(1) == 1 {
					return "" // exit without answering
				}
				return answer(req, "ok")
			},
		}, &starts)

		_, err := fw.Transcribe(context.Background(), "a.wav", transcribe.Options{})
		if !errors.Is(err, transcribe.ErrBackendUnavailable) {
			t.Fatalf("first call error = %v, want ErrBackendUnavailable", err)
		}

		text, err := fw.Transcribe(context.Background(), "b.wav", transcribe.Options{})
		if err != nil {
			t.Fatalf("second call: %v", err)
		}
		if text != "ok" {
			t.Errorf("text = %q, want %q", text, "ok")
		}
		if starts.Load() != 2 {
			t.Errorf("starts = %d, want 2", starts.Load())
		}
	})

	t.Run("timeout kills the helper", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		t.Cleanup(func() { close(release) })

		var starts, calls atomic.Int32
		fw := newFasterWhisper(t, transcribe.FakeHelper{
			Ready: ready,
			Respond: func(req transcribe.HelperRequest) string {
				if calls.Add(1) == 1 {
					<-release
				}
				return answer(req, "after restart")
			},
		}, &starts)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := fw.Transcribe(ctx, "slow.wav", transcribe.Options{})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("error = %v, want context.DeadlineExceeded", err)
		}

		text, err := fw.Transcribe(context.Background(), "next.wav", transcribe.Options{})
		if err != nil {
			t.Fatalf("call after timeout: %v", err)
		}
		if text != "after restart" {
			t.Errorf("text = %q", text)
		}
		if starts.Load() != 2 {
			t.Errorf("starts = %d, want 2", starts.Load())
		}
	})

	t.Run("cancelled before call", func(t *testing.T) {
		t.Parallel()

		fw := newFasterWhisper(t, transcribe.FakeHelper{
			Ready:   ready,
			Respond: func(req transcribe.HelperRequest) string { return answer(req, "x") },
		}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := fw.Transcribe(ctx, "a.wav", transcribe.Options{}); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestHelperArgs
// ---------------------------------------------------------------------------

func TestHelperArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  transcribe.FasterWhisperConfig
		want []string
	}{
		{
			"full",
			transcribe.FasterWhisperConfig{Model: "large-v3", Device: "cuda", ComputeType: "float16", Threads: 4},
			[]string{"fw.py", "--model", "large-v3", "--device", "cuda", "--compute-type", "float16", "--threads", "4"},
		},
		{
			"model only",
			transcribe.FasterWhisperConfig{Model: "small"},
			[]string{"fw.py", "--model", "small"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := transcribe.HelperArgs("fw.py", tt.cfg); !slices.Equal(got, tt.want) {
				t.Errorf("HelperArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}
