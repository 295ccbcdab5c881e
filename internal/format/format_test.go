package format_test

// Notes:
// - Negative durations clamp to zero; a window start can never be negative
//   but a clock skew in a log line should not print "-1:-5".

import (
	"testing"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
)

// ---------------------------------------------------------------------------
// TestDuration - HH:MM:SS or MM:SS
// ---------------------------------------------------------------------------

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{name: "zero", input: 0, want: "00:00"},
		{name: "negative clamps", input: -5 * time.Second, want: "00:00"},
		{name: "voice note", input: 7 * time.Second, want: "00:07"},
		{name: "boundary: 59 seconds", input: 59 * time.Second, want: "00:59"},
		{name: "sub-second truncates", input: 65*time.Second + 900*time.Millisecond, want: "01:05"},
		{name: "boundary: 59:59", input: 59*time.Minute + 59*time.Second, want: "59:59"},
		{name: "boundary: 1 hour", input: time.Hour, want: "01:00:00"},
		{name: "lecture", input: 2*time.Hour + 15*time.Minute + 45*time.Second, want: "02:15:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Duration(tt.input); got != tt.want {
				t.Errorf("Duration(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSpan(t *testing.T) {
	t.Parallel()

	got := format.Span(28*time.Second, 58*time.Second)
	if want := "00:28-00:58"; got != want {
		t.Errorf("Span() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestSize - bytes, KB, MB
// ---------------------------------------------------------------------------

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{name: "zero", input: 0, want: "0 bytes"},
		{name: "boundary: 1023", input: 1023, want: "1023 bytes"},
		{name: "boundary: 1 KB", input: 1024, want: "1 KB"},
		{name: "just under 1 MB", input: 1024*1024 - 1, want: "1023 KB"},
		{name: "boundary: 1 MB", input: 1024 * 1024, want: "1 MB"},
		{name: "fractional MB", input: 1024*1024 + 512*1024, want: "1.5 MB"},
		{name: "telegram cap", input: 20 * 1024 * 1024, want: "20 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Size(tt.input); got != tt.want {
				t.Errorf("Size(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMB(t *testing.T) {
	t.Parallel()

	if got := format.MB(50); got != 50*1024*1024 {
		t.Errorf("MB(50) = %d, want %d", got, 50*1024*1024)
	}
}
