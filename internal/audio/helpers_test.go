package audio_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
)

// tone returns a 440 Hz sine of the given duration at 16 kHz.
func tone(d time.Duration, amplitude float64) []int16 {
	n := int(d * audio.SampleRate / time.Second)
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate))
	}
	return out
}

// writeSource writes a placeholder input file; the fake decoder ignores its content.
func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("OggS placeholder"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

// fakeDecoder returns fixed samples or an error.
type fakeDecoder struct {
	samples []int16
	err     error

	mu    sync.Mutex
	calls []string
}

func (f *fakeDecoder) Decode(_ context.Context, path string) ([]int16, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	return f.samples, f.err
}

// failingCreator creates real files until failAt (1-based), then errors.
type failingCreator struct {
	failAt int
	n      int
}

func (c *failingCreator) Create(name string) (*os.File, error) {
	c.n++
	if c.n == c.failAt {
		return nil, errors.New("disk full")
	}
	return os.Create(name)
}

// recordingRemover removes for real and remembers what it was asked to remove.
type recordingRemover struct {
	mu       sync.Mutex
	removed  []string
	failWith error
}

func (r *recordingRemover) Remove(name string) error {
	r.mu.Lock()
	r.removed = append(r.removed, name)
	r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	return os.Remove(name)
}

func (r *recordingRemover) RemoveAll(path string) error {
	r.mu.Lock()
	r.removed = append(r.removed, path)
	r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	return os.RemoveAll(path)
}

// countFiles returns the number of regular files under dir.
func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return n
}
