package pipeline_test

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
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/pipeline"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/transcribe"
)

const sec = time.Second

// writeTone writes a 16 kHz mono WAV of duration d into dir.
func writeTone(t *testing.T, dir, name string, d time.Duration) string {
	t.Helper()

	n := int(d * audio.SampleRate / time.Second)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*220*float64(i)/audio.SampleRate))
	}
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, samples); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	return path
}

// call is one observed Transcribe invocation.
type call struct {
	path    string
	existed bool
	samples int
}

// scripted answers call i (0-based) with texts[i] / errs[i].
// When block[i] is set the call waits for its context instead.
type scripted struct {
	texts []string
	errs  []error
	block map[int]bool

	mu    sync.Mutex
	calls []call
}

func (s *scripted) Transcribe(ctx context.Context, path string, _ transcribe.Options) (string, error) {
	c := call{path: path}
	if _, err := os.Stat(path); err == nil {
		c.existed = true
		if samples, err := (audio.WAVDecoder{}).Decode(ctx, path); err == nil {
			c.samples = len(samples)
		}
	}

	s.mu.Lock()
	i := len(s.calls)
	s.calls = append(s.calls, c)
	s.mu.Unlock()

	if s.block[i] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.texts) {
		return s.texts[i], nil
	}
	return "", nil
}

func (s *scripted) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func newRequest(t *testing.T) *pipeline.Request {
	t.Helper()
	req, err := pipeline.NewRequest(t.TempDir(), 42, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	t.Cleanup(req.Close)
	return req
}

func newPipeline(t *testing.T, tr transcribe.Transcriber, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	return newPipelineWith(t, tr, nil, opts...)
}

func newPipelineWith(t *testing.T, tr transcribe.Transcriber, segOpts []audio.SegmenterOption, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	seg, err := audio.NewSegmenter(audio.NewChainDecoder(), 30*sec, 2*sec, segOpts...)
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	return pipeline.New(seg, tr, opts...)
}

// entries lists names directly under dir.
func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

// failingCreator fails the failAt-th Create (1-based).
type failingCreator struct {
	failAt int
	n      int
}

func (c *failingCreator) Create(name string) (*os.File, error) {
	c.n++
	if c.n == c.failAt {
		return nil, errors.New("no space left on device")
	}
	return os.Create(name)
}

var errUnavailable = errors.Join(transcribe.ErrBackendUnavailable, errors.New("503"))
