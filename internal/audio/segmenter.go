package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

// Chunk is one window of the source audio ready for transcription.
type Chunk struct {
	Path     string // WAV chunk file, or the source file itself when Original.
	Index    int    // One-based position in the plan.
	Window          // Time range in the source audio.
	Original bool   // Path is the untouched source; never delete it.
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s", c.Index, format.Span(c.Start, c.End))
}

// ChunkName returns the file name of the chunk at a one-based index.
func ChunkName(index int) string {
	return fmt.Sprintf("chunk_%03d.wav", index)
}

// Segmenter decodes source files and cuts them into overlapping windows.
type Segmenter struct {
	decoder Decoder
	segment time.Duration
	overlap time.Duration
	logger  *log.Logger

	// Injectable dependencies (defaults to OS implementations).
	tempDir tempDirCreator
	statter fileStatter
	creator fileCreator
	files   fileRemover
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SegmenterOption {
	return func(s *Segmenter) { s.logger = l }
}

// WithTempDirCreator sets the temp directory creator.
func WithTempDirCreator(t tempDirCreator) SegmenterOption {
	return func(s *Segmenter) { s.tempDir = t }
}

// WithFileStatter sets the file statter.
func WithFileStatter(f fileStatter) SegmenterOption {
	return func(s *Segmenter) { s.statter = f }
}

// WithFileCreator sets the chunk file creator.
func WithFileCreator(f fileCreator) SegmenterOption {
	return func(s *Segmenter) { s.creator = f }
}

// WithFileRemover sets the file remover.
func WithFileRemover(f fileRemover) SegmenterOption {
	return func(s *Segmenter) { s.files = f }
}

// NewSegmenter creates a Segmenter. The segment/overlap pair is checked up
// front so a bad configuration fails at startup rather than per request.
func NewSegmenter(decoder Decoder, segment, overlap time.Duration, opts ...SegmenterOption) (*Segmenter, error) {
	if _, err := Plan(segment+1, segment, overlap); err != nil {
		return nil, err
	}
	if overlap < 0 {
		overlap = 0
	}

	s := &Segmenter{
		decoder: decoder,
		segment: segment,
		overlap: overlap,
		logger:  logging.Discard(),
		tempDir: osFS{},
		statter: osFS{},
		creator: osFS{},
		files:   osFS{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Plan returns the windows for a source.
func (s *Segmenter) Plan(src *Source) []Window {
	windows, _ := Plan(src.Duration, s.segment, s.overlap) // parameters validated in NewSegmenter
	return windows
}

// Load stats and decodes path. Any decoding problem, including a file
// that decodes to zero samples, wraps ErrDecode.
func (s *Segmenter) Load(ctx context.Context, path string) (*Source, error) {
	info, err := s.statter.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}

	started := time.Now()
	samples, err := s.decoder.Decode(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s: no audio samples", ErrDecode, filepath.Base(path))
	}

	src := &Source{
		Path:     path,
		Size:     info.Size(),
		Duration: SamplesDuration(len(samples)),
		Samples:  samples,
	}
	s.logger.Debug("audio decoded",
		"file", filepath.Base(path),
		"size", format.Size(src.Size),
		"duration", format.Duration(src.Duration),
		"took", time.Since(started).Round(time.Millisecond))
	return src, nil
}

// Split materializes every planned window under a fresh directory in dir.
// A single-window plan reuses the source file and writes nothing.
// If any window fails, the chunks already written are removed and the
// error wraps ErrChunkingFailed. The caller releases the result with
// CleanupChunks.
func (s *Segmenter) Split(ctx context.Context, src *Source, dir string) ([]Chunk, error) {
	windows := s.Plan(src)
	if len(windows) == 1 {
		return []Chunk{{Path: src.Path, Index: 1, Window: windows[0], Original: true}}, nil
	}

	chunkDir, err := s.ChunkDir(dir)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			_ = s.files.RemoveAll(chunkDir) // best-effort cleanup; original error takes precedence
			return nil, err
		}
		chunk, err := s.Extract(src, w, i+1, chunkDir)
		if err != nil {
			_ = s.files.RemoveAll(chunkDir) // best-effort cleanup; original error takes precedence
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ChunkDir creates a private directory for chunk files inside dir.
func (s *Segmenter) ChunkDir(dir string) (string, error) {
	chunkDir, err := s.tempDir.MkdirTemp(dir, "chunks-*")
	if err != nil {
		return "", fmt.Errorf("%w: create chunk directory: %v", ErrChunkingFailed, err)
	}
	return chunkDir, nil
}

// Extract writes the samples of one window as a standalone WAV file named
// after its one-based index.
func (s *Segmenter) Extract(src *Source, w Window, index int, dir string) (Chunk, error) {
	path := filepath.Join(dir, ChunkName(index))

	f, err := s.creator.Create(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: create %s: %v", ErrChunkingFailed, ChunkName(index), err)
	}
	if err := EncodeWAV(f, src.Slice(w)); err != nil {
		_ = f.Close()
		_ = s.files.Remove(path) // best-effort cleanup; original error takes precedence
		return Chunk{}, fmt.Errorf("%w: %s: %v", ErrChunkingFailed, ChunkName(index), err)
	}
	if err := f.Close(); err != nil {
		_ = s.files.Remove(path) // best-effort cleanup; original error takes precedence
		return Chunk{}, fmt.Errorf("%w: close %s: %v", ErrChunkingFailed, ChunkName(index), err)
	}

	return Chunk{Path: path, Index: index, Window: w}, nil
}

// CleanupChunks removes chunk files and their directory. The source file
// of a single-window plan is left alone. Failures are logged, not returned:
// cleanup problems never reach the user.
func (s *Segmenter) CleanupChunks(chunks []Chunk) {
	dirs := make(map[string]struct{})
	for _, c := range chunks {
		if c.Original {
			continue
		}
		s.RemoveChunk(c)
		dirs[filepath.Dir(c.Path)] = struct{}{}
	}
	for d := range dirs {
		s.RemoveChunkDir(d)
	}
}

// RemoveChunk deletes one chunk file as soon as it is no longer needed.
// A missing file is fine; the source of an Original chunk is never touched.
func (s *Segmenter) RemoveChunk(c Chunk) {
	if c.Original || c.Path == "" {
		return
	}
	if err := s.files.Remove(c.Path); err != nil && !isNotExist(err) {
		s.logger.Warn("remove chunk failed", "path", c.Path, "err", err)
	}
}

// RemoveChunkDir deletes a directory returned by ChunkDir with its content.
func (s *Segmenter) RemoveChunkDir(dir string) {
	if dir == "" {
		return
	}
	if err := s.files.RemoveAll(dir); err != nil {
		s.logger.Warn("remove chunk directory failed", "dir", dir, "err", err)
	}
}
