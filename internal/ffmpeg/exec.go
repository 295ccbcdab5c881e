package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// SampleRate is the rate every speech backend expects.
const SampleRate = 16000

// minMajorVersion is the oldest ffmpeg known to handle Telegram's Opus notes.
const minMajorVersion = 4

// maxStderr bounds how much ffmpeg diagnostics end up in an error message.
const maxStderr = 512

// runFn runs a command and returns stdout and stderr separately.
type runFn func(ctx context.Context, path string, args []string) (stdout []byte, stderr string, err error)

// Executor runs ffmpeg with an injectable process runner.
type Executor struct {
	path string
	run  runFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRun sets a custom process runner (for testing).
func WithRun(fn runFn) ExecutorOption {
	return func(e *Executor) { e.run = fn }
}

// NewExecutor creates an Executor for the binary at path.
func NewExecutor(path string, opts ...ExecutorOption) *Executor {
	e := &Executor{path: path, run: defaultRun}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the binary this executor runs.
func (e *Executor) Path() string { return e.path }

// DecodePCM converts any input ffmpeg understands into raw signed 16-bit
// little-endian mono samples at SampleRate, read from stdout.
func (e *Executor) DecodePCM(ctx context.Context, input string) ([]byte, error) {
	stdout, stderr, err := e.run(ctx, e.path, DecodeArgs(input))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrFailed, err, tail(stderr))
	}
	return stdout, nil
}

// DecodeArgs builds the argument list for DecodePCM.
func DecodeArgs(input string) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", "1",
		"pipe:1",
	}
}

// CheckVersion logs a warning when ffmpeg is older than minMajorVersion.
// Returns the parsed major version, or 0 when it could not be determined.
func (e *Executor) CheckVersion(ctx context.Context, logger *log.Logger) int {
	stdout, _, err := e.run(ctx, e.path, []string{"-version"})
	if err != nil && len(stdout) == 0 {
		return 0
	}
	major := parseMajor(string(stdout))
	if major > 0 && major < minMajorVersion {
		logger.Warn("ffmpeg is older than recommended", "version", major, "recommended", minMajorVersion)
	}
	return major
}

// parseMajor extracts the major version from "ffmpeg version 6.1.1 ..." or
// "ffmpeg version n6.1.1 ...".
func parseMajor(output string) int {
	line, _, _ := strings.Cut(output, "\n")
	var major int
	if _, err := fmt.Sscanf(line, "ffmpeg version %d", &major); err == nil {
		return major
	}
	if _, err := fmt.Sscanf(line, "ffmpeg version n%d", &major); err == nil {
		return major
	}
	return 0
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return "..." + s[len(s)-maxStderr:]
	}
	return s
}

func defaultRun(ctx context.Context, path string, args []string) ([]byte, string, error) {
	// #nosec G204 -- path comes from Resolve, args are built by this package
	cmd := exec.CommandContext(ctx, path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}
