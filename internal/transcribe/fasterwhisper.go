package transcribe

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

//go:embed assets/faster_whisper.py
var fasterWhisperScript []byte

// FasterWhisperConfig selects the model the helper loads.
type FasterWhisperConfig struct {
	PythonBin   string
	Model       string
	Device      string
	ComputeType string
	Threads     int
}

// helperProc is a running helper: requests go to stdin, one JSON line each,
// and answers come back on stdout in the same order.
type helperProc struct {
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stop   func() error
}

// startFunc launches a helper. The returned process has not yet reported ready.
type startFunc func() (*helperProc, error)

type helperRequest struct {
	ID        int    `json:"id"`
	Audio     string `json:"audio"`
	Language  string `json:"language,omitempty"`
	BeamSize  int    `json:"beam_size"`
	VADFilter bool   `json:"vad_filter"`
}

type helperResponse struct {
	ID       int     `json:"id"`
	Ready    bool    `json:"ready"`
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

var _ Backend = (*FasterWhisper)(nil)

// FasterWhisper runs a faster-whisper model in a long-lived Python helper.
// The model is loaded once. Calls are serialised; a call abandoned through
// its context kills the helper, and the next call starts a fresh one.
type FasterWhisper struct {
	mu     sync.Mutex
	start  startFunc
	proc   *helperProc
	nextID int
	logger *log.Logger
	script string
}

// FasterWhisperOption configures a FasterWhisper backend.
type FasterWhisperOption func(*FasterWhisper)

// WithHelperLogger sets the logger receiving helper diagnostics.
func WithHelperLogger(l *log.Logger) FasterWhisperOption {
	return func(f *FasterWhisper) {
		if l != nil {
			f.logger = l
		}
	}
}

// withStarter replaces process creation (for testing).
func withStarter(s startFunc) FasterWhisperOption {
	return func(f *FasterWhisper) {
		f.start = s
	}
}

// NewFasterWhisper starts the helper and waits until the model is loaded.
// Any failure here is fatal for the caller: the bot cannot serve without it.
func NewFasterWhisper(ctx context.Context, cfg FasterWhisperConfig, opts ...FasterWhisperOption) (*FasterWhisper, error) {
	f := &FasterWhisper{logger: logging.Discard()}
	for _, opt := range opts {
		opt(f)
	}

	if f.start == nil {
		script, err := writeScript()
		if err != nil {
			return nil, err
		}
		f.script = script
		f.start = f.execStarter(cfg)
	}

	f.logger.Info("loading faster-whisper model", "model", cfg.Model, "device", cfg.Device, "compute_type", cfg.ComputeType)
	if err := f.launch(ctx); err != nil {
		f.removeScript()
		return nil, err
	}
	return f, nil
}

// Name returns the backend name.
func (f *FasterWhisper) Name() string { return "faster-whisper" }

// Transcribe sends one request to the helper and waits for its answer.
func (f *FasterWhisper) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.proc == nil {
		f.logger.Warn("restarting faster-whisper helper")
		if err := f.launch(ctx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
	}

	f.nextID++
	req := helperRequest{
		ID:        f.nextID,
		Audio:     audioPath,
		Language:  lang.BaseCode(opts.Language),
		BeamSize:  opts.BeamSize,
		VADFilter: opts.VADFilter,
	}
	line, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("faster-whisper: %w: %w", ErrTranscriptionFailed, err)
	}
	if _, err := f.proc.stdin.Write(append(line, '\n')); err != nil {
		f.kill()
		return "", fmt.Errorf("faster-whisper: write request: %w: %w", ErrBackendUnavailable, err)
	}

	resp, err := f.await(ctx)
	if err != nil {
		return "", err
	}
	if resp.ID != req.ID {
		f.kill()
		return "", fmt.Errorf("faster-whisper: response id %d for request %d: %w", resp.ID, req.ID, ErrBackendUnavailable)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("faster-whisper: %w: %s", ErrTranscriptionFailed, resp.Error)
	}

	f.logger.Debug("helper answered", "id", resp.ID, "language", resp.Language, "duration", resp.Duration)
	return strings.TrimSpace(resp.Text), nil
}

// Close stops the helper and removes the extracted script.
func (f *FasterWhisper) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.proc != nil {
		_ = f.proc.stdin.Close() // helper exits on EOF
		err = f.proc.stop()
		f.proc = nil
	}
	f.removeScript()
	return err
}

// launch starts a helper and consumes its ready line. Caller holds mu or
// has exclusive access.
func (f *FasterWhisper) launch(ctx context.Context) error {
	proc, err := f.start()
	if err != nil {
		return fmt.Errorf("faster-whisper: start helper: %w: %w", ErrBackendUnavailable, err)
	}
	f.proc = proc

	resp, err := f.await(ctx)
	if err != nil {
		return err
	}
	if !resp.Ready {
		f.kill()
		msg := resp.Error
		if msg == "" {
			msg = "helper did not report ready"
		}
		return fmt.Errorf("faster-whisper: %w: %s", ErrBackendUnavailable, msg)
	}
	return nil
}

// await reads one response line. On ctx expiry or a broken helper the
// process is killed so the next call starts clean.
func (f *FasterWhisper) await(ctx context.Context) (helperResponse, error) {
	type result struct {
		line []byte
		err  error
	}
	out := make(chan result, 1)
	stdout := f.proc.stdout
	go func() {
		line, err := stdout.ReadBytes('\n')
		out <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		f.kill()
		return helperResponse{}, ctx.Err()
	case r := <-out:
		if r.err != nil {
			f.kill()
			if errors.Is(r.err, io.EOF) {
				return helperResponse{}, fmt.Errorf("faster-whisper: helper exited: %w", ErrBackendUnavailable)
			}
			return helperResponse{}, fmt.Errorf("faster-whisper: read response: %w: %w", ErrBackendUnavailable, r.err)
		}
		var resp helperResponse
		if err := json.Unmarshal(r.line, &resp); err != nil {
			f.kill()
			return helperResponse{}, fmt.Errorf("faster-whisper: malformed response: %w: %w", ErrBackendUnavailable, err)
		}
		return resp, nil
	}
}

func (f *FasterWhisper) kill() {
	if f.proc == nil {
		return
	}
	if err := f.proc.stop(); err != nil {
		f.logger.Debug("helper stop", "err", err)
	}
	f.proc = nil
}

func (f *FasterWhisper) removeScript() {
	if f.script == "" {
		return
	}
	if err := os.Remove(f.script); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("failed to remove helper script", "path", f.script, "err", err)
	}
	f.script = ""
}

// writeScript extracts the embedded helper to a temp file.
func writeScript() (string, error) {
	tmp, err := os.CreateTemp("", "faster_whisper-*.py")
	if err != nil {
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if _, err := tmp.Write(fasterWhisperScript); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name()) // best-effort cleanup; original error takes precedence
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	return tmp.Name(), nil
}

// HelperArgs returns the interpreter arguments for the helper script.
func HelperArgs(script string, cfg FasterWhisperConfig) []string {
	args := []string{script, "--model", cfg.Model}
	if cfg.Device != "" {
		args = append(args, "--device", cfg.Device)
	}
	if cfg.ComputeType != "" {
		args = append(args, "--compute-type", cfg.ComputeType)
	}
	if cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(cfg.Threads))
	}
	return args
}

func (f *FasterWhisper) execStarter(cfg FasterWhisperConfig) startFunc {
	python := cfg.PythonBin
	if python == "" {
		python = "python3"
	}
	return func() (*helperProc, error) {
		cmd := exec.Command(python, HelperArgs(f.script, cfg)...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}

		go f.forwardStderr(stderr)

		return &helperProc{
			stdin:  stdin,
			stdout: bufio.NewReader(stdout),
			stop: func() error {
				_ = cmd.Process.Kill()
				err := cmd.Wait()
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return nil // killed or exited on stdin EOF
				}
				return err
			},
		}, nil
	}
}

// forwardStderr copies helper diagnostics into the log at debug level.
func (f *FasterWhisper) forwardStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			f.logger.Debug("faster-whisper", "stderr", line)
		}
	}
}
