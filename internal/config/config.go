// Package config loads the bot configuration from the environment.
//
// Every value has a default except TELEGRAM_TOKEN and the API key of the
// selected cloud backend. Load validates everything at once and reports all
// problems joined, so a misconfigured deployment fails on the first start.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/logging"
)

// Environment variable names.
const (
	EnvTelegramToken      = "TELEGRAM_TOKEN"
	EnvBackend            = "STT_BACKEND"
	EnvWhisperModel       = "WHISPER_MODEL"
	EnvWhisperDevice      = "WHISPER_DEVICE"
	EnvWhisperComputeType = "WHISPER_COMPUTE_TYPE"
	EnvWhisperThreads     = "WHISPER_THREADS"
	EnvPythonBin          = "PYTHON_BIN"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvGroqKey            = "GROQ_API_KEY"
	EnvGoogleKey          = "GOOGLE_API_KEY"
	EnvOpenAIModel        = "OPENAI_MODEL"
	EnvSegmentDuration    = "SEGMENT_DURATION"
	EnvSegmentOverlap     = "SEGMENT_OVERLAP"
	EnvMaxFileSizeMB      = "MAX_FILE_SIZE_MB"
	EnvMaxDuration        = "MAX_DURATION"
	EnvMaxTextLength      = "MAX_TEXT_LENGTH"
	EnvBeamSize           = "BEAM_SIZE"
	EnvLanguage           = "LANGUAGE"
	EnvVADFilter          = "VAD_FILTER"
	EnvChunkTimeout       = "CHUNK_TIMEOUT"
	EnvBackendConcurrency = "BACKEND_CONCURRENCY"
	EnvScratchDir         = "SCRATCH_DIR"
	EnvLogLevel           = "LOG_LEVEL"
	EnvMetricsAddr        = "METRICS_ADDR"
	EnvFFmpegPath         = "FFMPEG_PATH"
)

// Backend names accepted by STT_BACKEND.
const (
	BackendFasterWhisper = "faster-whisper"
	BackendWhisperCpp    = "whispercpp"
	BackendOpenAI        = "openai"
	BackendGroq          = "groq"
	BackendGoogle        = "google"
)

// Backends lists the valid STT_BACKEND values in display order.
var Backends = []string{BackendFasterWhisper, BackendWhisperCpp, BackendOpenAI, BackendGroq, BackendGoogle}

// Defaults.
const (
	DefaultBackend            = BackendFasterWhisper
	DefaultWhisperModel       = "large-v3"
	DefaultWhisperDevice      = "cpu"
	DefaultWhisperComputeType = "int8"
	DefaultPythonBin          = "python3"
	DefaultOpenAIModel        = "whisper-1"
	DefaultSegmentDuration    = 30 * time.Second
	DefaultSegmentOverlap     = 2 * time.Second
	DefaultMaxFileSizeMB      = 50
	DefaultMaxTextLength      = 4096
	DefaultBeamSize           = 5
	DefaultLanguage           = "ru"
	DefaultChunkTimeout       = 5 * time.Minute
	DefaultBackendConcurrency = 1
	DefaultLogLevel           = "info"
)

var (
	// ErrInvalid indicates a configuration value could not be parsed or is out of range.
	ErrInvalid = errors.New("invalid configuration")

	// ErrMissing indicates a required value (token or API key) is not set.
	ErrMissing = errors.New("missing configuration")
)

// Config is the validated runtime configuration.
type Config struct {
	TelegramToken string

	Backend            string
	WhisperModel       string
	WhisperDevice      string
	WhisperComputeType string
	WhisperThreads     int
	PythonBin          string
	OpenAIKey          string
	GroqKey            string
	GoogleKey          string
	OpenAIModel        string

	SegmentDuration time.Duration
	SegmentOverlap  time.Duration
	MaxFileSizeMB   int
	MaxDuration     time.Duration // 0 = unlimited
	MaxTextLength   int
	BeamSize        int
	Language        string
	VADFilter       bool
	ChunkTimeout    time.Duration

	BackendConcurrency int
	ScratchDir         string
	LogLevel           string
	MetricsAddr        string
	FFmpegPath         string
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Backend:            DefaultBackend,
		WhisperModel:       DefaultWhisperModel,
		WhisperDevice:      DefaultWhisperDevice,
		WhisperComputeType: DefaultWhisperComputeType,
		PythonBin:          DefaultPythonBin,
		OpenAIModel:        DefaultOpenAIModel,
		SegmentDuration:    DefaultSegmentDuration,
		SegmentOverlap:     DefaultSegmentOverlap,
		MaxFileSizeMB:      DefaultMaxFileSizeMB,
		MaxTextLength:      DefaultMaxTextLength,
		BeamSize:           DefaultBeamSize,
		Language:           DefaultLanguage,
		VADFilter:          true,
		ChunkTimeout:       DefaultChunkTimeout,
		BackendConcurrency: DefaultBackendConcurrency,
		ScratchDir:         os.TempDir(),
		LogLevel:           DefaultLogLevel,
	}
}

// Load builds a Config from getenv (os.Getenv in production) and validates it.
// Parse and range errors are collected and returned joined.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()
	p := parser{getenv: getenv}

	cfg.TelegramToken = strings.TrimSpace(getenv(EnvTelegramToken))
	p.str(EnvBackend, &cfg.Backend)
	cfg.Backend = strings.ToLower(cfg.Backend)
	p.str(EnvWhisperModel, &cfg.WhisperModel)
	p.str(EnvWhisperDevice, &cfg.WhisperDevice)
	p.str(EnvWhisperComputeType, &cfg.WhisperComputeType)
	p.integer(EnvWhisperThreads, &cfg.WhisperThreads)
	p.str(EnvPythonBin, &cfg.PythonBin)
	p.str(EnvOpenAIKey, &cfg.OpenAIKey)
	p.str(EnvGroqKey, &cfg.GroqKey)
	p.str(EnvGoogleKey, &cfg.GoogleKey)
	p.str(EnvOpenAIModel, &cfg.OpenAIModel)

	p.duration(EnvSegmentDuration, &cfg.SegmentDuration)
	p.duration(EnvSegmentOverlap, &cfg.SegmentOverlap)
	p.integer(EnvMaxFileSizeMB, &cfg.MaxFileSizeMB)
	p.duration(EnvMaxDuration, &cfg.MaxDuration)
	p.integer(EnvMaxTextLength, &cfg.MaxTextLength)
	p.integer(EnvBeamSize, &cfg.BeamSize)
	p.str(EnvLanguage, &cfg.Language)
	p.boolean(EnvVADFilter, &cfg.VADFilter)
	p.duration(EnvChunkTimeout, &cfg.ChunkTimeout)

	p.integer(EnvBackendConcurrency, &cfg.BackendConcurrency)
	p.str(EnvScratchDir, &cfg.ScratchDir)
	cfg.ScratchDir = ExpandPath(cfg.ScratchDir)
	p.str(EnvLogLevel, &cfg.LogLevel)
	p.str(EnvMetricsAddr, &cfg.MetricsAddr)
	p.str(EnvFFmpegPath, &cfg.FFmpegPath)
	cfg.FFmpegPath = ExpandPath(cfg.FFmpegPath)

	if err := errors.Join(append(p.errs, cfg.Validate())...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field rules. It does not require the
// Telegram token; see RequireToken.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid))
	}

	switch c.Backend {
	case BackendFasterWhisper, BackendWhisperCpp:
		if c.WhisperModel == "" {
			invalid("%s must not be empty", EnvWhisperModel)
		}
	case BackendOpenAI:
		if c.OpenAIKey == "" {
			errs = append(errs, fmt.Errorf("%s is required for backend %q: %w", EnvOpenAIKey, c.Backend, ErrMissing))
		}
	case BackendGroq:
		if c.GroqKey == "" {
			errs = append(errs, fmt.Errorf("%s is required for backend %q: %w", EnvGroqKey, c.Backend, ErrMissing))
		}
	case BackendGoogle:
		if c.GoogleKey == "" {
			errs = append(errs, fmt.Errorf("%s is required for backend %q: %w", EnvGoogleKey, c.Backend, ErrMissing))
		}
	default:
		invalid("%s %q (use %s)", EnvBackend, c.Backend, strings.Join(Backends, ", "))
	}

	if c.SegmentDuration <= 0 {
		invalid("%s must be positive, got %v", EnvSegmentDuration, c.SegmentDuration)
	}
	if c.SegmentOverlap < 0 {
		invalid("%s must not be negative, got %v", EnvSegmentOverlap, c.SegmentOverlap)
	}
	if c.SegmentDuration > 0 && c.SegmentOverlap >= c.SegmentDuration {
		invalid("%s (%v) must be shorter than %s (%v)", EnvSegmentOverlap, c.SegmentOverlap, EnvSegmentDuration, c.SegmentDuration)
	}
	if c.MaxFileSizeMB <= 0 {
		invalid("%s must be positive, got %d", EnvMaxFileSizeMB, c.MaxFileSizeMB)
	}
	if c.MaxDuration < 0 {
		invalid("%s must not be negative, got %v", EnvMaxDuration, c.MaxDuration)
	}
	if c.MaxTextLength <= 0 {
		invalid("%s must be positive, got %d", EnvMaxTextLength, c.MaxTextLength)
	}
	if c.BeamSize < 1 {
		invalid("%s must be at least 1, got %d", EnvBeamSize, c.BeamSize)
	}
	if c.WhisperThreads < 0 {
		invalid("%s must not be negative, got %d", EnvWhisperThreads, c.WhisperThreads)
	}
	if c.ChunkTimeout <= 0 {
		invalid("%s must be positive, got %v", EnvChunkTimeout, c.ChunkTimeout)
	}
	if c.BackendConcurrency < 1 {
		invalid("%s must be at least 1, got %d", EnvBackendConcurrency, c.BackendConcurrency)
	}
	if err := lang.Validate(c.Language); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w: %w", EnvLanguage, err, ErrInvalid))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w: %w", EnvLogLevel, err, ErrInvalid))
	}

	return errors.Join(errs...)
}

// RequireToken reports ErrMissing when TELEGRAM_TOKEN is empty.
// Only the serve command needs it.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("%s is required: %w", EnvTelegramToken, ErrMissing)
	}
	return nil
}

// MaxFileSize returns MaxFileSizeMB in bytes.
func (c Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Entry is one line of the effective configuration.
type Entry struct {
	Key   string
	Value string
}

// Entries returns the effective configuration in a stable order with
// secrets redacted, for the config command.
func (c Config) Entries() []Entry {
	return []Entry{
		{EnvTelegramToken, Redact(c.TelegramToken)},
		{EnvBackend, c.Backend},
		{EnvWhisperModel, c.WhisperModel},
		{EnvWhisperDevice, c.WhisperDevice},
		{EnvWhisperComputeType, c.WhisperComputeType},
		{EnvWhisperThreads, strconv.Itoa(c.WhisperThreads)},
		{EnvPythonBin, c.PythonBin},
		{EnvOpenAIKey, Redact(c.OpenAIKey)},
		{EnvGroqKey, Redact(c.GroqKey)},
		{EnvGoogleKey, Redact(c.GoogleKey)},
		{EnvOpenAIModel, c.OpenAIModel},
		{EnvSegmentDuration, c.SegmentDuration.String()},
		{EnvSegmentOverlap, c.SegmentOverlap.String()},
		{EnvMaxFileSizeMB, strconv.Itoa(c.MaxFileSizeMB)},
		{EnvMaxDuration, c.MaxDuration.String()},
		{EnvMaxTextLength, strconv.Itoa(c.MaxTextLength)},
		{EnvBeamSize, strconv.Itoa(c.BeamSize)},
		{EnvLanguage, c.Language},
		{EnvVADFilter, strconv.FormatBool(c.VADFilter)},
		{EnvChunkTimeout, c.ChunkTimeout.String()},
		{EnvBackendConcurrency, strconv.Itoa(c.BackendConcurrency)},
		{EnvScratchDir, c.ScratchDir},
		{EnvLogLevel, c.LogLevel},
		{EnvMetricsAddr, c.MetricsAddr},
		{EnvFFmpegPath, c.FFmpegPath},
	}
}

// Redact hides all but the last four characters of a secret.
func Redact(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}

// ParseDuration accepts Go duration strings ("30s", "1m30s") and bare
// numbers, which are read as seconds ("30", "2.5").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// ValidDir checks that d is a writable directory, creating it if needed.
func ValidDir(d string) error {
	if d == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0o750); err != nil { // #nosec G301 -- scratch dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	f, err := os.CreateTemp(d, ".write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name) // best-effort cleanup
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// parser reads optional variables, keeping the default when unset and
// recording a wrapped ErrInvalid when a value does not parse.
type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %v: %w", key, value, err, ErrInvalid))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}
