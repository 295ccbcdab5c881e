// Package logging builds the charmbracelet logger shared by every component.
// Loggers are passed explicitly; there is no package-level instance.
package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrInvalidLevel indicates LOG_LEVEL is not one of debug, info, warn, error.
var ErrInvalidLevel = errors.New("invalid log level")

// TimeFormat is used for every log line timestamp.
const TimeFormat = "2006-01-02 15:04:05"

// PreviewLen caps how much raw transcript text reaches debug logs.
const PreviewLen = 500

// ParseLevel maps a LOG_LEVEL value to a charmbracelet level.
// "warning" is accepted as an alias of "warn".
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("%w: %q (use debug, info, warn, error)", ErrInvalidLevel, s)
}

// New creates a timestamped logger writing to w at the given level.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           lvl,
	})
	return logger, nil
}

// Discard returns a logger that drops everything; used by tests and as
// the zero-value fallback of components that accept an optional logger.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Preview shortens text to PreviewLen runes for debug output.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLen {
		return text
	}
	return string(runes[:PreviewLen]) + "..."
}
