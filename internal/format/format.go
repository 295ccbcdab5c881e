// Package format renders durations and sizes for bot replies and log lines.
package format

import (
	"fmt"
	"time"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Span formats a segment window as "MM:SS-MM:SS".
func Span(start, end time.Duration) string {
	return Duration(start) + "-" + Duration(end)
}

// Size formats a size in bytes for human display.
// Uses MB with one decimal for sizes >= 1MB, KB otherwise.
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case bytes >= mb:
		whole := bytes / mb
		tenth := (bytes % mb) * 10 / mb
		if tenth == 0 {
			return fmt.Sprintf("%d MB", whole)
		}
		return fmt.Sprintf("%d.%d MB", whole, tenth)
	case bytes >= kb:
		return fmt.Sprintf("%d KB", bytes/kb)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// MB converts a megabyte count to bytes.
func MB(n int) int64 {
	return int64(n) * 1024 * 1024
}
