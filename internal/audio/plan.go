package audio

import (
	"fmt"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
)

// Window is a half-open time range [Start, End) of the source audio.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End - w.Start
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return format.Span(w.Start, w.End)
}

// Plan computes the ordered windows covering an audio of the given duration.
//
// Audio no longer than segment yields the single window [0, duration).
// Otherwise consecutive windows start segment-overlap apart, each is at most
// segment long, and the last one ends exactly at duration:
//
//	n       = ceil((duration - overlap) / (segment - overlap))
//	start_i = i * (segment - overlap)
//	end_i   = min(start_i + segment, duration)
//
// A negative overlap is treated as zero. It is an error for overlap to be
// equal to or longer than segment since the windows would never advance.
func Plan(duration, segment, overlap time.Duration) ([]Window, error) {
	if segment <= 0 {
		return nil, fmt.Errorf("%w: segment %v", ErrInvalidOverlap, segment)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= segment {
		return nil, fmt.Errorf("%w: overlap %v >= segment %v", ErrInvalidOverlap, overlap, segment)
	}
	if duration <= 0 {
		return nil, nil
	}
	if duration <= segment {
		return []Window{{Start: 0, End: duration}}, nil
	}

	step := segment - overlap
	n := int((duration - overlap + step - 1) / step)

	windows := make([]Window, 0, n)
	for i := range n {
		start := time.Duration(i) * step
		end := min(start+segment, duration)
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows, nil
}
