package audio

import "math"

// Energy gate parameters for 16 kHz input.
const (
	vadFrame     = SampleRate / 50 // 20 ms
	vadThreshold = 0.01            // RMS on the [-1, 1] scale, about -40 dBFS
	vadPadFrames = 10              // 200 ms kept around detected speech
)

// TrimSilence drops leading and trailing frames whose RMS stays below the
// gate threshold, keeping a short pad around speech. It returns nil when no
// frame crosses the threshold.
func TrimSilence(samples []int16) []int16 {
	first, last := -1, -1
	frames := (len(samples) + vadFrame - 1) / vadFrame
	for i := range frames {
		from := i * vadFrame
		to := min(from+vadFrame, len(samples))
		if rms(samples[from:to]) >= vadThreshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}

	from := max(first-vadPadFrames, 0) * vadFrame
	to := min((last+1+vadPadFrames)*vadFrame, len(samples))
	return samples[from:to]
}

func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
