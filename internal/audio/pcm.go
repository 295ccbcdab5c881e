package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/zeozeozeo/gomplerate"
)

// SampleRate is the rate of every decoded Source: 16 kHz mono, as speech
// models expect.
const SampleRate = 16000

// Source is a decoded input file owned by a single request.
type Source struct {
	Path     string        // Original file as received.
	Size     int64         // Size in bytes of the original file.
	Duration time.Duration // Derived from the decoded sample count.
	Samples  []int16       // 16 kHz mono signed 16-bit PCM.
}

// SamplesDuration converts a sample count at SampleRate to a duration.
func SamplesDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}

// sampleOffset converts a time offset to a sample index at SampleRate.
func sampleOffset(d time.Duration) int {
	return int(int64(d) * SampleRate / int64(time.Second))
}

// Slice returns the samples covered by w, clamped to the available data.
func (s *Source) Slice(w Window) []int16 {
	from := min(max(sampleOffset(w.Start), 0), len(s.Samples))
	to := min(max(sampleOffset(w.End), from), len(s.Samples))
	return s.Samples[from:to]
}

// Float32 converts int16 samples to float32 normalized to [-1, 1].
func Float32(samples []int16) []float32 {
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s) / 32768.0
	}
	return result
}

// bytesToInt16 reads little-endian signed 16-bit samples.
func bytesToInt16(buf []byte) []int16 {
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:])) // #nosec G115 -- reinterpreting PCM bits
	}
	return samples
}

// toMono averages interleaved channels.
func toMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}

	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int32
		for ch := range channels {
			sum += int32(samples[i*channels+ch])
		}
		mono[i] = int16(sum / int32(channels)) // #nosec G115 -- average stays within int16
	}
	return mono
}

// resample converts mono samples between rates with gomplerate.
func resample(samples []int16, fromRate, toRate int) ([]int16, error) {
	if fromRate == toRate || len(samples) == 0 {
		return samples, nil
	}
	r, err := gomplerate.NewResampler(1, fromRate, toRate)
	if err != nil {
		return nil, fmt.Errorf("create resampler %d->%d Hz: %w", fromRate, toRate, err)
	}
	return r.ResampleInt16(samples), nil
}

// normalize downmixes and resamples raw PCM to the Source format.
func normalize(samples []int16, rate, channels int) ([]int16, error) {
	return resample(toMono(samples, channels), rate, SampleRate)
}

// WriteWAV encodes samples as a 16 kHz mono 16-bit PCM WAV file at path.
// The file is synced before it is closed.
func WriteWAV(path string, samples []int16) error {
	// #nosec G304 -- callers pass paths inside their own scratch directories
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, samples); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeWAV writes a 16 kHz mono 16-bit PCM WAV stream to ws.
func EncodeWAV(ws io.WriteSeeker, samples []int16) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(ws, SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
