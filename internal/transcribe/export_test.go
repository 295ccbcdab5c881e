package transcribe

import (
	"bufio"
	"encoding/json"
	"io"
	"sync/atomic"
)

// Exports for black-box tests.
var (
	WithAudioClient     = withAudioClient
	ClassifyOpenAIError = classifyOpenAIError
	GoogleEncoding      = googleEncoding
)

type (
	AudioTranscriber = audioTranscriber
	HelperRequest    = helperRequest
)

// FakeHelper scripts an in-memory helper process.
// Ready is the first line written. Respond maps each request to a response
// line; returning "" makes the helper exit without answering.
type FakeHelper struct {
	Ready   string
	Respond func(req HelperRequest) string
}

// WithFakeHelper replaces the Python process with f and counts starts.
func WithFakeHelper(f FakeHelper, starts *atomic.Int32) FasterWhisperOption {
	return withStarter(func() (*helperProc, error) {
		if starts != nil {
			starts.Add(1)
		}
		inR, inW := io.Pipe()
		outR, outW := io.Pipe()

		go func() {
			defer outW.Close()
			if _, err := io.WriteString(outW, f.Ready+"\n"); err != nil {
				return
			}
			sc := bufio.NewScanner(inR)
			for sc.Scan() {
				var req helperRequest
				_ = json.Unmarshal(sc.Bytes(), &req)
				resp := f.Respond(req)
				if resp == "" {
					return
				}
				if _, err := io.WriteString(outW, resp+"\n"); err != nil {
					return
				}
			}
		}()

		return &helperProc{
			stdin:  inW,
			stdout: bufio.NewReader(outR),
			stop: func() error {
				_ = inW.Close()
				_ = outR.Close()
				return nil
			},
		}, nil
	})
}

// WithFailingStarter makes every helper start fail with err.
func WithFailingStarter(err error) FasterWhisperOption {
	return withStarter(func() (*helperProc, error) { return nil, err })
}
