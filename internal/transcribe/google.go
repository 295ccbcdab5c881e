package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/pion/opus/pkg/oggreader"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/apierr"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/audio"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
)

// GoogleEndpoint is the Speech-to-Text v1 synchronous recognition URL.
const GoogleEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// defaultOggRate is assumed when an Ogg header cannot be read.
// Telegram voice notes are 48 kHz Opus.
const defaultOggRate = 48000

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Backend = (*GoogleTranscriber)(nil)

// GoogleTranscriber calls Google Cloud Speech-to-Text with an API key.
// Ogg/Opus, WAV, MP3 and FLAC are sent as-is. Other containers are decoded
// and sent as 16 kHz LINEAR16 when a decoder is configured.
type GoogleTranscriber struct {
	apiKey   string
	endpoint string
	client   httpDoer
	decoder  audio.Decoder
	retry    apierr.RetryConfig
}

// GoogleOption configures a GoogleTranscriber.
type GoogleOption func(*GoogleTranscriber)

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(c httpDoer) GoogleOption {
	return func(g *GoogleTranscriber) {
		g.client = c
	}
}

// WithGoogleEndpoint overrides the recognition URL.
func WithGoogleEndpoint(endpoint string) GoogleOption {
	return func(g *GoogleTranscriber) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

// WithGoogleDecoder enables conversion of containers Google cannot read.
func WithGoogleDecoder(d audio.Decoder) GoogleOption {
	return func(g *GoogleTranscriber) {
		g.decoder = d
	}
}

// WithGoogleRetry overrides the retry policy.
func WithGoogleRetry(cfg apierr.RetryConfig) GoogleOption {
	return func(g *GoogleTranscriber) {
		g.retry = cfg
	}
}

// NewGoogle returns a Google Speech-to-Text transcriber.
func NewGoogle(apiKey string, opts ...GoogleOption) *GoogleTranscriber {
	g := &GoogleTranscriber{
		apiKey:   apiKey,
		endpoint: GoogleEndpoint,
		client:   &http.Client{Timeout: 5 * time.Minute},
		retry:    apierr.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the backend name.
func (g *GoogleTranscriber) Name() string { return "google" }

// Close is a no-op.
func (g *GoogleTranscriber) Close() error { return nil }

type googleConfig struct {
	Encoding                   string `json:"encoding"`
	LanguageCode               string `json:"languageCode"`
	Model                      string `json:"model"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	SampleRateHertz            int    `json:"sampleRateHertz,omitempty"`
}

type googleRequest struct {
	Config googleConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe sends the whole file in one synchronous request.
// An empty results list means no speech was detected.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	body, err := g.buildRequest(ctx, audioPath, opts)
	if err != nil {
		return "", fmt.Errorf("google: %w: %w", ErrTranscriptionFailed, err)
	}

	text, err := apierr.RetryWithBackoff(ctx, g.retry,
		func() (string, error) { return g.post(ctx, body) },
		apierr.IsTransient,
	)
	if err != nil {
		return "", wrapAPIError("google", err)
	}
	return text, nil
}

func (g *GoogleTranscriber) buildRequest(ctx context.Context, audioPath string, opts Options) ([]byte, error) {
	encoding, rate, ok := googleEncoding(audioPath)
	var data []byte
	var err error
	if ok {
		data, err = os.ReadFile(audioPath)
	} else {
		encoding, rate = "LINEAR16", audio.SampleRate
		data, err = g.convert(ctx, audioPath)
	}
	if err != nil {
		return nil, err
	}

	var req googleRequest
	req.Config = googleConfig{
		Encoding:                   encoding,
		LanguageCode:               lang.GoogleCode(opts.Language),
		Model:                      "default",
		EnableAutomaticPunctuation: true,
		SampleRateHertz:            rate,
	}
	req.Audio.Content = base64.StdEncoding.EncodeToString(data)

	return json.Marshal(req)
}

// googleEncoding picks the request encoding from the file extension.
// ok is false when Google cannot read the container directly.
func googleEncoding(path string) (encoding string, rate int, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg", ".oga", ".opus":
		rate = oggSampleRate(path)
		if rate == 0 {
			rate = defaultOggRate
		}
		return "OGG_OPUS", rate, true
	case ".wav", ".wave":
		return "LINEAR16", wavSampleRate(path), true
	case ".mp3":
		return "MP3", 0, true
	case ".flac":
		return "FLAC", 0, true
	}
	return "", 0, false
}

// oggSampleRate reads the input rate from an Ogg/Opus header, or 0.
func oggSampleRate(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	_, header, err := oggreader.NewWith(f)
	if err != nil {
		return 0
	}
	return int(header.SampleRate)
}

// wavSampleRate reads the rate from a RIFF header, or 0 to let Google read it.
func wavSampleRate(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if d.Err() != nil {
		return 0
	}
	return int(d.SampleRate)
}

// convert decodes the file to 16 kHz mono PCM and returns it as a WAV image.
func (g *GoogleTranscriber) convert(ctx context.Context, audioPath string) ([]byte, error) {
	if g.decoder == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Ext(audioPath), audio.ErrUnsupportedFormat)
	}
	samples, err := g.decoder.Decode(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "google-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(name) }() // best-effort cleanup

	if err := audio.WriteWAV(name, samples); err != nil {
		return nil, err
	}
	return os.ReadFile(name)
}

func (g *GoogleTranscriber) post(ctx context.Context, body []byte) (string, error) {
	u := g.endpoint + "?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Never surface the URL: it carries the API key.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apierr.FromTransport(stripURL(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.FromTransport(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp googleErrorResponse
		msg := ""
		if json.Unmarshal(data, &errResp) == nil {
			msg = errResp.Error.Message
		}
		return "", apierr.FromStatus(resp.StatusCode, msg)
	}

	var result googleResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	var parts []string
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// stripURL unwraps *url.Error so the query string never reaches logs.
func stripURL(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
