package transcribe

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/apierr"
	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/lang"
)

const (
	// DefaultOpenAIModel is the OpenAI Whisper model.
	DefaultOpenAIModel = openai.Whisper1

	// DefaultGroqModel is Groq's hosted Whisper model.
	DefaultGroqModel = "whisper-large-v3"

	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// audioTranscriber is the slice of the go-openai client this package uses.
// *openai.Client implements it; tests inject mocks.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Backend          = (*OpenAITranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAITranscriber transcribes audio through an OpenAI-compatible
// /audio/transcriptions endpoint (OpenAI itself or Groq).
// Transient failures are retried with exponential backoff.
type OpenAITranscriber struct {
	client audioTranscriber
	name   string
	model  string
	retry  apierr.RetryConfig
}

// OpenAIOption configures an OpenAITranscriber.
type OpenAIOption func(*OpenAITranscriber)

// WithRetry overrides the retry policy.
func WithRetry(cfg apierr.RetryConfig) OpenAIOption {
	return func(t *OpenAITranscriber) {
		t.retry = cfg
	}
}

// WithModel overrides the model name sent with each request.
func WithModel(model string) OpenAIOption {
	return func(t *OpenAITranscriber) {
		if model != "" {
			t.model = model
		}
	}
}

// withAudioClient replaces the API client (for testing).
func withAudioClient(c audioTranscriber) OpenAIOption {
	return func(t *OpenAITranscriber) {
		t.client = c
	}
}

func newOpenAICompatible(name string, cfg openai.ClientConfig, model string, opts ...OpenAIOption) *OpenAITranscriber {
	t := &OpenAITranscriber{
		client: openai.NewClientWithConfig(cfg),
		name:   name,
		model:  model,
		retry:  apierr.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewOpenAI returns a transcriber backed by the OpenAI API.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAITranscriber {
	return newOpenAICompatible("openai", openai.DefaultConfig(apiKey), DefaultOpenAIModel, opts...)
}

// NewGroq returns a transcriber backed by Groq's OpenAI-compatible API.
func NewGroq(apiKey string, opts ...OpenAIOption) *OpenAITranscriber {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = GroqBaseURL
	return newOpenAICompatible("groq", cfg, DefaultGroqModel, opts...)
}

// Name returns the backend name.
func (t *OpenAITranscriber) Name() string { return t.name }

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (t *OpenAITranscriber) Close() error { return nil }

// Transcribe uploads the file and returns the recognised text.
// BeamSize and VADFilter do not apply to hosted models.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
		Language: lang.BaseCode(opts.Language), // the API only accepts ISO 639-1 base codes
	}

	text, err := apierr.RetryWithBackoff(ctx, t.retry,
		func() (string, error) {
			resp, err := t.client.CreateTranscription(ctx, req)
			if err != nil {
				return "", classifyOpenAIError(err)
			}
			return resp.Text, nil
		},
		apierr.IsTransient,
	)
	if err != nil {
		return "", wrapAPIError(t.name, err)
	}
	return strings.TrimSpace(text), nil
}

// classifyOpenAIError maps go-openai errors onto apierr sentinels.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apierr.FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return apierr.FromStatus(reqErr.HTTPStatusCode, msg)
	}

	// A local file problem is not a transport failure and must not be retried.
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}

	return apierr.FromTransport(err)
}
