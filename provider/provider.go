package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/sagarsarangi/startup-check/config"
)

// Client represents different LLM providers
type Client string

const (
	Gemini Client = "gemini"
	OpenAI Client = "openai"
)

// Completion is a single model reply plus the token usage the upstream
// reported, when available.
type Completion struct {
	Text         string
	PromptTokens int64
	OutputTokens int64
}

// Provider is the interface every text-completion implementation satisfies.
// Complete performs exactly one outbound call; retry is the caller's decision.
type Provider interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// NewProvider creates an LLM client from the provided configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Provider) {
	case Gemini:
		return NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case OpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// ErrMissingCredential is returned before any network attempt when the
// provider's API key is absent from configuration.
var ErrMissingCredential = errors.New("llm credential not configured")

// ErrEmptyResponse is returned when the upstream replied successfully but the
// reply contained no extractable completion text.
var ErrEmptyResponse = errors.New("empty completion in response")

// TransportError reports a failed round trip to the upstream service: a
// network/DNS/timeout error (Status 0) or a non-2xx reply. Body is truncated
// and is for logs only, never for user-facing responses.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("llm transport failure: %v", e.Err)
	}
	return fmt.Sprintf("llm returned status %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }
