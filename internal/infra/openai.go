package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Vovarama1992/voicepost/internal/ports"
	openai "github.com/sashabaranov/go-openai"
)

// newOpenAIClient builds a client for any OpenAI-compatible endpoint.
func newOpenAIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

func missingKey(provider string) *ports.ProviderError {
	return &ports.ProviderError{Provider: provider, Type: "configuration", Message: "OPENAI_API_KEY is not set"}
}

// providerError maps go-openai failures onto the provider error taxonomy.
// A cancelled or expired ctx is returned as is so callers can tell the
// request budget from a provider fault.
func providerError(ctx context.Context, provider string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", provider, ctxErr)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := &ports.ProviderError{
			Provider:   provider,
			StatusCode: apiErr.HTTPStatusCode,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
		}
		if pe.Type == "" {
			pe.Type = "http_error"
		}
		return pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		// error body was not the {"error":{...}} envelope
		return &ports.ProviderError{
			Provider:   provider,
			StatusCode: reqErr.HTTPStatusCode,
			Type:       "http_error",
			Message:    http.StatusText(reqErr.HTTPStatusCode),
		}
	}

	return &ports.ProviderError{Provider: provider, Type: "transport", Message: err.Error()}
}
