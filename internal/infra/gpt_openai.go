package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

type ChatConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
}

type ChatClient struct {
	apiKey  string
	model   string
	client  *openai.Client
	limiter *rate.Limiter
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	c := &ChatClient{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: newOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// sanitize: drop broken UTF-8
func sanitize(s string) string {
	return strings.ToValidUTF8(s, "")
}

func (c *ChatClient) Rewrite(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, nil)
}

func (c *ChatClient) RewriteStructured(ctx context.Context, system, user string) (*models.StructuredPost, error) {
	raw, err := c.complete(ctx, system, user, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return nil, err
	}
	return ParseStructuredPost(raw)
}

// structuredWire tracks key presence; every key is mandatory.
type structuredWire struct {
	OptimizedContent *string   `json:"optimizedContent"`
	Hashtags         *[]string `json:"hashtags"`
	Tone             *string   `json:"tone"`
	TargetAudience   *string   `json:"targetAudience"`
}

// ParseStructuredPost accepts exactly one JSON object with the keys
// optimizedContent, hashtags, tone and targetAudience, optionally wrapped in
// a markdown code fence. Anything else is ErrMalformedResponse.
func ParseStructuredPost(raw string) (*models.StructuredPost, error) {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(body, "```")
		body = strings.TrimSpace(body)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var wire structuredWire
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrMalformedResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after json object", ports.ErrMalformedResponse)
	}

	var missing []string
	if wire.OptimizedContent == nil {
		missing = append(missing, "optimizedContent")
	}
	if wire.Hashtags == nil {
		missing = append(missing, "hashtags")
	}
	if wire.Tone == nil {
		missing = append(missing, "tone")
	}
	if wire.TargetAudience == nil {
		missing = append(missing, "targetAudience")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ports.ErrMalformedResponse, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(*wire.OptimizedContent) == "" {
		return nil, fmt.Errorf("%w: optimizedContent is empty", ports.ErrMalformedResponse)
	}

	post := &models.StructuredPost{
		OptimizedContent: *wire.OptimizedContent,
		Hashtags:         *wire.Hashtags,
		Tone:             *wire.Tone,
		TargetAudience:   *wire.TargetAudience,
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	return post, nil
}

func (c *ChatClient) complete(
	ctx context.Context,
	system, user string,
	format *openai.ChatCompletionResponseFormat,
) (string, error) {
	if c.apiKey == "" {
		return "", missingKey("openai")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sanitize(system)},
			{Role: openai.ChatMessageRoleUser, Content: sanitize(user)},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", providerError(ctx, "openai", err)
	}

	if len(resp.Choices) == 0 {
		return "", &ports.ProviderError{Provider: "openai", StatusCode: 200, Type: "empty_response", Message: "no choices returned"}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &ports.ProviderError{Provider: "openai", StatusCode: 200, Type: "empty_response", Message: "empty completion"}
	}
	return text, nil
}
