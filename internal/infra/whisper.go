package infra

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vovarama1992/voicepost/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

type WhisperClient struct {
	apiKey   string
	model    string
	language string
	client   *openai.Client
}

func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	return &WhisperClient{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   newOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
	}
}

func (s *WhisperClient) Transcribe(ctx context.Context, audio models.AudioInput) (string, error) {
	if s.apiKey == "" {
		return "", missingKey("whisper")
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: uploadName(audio),
		Reader:   bytes.NewReader(audio.Data),
		Language: s.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", providerError(ctx, "whisper", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// the provider sniffs the container from the file extension
var extByType = map[string]string{
	"audio/webm":  ".webm",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/ogg":   ".ogg",
	"audio/flac":  ".flac",
	"video/webm":  ".webm",
	"video/mp4":   ".mp4",
}

func uploadName(audio models.AudioInput) string {
	name := filepath.Base(audio.FileName)
	if name == "." || name == "/" {
		name = ""
	}
	if name != "" && filepath.Ext(name) != "" {
		return name
	}
	if name == "" {
		name = "audio"
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(audio.FileType, ";", 2)[0]))
	ext, ok := extByType[mediaType]
	if !ok {
		ext = ".webm"
	}
	return name + ext
}
