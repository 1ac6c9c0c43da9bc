package ports

import (
	"context"

	"github.com/Vovarama1992/voicepost/internal/models"
)

type STTService interface {
	Transcribe(ctx context.Context, audio models.AudioInput) (string, error)
}
