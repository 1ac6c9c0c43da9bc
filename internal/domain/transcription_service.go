package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/domain/stations"
	"github.com/Vovarama1992/voicepost/internal/metrics"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/Vovarama1992/voicepost/internal/validation"
)

type TranscriptionService struct {
	repo    ports.TranscriptionRepository
	s1      *stations.S1PCMtoWAV
	s2      *stations.S2SpeechToText
	metrics *metrics.Metrics
	log     *logger.ZapLogger
	now     func() time.Time
}

func NewTranscriptionService(
	repo ports.TranscriptionRepository,
	stt ports.STTService,
	m *metrics.Metrics,
	log *logger.ZapLogger,
) *TranscriptionService {
	return &TranscriptionService{
		repo:    repo,
		s1:      stations.NewS1PCMtoWAV(),
		s2:      stations.NewS2SpeechToText(stt, log),
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Ingest transcribes the recording and stores it with status raw.
func (s *TranscriptionService) Ingest(ctx context.Context, audio models.AudioInput, userID string) (*models.Transcription, error) {
	if len(audio.Data) == 0 {
		return nil, ports.NewValidationError("audioData", "is empty")
	}
	if len(audio.Data) > models.MaxAudioSize {
		return nil, ports.NewValidationError("audioData", "exceeds 25 MiB")
	}

	audio = s.s1.Run(audio)

	start := time.Now()
	text, err := s.s2.Run(ctx, audio)
	s.metrics.RecordTranscription(err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ports.ProviderError{Provider: "whisper", Type: "empty_transcript", Message: "no speech recognized"}
	}

	now := s.now()
	t, err := s.repo.Insert(ctx, &models.Transcription{
		Text:      text,
		Status:    models.StatusRaw,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Edit overwrites generated text. Validation happens before any storage call.
func (s *TranscriptionService) Edit(ctx context.Context, req validation.EditRequest) error {
	if err := validation.Edit(req); err != nil {
		return err
	}

	edit := models.TranscriptionEdit{
		ID:            req.TranscriptionID,
		UserID:        req.UserID,
		OptimizedText: req.UpdatedText,
		EditedAt:      s.now(),
	}
	if len(req.UpdatedOptimizations) > 0 {
		edit.Optimizations = make(map[models.Platform]string, len(req.UpdatedOptimizations))
		for k, v := range req.UpdatedOptimizations {
			edit.Optimizations[models.Platform(k)] = v
		}
	}

	return s.repo.ApplyEdit(ctx, edit)
}

func (s *TranscriptionService) History(ctx context.Context) ([]models.Transcription, error) {
	return s.repo.List(ctx)
}

func (s *TranscriptionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ports.NewValidationError("id", "is required")
	}
	return s.repo.Delete(ctx, id)
}
