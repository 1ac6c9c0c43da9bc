package ports

import (
	"context"

	"github.com/Vovarama1992/voicepost/internal/models"
)

type TranscriptionRepository interface {
	Insert(ctx context.Context, t *models.Transcription) (*models.Transcription, error)
	GetByID(ctx context.Context, id string) (*models.Transcription, error)
	List(ctx context.Context) ([]models.Transcription, error)

	// SaveOptimizations sets optimizations, details, status=optimized and
	// updatedAt in one write. ErrNotFound when the id no longer matches.
	SaveOptimizations(ctx context.Context, upd models.OptimizationUpdate) error
	SetStatus(ctx context.Context, id string, status models.Status) error
	ApplyEdit(ctx context.Context, edit models.TranscriptionEdit) error
	Delete(ctx context.Context, id string) error
}
