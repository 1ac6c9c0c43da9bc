package ports

import (
	"context"

	"github.com/Vovarama1992/voicepost/internal/models"
)

type OptimizeInput struct {
	TranscriptionID string
	Platforms       []models.Platform
	Structured      bool
	// Legacy also copies the linkedin result into the single optimizedText field.
	Legacy bool
}

type PlatformOutcome struct {
	Platform models.Platform `json:"platform"`
	Success  bool            `json:"success"`
	Attempts int             `json:"attempts"`
	Error    string          `json:"error,omitempty"`
}

type OptimizeResult struct {
	TranscriptionID string                                    `json:"transcriptionId"`
	Status          models.Status                             `json:"status"`
	Optimizations   map[models.Platform]string                `json:"optimizations"`
	Details         map[models.Platform]models.StructuredPost `json:"details,omitempty"`
	OptimizedText   string                                    `json:"optimizedText,omitempty"`
	Outcomes        []PlatformOutcome                         `json:"outcomes"`
}

// OptimizationEvent is published once per resolved platform and once when
// the run completes (Platform empty, Done true).
type OptimizationEvent struct {
	TranscriptionID string
	Platform        models.Platform
	Success         bool
	Text            string
	Done            bool
}

type Optimizer interface {
	Optimize(ctx context.Context, in OptimizeInput) (*OptimizeResult, error)
	Events() <-chan OptimizationEvent
}
