package ports

import (
	"context"

	"github.com/Vovarama1992/voicepost/internal/models"
)

type RewriteService interface {
	Rewrite(ctx context.Context, system, user string) (string, error)
	RewriteStructured(ctx context.Context, system, user string) (*models.StructuredPost, error)
}
