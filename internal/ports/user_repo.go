package ports

import (
	"context"

	"github.com/Vovarama1992/voicepost/internal/models"
)

type UserRepository interface {
	// CreateIfAbsent never touches an existing record.
	CreateIfAbsent(ctx context.Context, u *models.User) (created bool, err error)
	List(ctx context.Context) ([]models.User, error)
	SetPremium(ctx context.Context, userID string, premium bool, tokens int) error
}
