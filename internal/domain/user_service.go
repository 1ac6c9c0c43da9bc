package domain

import (
	"context"
	"time"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
)

type UserService struct {
	repo ports.UserRepository
	now  func() time.Time
}

func NewUserService(repo ports.UserRepository) *UserService {
	return &UserService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create registers userID with the starter balance unless it already exists.
func (s *UserService) Create(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ports.NewValidationError("userId", "is required")
	}
	return s.repo.CreateIfAbsent(ctx, &models.User{
		UserID:    userID,
		Tokens:    models.StarterTokens,
		IsPremium: false,
		CreatedAt: s.now(),
	})
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

// VerifyPayment sets premium with the premium balance for "active", and
// clears both for any other status.
func (s *UserService) VerifyPayment(ctx context.Context, userID, status string) (*models.User, error) {
	if userID == "" {
		return nil, ports.NewValidationError("userId", "is required")
	}

	premium := status == models.PaymentStatusActive
	tokens := 0
	if premium {
		tokens = models.PremiumTokens
	}

	if err := s.repo.SetPremium(ctx, userID, premium, tokens); err != nil {
		return nil, err
	}
	return &models.User{UserID: userID, Tokens: tokens, IsPremium: premium}, nil
}
