package models

import "time"

const (
	StarterTokens       = 25
	PremiumTokens       = 2000
	PaymentStatusActive = "active"
)

type User struct {
	UserID    string    `json:"userId"`
	Tokens    int       `json:"tokens"`
	IsPremium bool      `json:"isPremium"`
	CreatedAt time.Time `json:"createdAt"`
}
