package delivery

import (
	"context"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/validation"
)

type users interface {
	Create(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	VerifyPayment(ctx context.Context, userID, status string) (*models.User, error)
}

type UserHandler struct {
	svc users
	log *logger.ZapLogger
}

func NewUserHandler(svc users, log *logger.ZapLogger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// GET /api/getUserData
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		fail(w, h.log, "Failed to fetch users", "", err)
		return
	}
	writeOK(w, map[string]any{"data": list})
}

// POST /api/postUserData
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req validation.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, h.log, "Failed to create user", "", err)
		return
	}
	if err := validation.Struct(req); err != nil {
		fail(w, h.log, "Failed to create user", "", err)
		return
	}

	created, err := h.svc.Create(r.Context(), req.UserID)
	if err != nil {
		fail(w, h.log, "Failed to create user", "", err)
		return
	}

	msg := "User created"
	if !created {
		msg = "User already exists"
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "user upserted",
		Fields:  map[string]any{"userId": req.UserID, "created": created},
	})

	writeOK(w, map[string]any{
		"userId":  req.UserID,
		"created": created,
		"message": msg,
	})
}

// PATCH /api/verifyPayment
func (h *UserHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req validation.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, h.log, "Failed to update user", "User not found", err)
		return
	}
	if err := validation.Struct(req); err != nil {
		fail(w, h.log, "Failed to update user", "User not found", err)
		return
	}

	u, err := h.svc.VerifyPayment(r.Context(), req.UserID, req.Status)
	if err != nil {
		fail(w, h.log, "Failed to update user", "User not found", err)
		return
	}

	msg := "User deactivated successfully"
	if u.IsPremium {
		msg = "User activated successfully"
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "payment status applied",
		Fields:  map[string]any{"userId": u.UserID, "isPremium": u.IsPremium, "tokens": u.Tokens},
	})

	writeOK(w, map[string]any{
		"message":   msg,
		"isPremium": u.IsPremium,
		"tokens":    u.Tokens,
	})
}
