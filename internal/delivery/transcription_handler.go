package delivery

import (
	"context"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/validation"
)

type transcriptions interface {
	Edit(ctx context.Context, req validation.EditRequest) error
	History(ctx context.Context) ([]models.Transcription, error)
	Delete(ctx context.Context, id string) error
}

type TranscriptionHandler struct {
	svc transcriptions
	log *logger.ZapLogger
}

func NewTranscriptionHandler(svc transcriptions, log *logger.ZapLogger) *TranscriptionHandler {
	return &TranscriptionHandler{svc: svc, log: log}
}

// PATCH /api/editText
func (h *TranscriptionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req validation.EditRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, h.log, "Failed to update text", "Transcription not found", err)
		return
	}

	if err := h.svc.Edit(r.Context(), req); err != nil {
		fail(w, h.log, "Failed to update text", "Transcription not found", err)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription edited",
		Fields: map[string]any{
			"transcriptionId": req.TranscriptionID,
			"platforms":       len(req.UpdatedOptimizations),
		},
	})

	writeOK(w, map[string]any{"message": "Text updated successfully"})
}

// GET /api/history
func (h *TranscriptionHandler) History(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.History(r.Context())
	if err != nil {
		fail(w, h.log, "Failed to fetch transcriptions", "", err)
		return
	}

	writeOK(w, map[string]any{"data": list})
}

// DELETE /api/history?id=
func (h *TranscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		fail(w, h.log, "Failed to delete transcription", "Transcription not found", err)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription deleted",
		Fields:  map[string]any{"transcriptionId": id},
	})

	writeOK(w, map[string]any{"message": "Transcription deleted successfully"})
}
