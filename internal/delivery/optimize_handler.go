package delivery

import (
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/Vovarama1992/voicepost/internal/validation"
)

type OptimizeHandler struct {
	opt ports.Optimizer
	log *logger.ZapLogger
}

func NewOptimizeHandler(opt ports.Optimizer, log *logger.ZapLogger) *OptimizeHandler {
	return &OptimizeHandler{opt: opt, log: log}
}

type optimizeResponse struct {
	Success bool `json:"success"`
	*ports.OptimizeResult
}

// POST /api/optimizeSpeech
func (h *OptimizeHandler) OptimizeSpeech(w http.ResponseWriter, r *http.Request) {
	var req validation.OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, h.log, "Failed to optimize text", "Transcription not found", err)
		return
	}
	if err := validation.Optimize(req); err != nil {
		fail(w, h.log, "Failed to optimize text", "Transcription not found", err)
		return
	}

	res, err := h.opt.Optimize(r.Context(), ports.OptimizeInput{
		TranscriptionID: req.TranscriptionID,
		Platforms:       validation.Platforms(req.Platforms),
		Structured:      req.Structured,
	})
	if err != nil {
		fail(w, h.log, "Failed to optimize text", "Transcription not found", err)
		return
	}

	fallbacks := 0
	for _, o := range res.Outcomes {
		if !o.Success {
			fallbacks++
		}
	}
	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "optimization served",
		Fields: map[string]any{
			"transcriptionId": res.TranscriptionID,
			"platforms":       len(res.Optimizations),
			"fallbacks":       fallbacks,
		},
	})

	writeJSON(w, http.StatusOK, optimizeResponse{Success: true, OptimizeResult: res})
}

// POST /api/optimizeText
// Single LinkedIn rewrite stored in optimizedText.
func (h *OptimizeHandler) OptimizeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TranscriptionID string `json:"transcriptionId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, h.log, "Failed to optimize text", "Transcription not found", err)
		return
	}
	if req.TranscriptionID == "" {
		fail(w, h.log, "Failed to optimize text", "Transcription not found",
			ports.NewValidationError("transcriptionId", "is required"))
		return
	}

	res, err := h.opt.Optimize(r.Context(), ports.OptimizeInput{
		TranscriptionID: req.TranscriptionID,
		Platforms:       []models.Platform{models.PlatformLinkedIn},
		Legacy:          true,
	})
	if err != nil {
		fail(w, h.log, "Failed to optimize text", "Transcription not found", err)
		return
	}

	writeOK(w, map[string]any{
		"optimizedText": res.OptimizedText,
	})
}
