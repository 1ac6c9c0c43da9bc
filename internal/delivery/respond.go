package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/ports"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

func writeFail(w http.ResponseWriter, status int, msg string, details any) {
	body := map[string]any{
		"success": false,
		"error":   msg,
	}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// fail maps err onto the status taxonomy: validation 400, missing 404,
// budget exceeded 504, everything else 500 with msg. It is the only writer
// of 504 responses.
func fail(w http.ResponseWriter, log *logger.ZapLogger, msg, notFound string, err error) {
	var (
		verr *ports.ValidationError
		perr *ports.ProviderError
	)

	switch {
	case errors.As(err, &verr):
		writeFail(w, http.StatusBadRequest, "Invalid request", verr.Fields)
		return
	case errors.Is(err, ports.ErrInvalidID):
		writeFail(w, http.StatusBadRequest, "Invalid id", nil)
		return
	case errors.Is(err, ports.ErrValidation):
		writeFail(w, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, ports.ErrNotFound):
		writeFail(w, http.StatusNotFound, notFound, nil)
		return
	}

	log.Log(logger.LogEntry{
		Level:   "error",
		Message: msg,
		Error:   err,
	})

	switch {
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeFail(w, http.StatusGatewayTimeout, "Request timed out", nil)
	case errors.As(err, &perr):
		writeFail(w, http.StatusInternalServerError, msg, map[string]any{
			"message":    perr.Message,
			"type":       perr.Type,
			"statusCode": perr.StatusCode,
		})
	default:
		writeFail(w, http.StatusInternalServerError, msg, nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return ports.NewValidationError("body", "invalid json")
	}
	return nil
}
