package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/Vovarama1992/voicepost/internal/validation"
)

type ingester interface {
	Ingest(ctx context.Context, audio models.AudioInput, userID string) (*models.Transcription, error)
}

type SpeechHandler struct {
	svc ingester
	log *logger.ZapLogger
}

func NewSpeechHandler(svc ingester, log *logger.ZapLogger) *SpeechHandler {
	return &SpeechHandler{svc: svc, log: log}
}

// base64 inflates by 4/3; leave room for the json envelope
const maxSpeechBody = models.MaxAudioSize*4/3 + 1<<20

// POST /api/speech-to-text
func (h *SpeechHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSpeechBody)

	audio, userID, err := h.readAudio(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFail(w, http.StatusRequestEntityTooLarge, "Audio file too large", nil)
			return
		}
		fail(w, h.log, "Failed to process audio", "", err)
		return
	}

	t, err := h.svc.Ingest(r.Context(), audio, userID)
	if err != nil {
		fail(w, h.log, "Failed to process audio", "", err)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "speech transcribed",
		Fields: map[string]any{
			"transcriptionId": t.ID,
			"userId":          userID,
			"bytes":           len(audio.Data),
			"chars":           len(t.Text),
		},
	})

	writeOK(w, map[string]any{
		"transcriptionId": t.ID,
		"text":            t.Text,
	})
}

func (h *SpeechHandler) readAudio(r *http.Request) (models.AudioInput, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipartAudio(r)
	}
	return readJSONAudio(r)
}

func readMultipartAudio(r *http.Request) (models.AudioInput, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.AudioInput{}, "", err
		}
		return models.AudioInput{}, "", ports.NewValidationError("audioData", "invalid multipart form")
	}

	file, hdr, err := r.FormFile("audioData")
	if errors.Is(err, http.ErrMissingFile) {
		file, hdr, err = r.FormFile("file")
	}
	if err != nil {
		return models.AudioInput{}, "", ports.NewValidationError("audioData", "no audio data provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.AudioInput{}, "", err
	}

	return models.AudioInput{
		Data:     data,
		FileName: hdr.Filename,
		FileType: hdr.Header.Get("Content-Type"),
	}, r.FormValue("userId"), nil
}

func readJSONAudio(r *http.Request) (models.AudioInput, string, error) {
	var req validation.SpeechJSONRequest
	if err := decodeJSON(r, &req); err != nil {
		return models.AudioInput{}, "", err
	}
	if err := validation.Struct(req); err != nil {
		return models.AudioInput{}, "", err
	}

	data, err := decodeAudioBase64(req.AudioData)
	if err != nil {
		return models.AudioInput{}, "", ports.NewValidationError("audioData", "invalid base64")
	}

	return models.AudioInput{
		Data:     data,
		FileName: req.FileName,
		FileType: req.FileType,
	}, req.UserID, nil
}

// decodeAudioBase64 accepts plain base64 or a data: URL.
func decodeAudioBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
