package stations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
)

type S2SpeechToText struct {
	stt ports.STTService
	log *logger.ZapLogger
}

func NewS2SpeechToText(stt ports.STTService, log *logger.ZapLogger) *S2SpeechToText {
	return &S2SpeechToText{stt: stt, log: log}
}

// Run transcribes audio. A transient provider failure (transport or 5xx) is
// retried once within the same context.
func (s *S2SpeechToText) Run(ctx context.Context, audio models.AudioInput) (string, error) {
	start := time.Now()

	txt, err := s.stt.Transcribe(ctx, audio)
	if err == nil {
		s.log.Log(logger.LogEntry{
			Level:   "info",
			Message: "speech transcribed",
			Fields:  map[string]any{"bytes": len(audio.Data), "chars": len(txt), "dur": time.Since(start).String()},
		})
		return txt, nil
	}

	if !transient(err) || ctx.Err() != nil {
		return "", err
	}

	s.log.Log(logger.LogEntry{
		Level:   "warn",
		Message: "speech-to-text failed, retrying once",
		Error:   err,
	})

	txt, err = s.stt.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	return txt, nil
}

func transient(err error) bool {
	var pe *ports.ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Type == "transport" || pe.StatusCode >= http.StatusInternalServerError
}
