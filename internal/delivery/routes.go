package delivery

import (
	"context"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	ws "github.com/Vovarama1992/voicepost/internal/delivery/ws"
	"github.com/Vovarama1992/voicepost/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Speech         *SpeechHandler
	Optimize       *OptimizeHandler
	Transcriptions *TranscriptionHandler
	Users          *UserHandler
	Hub            *ws.Hub
}

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	Log            *logger.ZapLogger
}

var allowedHeaders = []string{
	"Content-Type", "Authorization", "X-CSRF-Token", "X-Requested-With", "Accept",
	"Accept-Version", "Content-Length", "Content-MD5", "Date", "X-Api-Version",
}

func NewRouter(cfg RouterConfig, h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		AllowedMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:     allowedHeaders,
		AllowCredentials:   true,
		OptionsPassthrough: true,
		MaxAge:             300,
	}))
	r.Use(noContentOptions)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", cfg.Metrics.Handler())

	// websocket subscriptions outlive the request budget
	r.Get("/api/ws", ws.WSHandler(h.Hub, cfg.Log))

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(requestBudget(cfg.RequestTimeout))
		}
		RegisterRoutes(r, h)
	})

	return r
}

func RegisterRoutes(r chi.Router, h Handlers) {

	// ingestion
	r.Post("/api/speech-to-text", h.Speech.Transcribe)

	// optimization
	r.Post("/api/optimizeSpeech", h.Optimize.OptimizeSpeech)
	r.Post("/api/optimizeText", h.Optimize.OptimizeText)

	// transcriptions
	r.Patch("/api/editText", h.Transcriptions.Edit)
	r.Get("/api/history", h.Transcriptions.History)
	r.Delete("/api/history", h.Transcriptions.Delete)

	// users
	r.Get("/api/getUserData", h.Users.List)
	r.Post("/api/postUserData", h.Users.Create)
	r.Patch("/api/verifyPayment", h.Users.VerifyPayment)
}

// noContentOptions answers every OPTIONS request with 204 once the CORS
// headers are set.
func noContentOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestBudget bounds the request context. It never writes: handlers map
// an expired budget to 504 themselves.
func requestBudget(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestLogger(log *logger.ZapLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Log(logger.LogEntry{
				Level:   "info",
				Message: "http request",
				Fields: map[string]any{
					"method":    r.Method,
					"path":      r.URL.Path,
					"status":    ww.Status(),
					"bytes":     ww.BytesWritten(),
					"dur":       time.Since(start).String(),
					"requestId": middleware.GetReqID(r.Context()),
				},
			})
		})
	}
}
