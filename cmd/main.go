package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/config"
	"github.com/Vovarama1992/voicepost/internal/delivery"
	ws "github.com/Vovarama1992/voicepost/internal/delivery/ws"
	"github.com/Vovarama1992/voicepost/internal/domain"
	"github.com/Vovarama1992/voicepost/internal/infra"
	"github.com/Vovarama1992/voicepost/internal/metrics"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"go.uber.org/zap"
)

func main() {

	// CONFIG
	cfg := config.MustLoad()

	// LOGGER
	var zcore *zap.Logger
	if cfg.LogLevel == "debug" {
		zcore, _ = zap.NewDevelopment()
	} else {
		zcore, _ = zap.NewProduction()
	}
	defer zcore.Sync()
	zl := logger.NewZapLogger(zcore.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// STORE
	var (
		transcriptions ports.TranscriptionRepository
		users          ports.UserRepository
		closeStore     func()
	)

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := infra.NewPgxPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			panic(err.Error())
		}
		if err := infra.EnsureSchema(ctx, pool); err != nil {
			panic(err.Error())
		}
		transcriptions = infra.NewPostgresTranscriptionRepo(pool)
		users = infra.NewPostgresUserRepo(pool)
		closeStore = pool.Close

	default:
		conn := infra.NewMongoConn(cfg.Store.MongoURI, cfg.Store.DBName)

		// connect early so a bad URI shows up in the startup log;
		// requests retry the connection on their own
		ctxPing, cancel := context.WithTimeout(ctx, 10*time.Second)
		if _, err := conn.Database(ctxPing); err != nil {
			zl.Log(logger.LogEntry{
				Level:   "warn",
				Message: "mongo not reachable at startup",
				Error:   err,
			})
		}
		cancel()

		transcriptions = infra.NewMongoTranscriptionRepo(conn)
		users = infra.NewMongoUserRepo(conn)
		closeStore = func() {
			ctxClose, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = conn.Close(ctxClose)
		}
	}
	defer closeStore()

	// PROVIDERS
	chat := infra.NewChatClient(infra.ChatConfig{
		APIKey:    cfg.Providers.APIKey,
		BaseURL:   cfg.Providers.BaseURL,
		Model:     cfg.Providers.LLMModel,
		Timeout:   cfg.Providers.Timeout,
		RateLimit: cfg.Providers.RateLimit,
	})
	whisper := infra.NewWhisperClient(infra.WhisperConfig{
		APIKey:   cfg.Providers.APIKey,
		BaseURL:  cfg.Providers.BaseURL,
		Model:    cfg.Providers.STTModel,
		Language: cfg.Providers.STTLanguage,
		Timeout:  cfg.Providers.Timeout,
	})

	// SERVICES
	m := metrics.NewMetrics()

	optimizer := domain.NewOptimizer(transcriptions, chat, m, zl, domain.OptimizerConfig{
		MaxAttempts: cfg.Optimize.MaxAttempts,
		RetryDelay:  cfg.Optimize.RetryDelay,
	})
	transcriptionService := domain.NewTranscriptionService(transcriptions, whisper, m, zl)
	userService := domain.NewUserService(users)

	// WS HUB
	hub := ws.NewHub(zl)

	// BROADCAST LISTENER
	go hub.Broadcast(ctx, optimizer.Events())

	// ROUTER
	r := delivery.NewRouter(delivery.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Metrics:        m,
		Log:            zl,
	}, delivery.Handlers{
		Speech:         delivery.NewSpeechHandler(transcriptionService, zl),
		Optimize:       delivery.NewOptimizeHandler(optimizer, zl),
		Transcriptions: delivery.NewTranscriptionHandler(transcriptionService, zl),
		Users:          delivery.NewUserHandler(userService, zl),
		Hub:            hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "server started",
		Fields: map[string]any{
			"port":  cfg.Port,
			"store": cfg.Store.Driver,
			"model": cfg.Providers.LLMModel,
		},
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "server crashed",
			Error:   err,
		})
	}

	zl.Log(logger.LogEntry{Level: "info", Message: "server stopped"})
}
