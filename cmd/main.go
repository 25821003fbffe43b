package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/voicechat/internal/api"
	"github.com/satriahrh/voicechat/internal/auth"
	"github.com/satriahrh/voicechat/internal/config"
	"github.com/satriahrh/voicechat/internal/observe"
	"github.com/satriahrh/voicechat/internal/websocket"
	"github.com/satriahrh/voicechat/usecase"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := serve(cfg, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server exited")
	_ = logger.Sync()
}

// serve runs the server until SIGINT or SIGTERM. Deferred cleanup runs before
// the caller decides the exit status.
func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg, logger)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Metrics
	metrics := observe.NopMetrics()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer provider.Shutdown(context.Background())
		if metrics, err = observe.NewMetrics(provider.MeterProvider); err != nil {
			return fmt.Errorf("create instruments: %w", err)
		}
		metricsHandler = provider.Handler()
	}

	// Initialize adapters
	decoder := newTranscoder(cfg.Transcoder, logger)

	speechToText, closeSTT, err := newSpeechToText(ctx, cfg.Transcription, logger)
	if err != nil {
		return fmt.Errorf("init transcription: %w", err)
	}
	defer closeSTT()

	completion, err := newLLM(ctx, cfg.Generation, logger)
	if err != nil {
		return fmt.Errorf("init generation: %w", err)
	}

	textToSpeech, voiceSource, err := newTextToSpeech(cfg.Synthesis, logger)
	if err != nil {
		return fmt.Errorf("init synthesis: %w", err)
	}

	voices, closeVoices, err := newVoiceRepository(ctx, cfg, voiceSource, logger)
	if err != nil {
		return fmt.Errorf("init voice catalog: %w", err)
	}
	defer closeVoices()

	var authenticator *auth.Authenticator
	if cfg.Auth.Enabled {
		if authenticator, err = auth.NewAuthenticator(cfg.Auth.JWTSecret); err != nil {
			return err
		}
	}

	// Initialize usecase services
	chatService := usecase.NewChatService(completion, usecase.ChatConfig{
		Persona:              cfg.Generation.Persona,
		MaxTokens:            cfg.Generation.MaxTokens,
		Temperature:          cfg.Generation.Temperature,
		EmptyTranscriptReply: cfg.Generation.EmptyTranscriptReply,
	}, logger)
	conversationService := usecase.NewConversationService(decoder, speechToText, chatService, textToSpeech, usecase.PipelineConfig{
		Language: cfg.Transcription.Language,
		Timeouts: usecase.StageTimeouts{
			Decode:     cfg.Transcoder.Timeout,
			Transcribe: cfg.Transcription.Timeout,
			Generate:   cfg.Generation.Timeout,
			Synthesize: cfg.Synthesis.Timeout,
		},
		StreamChunks: cfg.Session.StreamAudioChunks && cfg.Synthesis.Mode == "stream",
	}, metrics, logger)

	hub := websocket.NewHub(conversationService, websocket.HubConfig{
		QueueDepth:     cfg.Session.QueueDepth,
		DefaultFormat:  cfg.Transcoder.SourceFormat,
		MaxMessageSize: cfg.Server.MaxMessageSize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, metrics, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Hub:     hub,
		Voices:  voices,
		Auth:    authenticator,
		Metrics: metricsHandler,
		Logger:  logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		logger.Info("Server started",
			zap.String("addr", addr),
			zap.String("transcription", cfg.Transcription.Provider),
			zap.String("generation", cfg.Generation.Provider),
			zap.String("synthesis", cfg.Synthesis.Provider),
			zap.String("synthesisMode", cfg.Synthesis.Mode))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
