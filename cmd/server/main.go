package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/adapters/speech"
	"github.com/voxbridge/voxbridge/adapters/stt"
	"github.com/voxbridge/voxbridge/adapters/translate"
	"github.com/voxbridge/voxbridge/adapters/tts"
	"github.com/voxbridge/voxbridge/domain/repositories"
	"github.com/voxbridge/voxbridge/internal/api"
	"github.com/voxbridge/voxbridge/internal/broadcast"
	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/transcript"
	"github.com/voxbridge/voxbridge/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Loads .env when present, then reads the environment.
	cfg := config.LoadServer()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Shared server state: one registry and one session store for the
	// whole process lifetime.
	registry := broadcast.NewRegistry(logger)
	sessions := transcript.NewStore()

	recognizer, translator, summarizer, synthesizer := buildCollaborators(logger)

	pipeline := usecase.NewVoicePipelineService(recognizer, translator, synthesizer, logger)
	summaries := usecase.NewSummaryService(summarizer)

	// Initialize API routes
	api.InitRoutes(e, registry, sessions, pipeline, summaries, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildCollaborators wires the real AI adapters where credentials are
// configured and falls back to the in-memory mocks otherwise, so the
// server always starts.
func buildCollaborators(logger *zap.Logger) (repositories.SpeechToText, repositories.Translator, repositories.Summarizer, repositories.TextToSpeech) {
	var recognizer repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		recognizer = stt.NewGoogleSpeechToText(logger)
	} else {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock recognizer")
		recognizer = speech.NewMockSpeechToText(logger)
	}

	var translator repositories.Translator
	var summarizer repositories.Summarizer
	if gemini, err := translate.NewGemini(context.Background(), logger); err == nil {
		translator, summarizer = gemini, gemini
	} else {
		logger.Warn("Gemini unavailable, using mock translator", zap.Error(err))
		translator = speech.NewMockTranslator(logger)
		summarizer = speech.NewMockSummarizer(logger)
	}

	var synthesizer repositories.TextToSpeech
	if elevenlabs, err := tts.NewElevenLabsTTS(tts.ConfigFromEnv(), logger); err == nil {
		synthesizer = elevenlabs
	} else {
		logger.Warn("ElevenLabs unavailable, using mock synthesizer", zap.Error(err))
		synthesizer = speech.NewMockTextToSpeech(logger)
	}

	return recognizer, translator, summarizer, synthesizer
}
