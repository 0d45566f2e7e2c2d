// Package api wires the HTTP surface: audio ingest, point-to-point
// voice translation, the session transcript REST endpoints, and the
// streaming WebSocket attach point.
package api

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/entities"
	"github.com/voxbridge/voxbridge/domain/repositories"
	"github.com/voxbridge/voxbridge/internal/audio"
	"github.com/voxbridge/voxbridge/internal/broadcast"
	"github.com/voxbridge/voxbridge/internal/transcript"
	"github.com/voxbridge/voxbridge/internal/websocket"
	"github.com/voxbridge/voxbridge/usecase"
)

// InitRoutes initializes all API routes.
func InitRoutes(e *echo.Echo, registry *broadcast.Registry, sessions *transcript.Store, pipeline repositories.VoicePipeline, summaries *usecase.SummaryService, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voxbridge-server",
		})
	})

	// Audio ingest: raw bytes or an uploaded file, forwarded verbatim
	// to every listener of the stream.
	audioGroup := e.Group("/api/audio")
	audioGroup.POST("/push/:streamId", func(c echo.Context) error {
		return pushAudio(c, registry, logger)
	})
	audioGroup.POST("/push-file/:streamId", func(c echo.Context) error {
		return pushAudioFile(c, registry, logger)
	})

	// Point-to-point voice translation.
	e.POST("/api/voice/translate", func(c echo.Context) error {
		return translateVoice(c, pipeline, logger)
	})

	// Session transcript surface.
	session := e.Group("/session/:id")
	session.POST("/entry", func(c echo.Context) error {
		return appendEntry(c, sessions, logger)
	})
	session.GET("/entries", func(c echo.Context) error {
		return listEntries(c, sessions)
	})
	session.POST("/summary", func(c echo.Context) error {
		return summarizeSession(c, sessions, summaries, logger)
	})
	session.DELETE("", func(c echo.Context) error {
		return endSession(c, sessions, logger)
	})

	// Streaming endpoint
	e.GET("/ws", func(c echo.Context) error {
		return websocket.Serve(registry, c, logger)
	})
}

func pushAudio(c echo.Context, registry *broadcast.Registry, logger *zap.Logger) error {
	streamID := c.Param("streamId")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		logger.Error("failed to read ingest body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Could not read request body",
		})
	}
	return broadcastPayload(c, registry, streamID, payload)
}

func pushAudioFile(c echo.Context, registry *broadcast.Registry, logger *zap.Logger) error {
	streamID := c.Param("streamId")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Multipart field 'file' is required",
		})
	}
	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Could not open uploaded file",
		})
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		logger.Error("failed to read uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Could not read uploaded file",
		})
	}
	return broadcastPayload(c, registry, streamID, payload)
}

func broadcastPayload(c echo.Context, registry *broadcast.Registry, streamID string, payload []byte) error {
	if len(payload) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_payload",
			Message: "Audio payload is empty",
		})
	}

	registry.Broadcast(streamID, payload)

	return c.JSON(http.StatusOK, PushResponse{
		Status:    "broadcast",
		StreamID:  streamID,
		Bytes:     len(payload),
		Listeners: registry.ListenerCount(streamID),
	})
}

func translateVoice(c echo.Context, pipeline repositories.VoicePipeline, logger *zap.Logger) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.FromLang == "" || req.ToLang == "" || req.AudioB64 == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "from_lang, to_lang and audio_b64 are required",
		})
	}

	payload, err := base64.StdEncoding.DecodeString(req.AudioB64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "audio_b64 is not valid base64",
		})
	}

	result, err := pipeline.Translate(c.Request().Context(), req.FromLang, req.ToLang, payload)
	switch {
	case errors.Is(err, audio.ErrDecode):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "decode_failed",
			Message: "Audio payload is not a valid PCM container",
		})
	case errors.Is(err, usecase.ErrNoSpeech):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "no_speech",
			Message: "No speech was recognized in the audio",
		})
	case err != nil:
		logger.Error("voice translation failed",
			zap.String("fromLang", req.FromLang),
			zap.String("toLang", req.ToLang),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "pipeline_failed",
			Message: "Voice translation pipeline failed",
		})
	}
	defer result.Audio.Close()

	// Texts ride along percent-encoded so non-ASCII survives the
	// header grammar.
	c.Response().Header().Set("X-Source-Text", url.PathEscape(result.SourceText))
	c.Response().Header().Set("X-Translated-Text", url.PathEscape(result.TranslatedText))

	return c.Stream(http.StatusOK, result.ContentType, result.Audio)
}

func appendEntry(c echo.Context, sessions *transcript.Store, logger *zap.Logger) error {
	sessionID := c.Param("id")

	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Speaker == "" || req.Lang == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "speaker, lang and text are required",
		})
	}

	buf := sessions.GetOrCreate(sessionID)
	id := buf.Append(req.T, req.Dur, req.Speaker, req.Lang, req.Text)

	logger.Debug("transcript entry appended",
		zap.String("sessionID", sessionID),
		zap.Int("entryID", id))

	return c.JSON(http.StatusCreated, EntryCreatedResponse{ID: id})
}

func listEntries(c echo.Context, sessions *transcript.Store) error {
	buf := sessions.Get(c.Param("id"))
	if buf == nil {
		// An unknown session simply has no entries yet; listing must
		// not create it.
		return c.JSON(http.StatusOK, []entities.TranscriptEntry{})
	}
	return c.JSON(http.StatusOK, buf.Snapshot())
}

func summarizeSession(c echo.Context, sessions *transcript.Store, summaries *usecase.SummaryService, logger *zap.Logger) error {
	sessionID := c.Param("id")

	var req SummaryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.TargetLang == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "targetLang is required",
		})
	}

	buf := sessions.Get(sessionID)
	if buf == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Unknown session",
		})
	}

	summary, err := summaries.Summarize(c.Request().Context(), buf.Snapshot(), req.TargetLang)
	switch {
	case errors.Is(err, usecase.ErrEmptyTranscript):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_transcript",
			Message: "Session has no entries to summarize",
		})
	case err != nil:
		logger.Error("summary failed",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "summary_failed",
			Message: "Summarization collaborator failed",
		})
	}

	return c.JSON(http.StatusOK, SummaryResponse{Summary: summary})
}

func endSession(c echo.Context, sessions *transcript.Store, logger *zap.Logger) error {
	sessionID := c.Param("id")
	sessions.Remove(sessionID)
	logger.Info("session ended", zap.String("sessionID", sessionID))
	return c.NoContent(http.StatusNoContent)
}
