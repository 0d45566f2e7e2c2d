package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/voxbridge/voxbridge/domain/entities"
	"github.com/voxbridge/voxbridge/domain/repositories"
	"github.com/voxbridge/voxbridge/internal/audio"
	"github.com/voxbridge/voxbridge/internal/broadcast"
	"github.com/voxbridge/voxbridge/internal/transcript"
	"github.com/voxbridge/voxbridge/usecase"
)

type fakePipeline struct {
	result *repositories.TranslationResult
	err    error

	fromLang string
	toLang   string
	payload  []byte
}

func (f *fakePipeline) Translate(_ context.Context, fromLang, toLang string, payload []byte) (*repositories.TranslationResult, error) {
	f.fromLang, f.toLang = fromLang, toLang
	f.payload = payload
	return f.result, f.err
}

type fakeSummarizer struct {
	out string
	err error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	return f.out, f.err
}

type fixture struct {
	echo     *echo.Echo
	registry *broadcast.Registry
	sessions *transcript.Store
	pipeline *fakePipeline
}

func newFixture(t *testing.T, summarizer *fakeSummarizer) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &fixture{
		echo:     echo.New(),
		registry: broadcast.NewRegistry(logger),
		sessions: transcript.NewStore(),
		pipeline: &fakePipeline{},
	}
	if summarizer == nil {
		summarizer = &fakeSummarizer{}
	}
	InitRoutes(f.echo, f.registry, f.sessions, f.pipeline, usecase.NewSummaryService(summarizer), logger)
	return f
}

func (f *fixture) do(method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

type sinkListener struct {
	id     string
	frames [][]byte
}

func (l *sinkListener) ID() string { return l.id }
func (l *sinkListener) Send(frame []byte) error {
	l.frames = append(l.frames, append([]byte(nil), frame...))
	return nil
}

func TestPushAudioBroadcastsRawBody(t *testing.T) {
	f := newFixture(t, nil)
	listener := &sinkListener{id: "l"}
	f.registry.Register("main", listener)

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	rec := f.do(http.MethodPost, "/api/audio/push/main", "application/octet-stream", bytes.NewReader(payload))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp PushResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.StreamID != "main" || resp.Bytes != 4 || resp.Listeners != 1 {
		t.Errorf("response = %+v", resp)
	}
	if len(listener.frames) != 1 || !bytes.Equal(listener.frames[0], payload) {
		t.Errorf("listener frames = %v, want one verbatim copy", listener.frames)
	}
}

func TestPushAudioRejectsEmptyBody(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/api/audio/push/main", "application/octet-stream", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPushAudioFileBroadcastsUpload(t *testing.T) {
	f := newFixture(t, nil)
	listener := &sinkListener{id: "l"}
	f.registry.Register("side", listener)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "clip.wav")
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("RIFFfake")
	part.Write(payload)
	w.Close()

	rec := f.do(http.MethodPost, "/api/audio/push-file/side", w.FormDataContentType(), &buf)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(listener.frames) != 1 || !bytes.Equal(listener.frames[0], payload) {
		t.Errorf("listener frames = %v", listener.frames)
	}
}

func TestPushAudioFileRequiresFileField(t *testing.T) {
	f := newFixture(t, nil)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("other", "x")
	w.Close()

	rec := f.do(http.MethodPost, "/api/audio/push-file/main", w.FormDataContentType(), &buf)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func translateBody(t *testing.T, fromLang, toLang string, payload []byte) io.Reader {
	t.Helper()
	body, err := json.Marshal(TranslateRequest{
		FromLang: fromLang,
		ToLang:   toLang,
		AudioB64: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(body)
}

func TestTranslateStreamsPipelineAudio(t *testing.T) {
	f := newFixture(t, nil)
	f.pipeline.result = &repositories.TranslationResult{
		Audio:          io.NopCloser(strings.NewReader("synthesized-bytes")),
		ContentType:    "audio/mpeg",
		SourceText:     "hello",
		TranslatedText: "¡hola!",
	}

	rec := f.do(http.MethodPost, "/api/voice/translate", echo.MIMEApplicationJSON,
		translateBody(t, "en", "es", []byte("wav-payload")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "audio/mpeg" {
		t.Errorf("content type = %q", got)
	}
	if rec.Body.String() != "synthesized-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("X-Source-Text"); got != url.PathEscape("hello") {
		t.Errorf("X-Source-Text = %q", got)
	}
	if got, err := url.PathUnescape(rec.Header().Get("X-Translated-Text")); err != nil || got != "¡hola!" {
		t.Errorf("X-Translated-Text decodes to %q (err %v)", got, err)
	}
	if f.pipeline.fromLang != "en" || f.pipeline.toLang != "es" {
		t.Errorf("pipeline languages = (%q, %q)", f.pipeline.fromLang, f.pipeline.toLang)
	}
	if string(f.pipeline.payload) != "wav-payload" {
		t.Errorf("pipeline payload = %q, want the decoded base64", f.pipeline.payload)
	}
}

func TestTranslateRejectsBadBase64(t *testing.T) {
	f := newFixture(t, nil)
	body, _ := json.Marshal(TranslateRequest{FromLang: "en", ToLang: "es", AudioB64: "%%%not-base64%%%"})
	rec := f.do(http.MethodPost, "/api/voice/translate", echo.MIMEApplicationJSON, bytes.NewReader(body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTranslateDistinguishesDecodeFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.pipeline.err = fmt.Errorf("pipeline: %w", audio.ErrDecode)

	rec := f.do(http.MethodPost, "/api/voice/translate", echo.MIMEApplicationJSON,
		translateBody(t, "en", "es", []byte("garbage")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != "decode_failed" {
		t.Errorf("error code = %q, want decode_failed", resp.Error)
	}
}

func TestTranslateRequiresAllFields(t *testing.T) {
	f := newFixture(t, nil)
	body, _ := json.Marshal(TranslateRequest{FromLang: "en"})
	rec := f.do(http.MethodPost, "/api/voice/translate", echo.MIMEApplicationJSON, bytes.NewReader(body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSessionEntryLifecycle(t *testing.T) {
	f := newFixture(t, &fakeSummarizer{out: "a short chat"})

	// Appending assigns IDs from 1.
	for i, text := range []string{"hello", "hola"} {
		body, _ := json.Marshal(EntryRequest{T: float64(i), Dur: 1.5, Speaker: "A", Lang: "en", Text: text})
		rec := f.do(http.MethodPost, "/session/s1/entry", echo.MIMEApplicationJSON, bytes.NewReader(body))
		if rec.Code != http.StatusCreated {
			t.Fatalf("append %d: status = %d, body %s", i, rec.Code, rec.Body)
		}
		var resp EntryCreatedResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.ID != i+1 {
			t.Errorf("append %d assigned ID %d", i, resp.ID)
		}
	}

	rec := f.do(http.MethodGet, "/session/s1/entries", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var entries []entities.TranscriptEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(entries) != 2 || entries[0].Text != "hello" || entries[1].ID != 2 {
		t.Errorf("entries = %+v", entries)
	}

	body, _ := json.Marshal(SummaryRequest{TargetLang: "en"})
	rec = f.do(http.MethodPost, "/session/s1/summary", echo.MIMEApplicationJSON, bytes.NewReader(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status = %d, body %s", rec.Code, rec.Body)
	}
	var sum SummaryResponse
	json.Unmarshal(rec.Body.Bytes(), &sum)
	if sum.Summary != "a short chat" {
		t.Errorf("summary = %q", sum.Summary)
	}

	rec = f.do(http.MethodDelete, "/session/s1", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	// The session is gone; listing shows an empty transcript.
	rec = f.do(http.MethodGet, "/session/s1/entries", "", nil)
	entries = nil
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if len(entries) != 0 {
		t.Errorf("entries after delete = %+v", entries)
	}
}

func TestListEntriesUnknownSessionIsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/session/ghost/entries", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want empty array", rec.Body.String())
	}
	if f.sessions.Len() != 0 {
		t.Error("listing created a session")
	}
}

func TestSummaryUnknownSessionIs404(t *testing.T) {
	f := newFixture(t, nil)
	body, _ := json.Marshal(SummaryRequest{TargetLang: "en"})
	rec := f.do(http.MethodPost, "/session/ghost/summary", echo.MIMEApplicationJSON, bytes.NewReader(body))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAppendEntryRequiresFields(t *testing.T) {
	f := newFixture(t, nil)
	body, _ := json.Marshal(EntryRequest{Speaker: "A"})
	rec := f.do(http.MethodPost, "/session/s1/entry", echo.MIMEApplicationJSON, bytes.NewReader(body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
