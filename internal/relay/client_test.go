package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frameServer upgrades one connection, records inbound text messages,
// and lets the test push binary frames down to the client.
type frameServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	texts    []string
	streamID string
	ready    chan struct{}
}

func newFrameServer(t *testing.T) *frameServer {
	t.Helper()
	fs := &frameServer{ready: make(chan struct{})}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		fs.mu.Lock()
		fs.conn = conn
		fs.streamID = r.URL.Query().Get("streamId")
		fs.mu.Unlock()
		close(fs.ready)

		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.TextMessage {
				fs.mu.Lock()
				fs.texts = append(fs.texts, string(payload))
				fs.mu.Unlock()
				if strings.EqualFold(string(payload), "PING") {
					conn.WriteMessage(websocket.TextMessage, []byte("PONG"))
				}
			}
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *frameServer) waitReady(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case <-fs.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.conn
}

func (fs *frameServer) receivedTexts() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.texts...)
}

func TestFramesDeliveredInOrder(t *testing.T) {
	fs := newFrameServer(t)

	var mu sync.Mutex
	var frames [][]byte
	conn, err := Dial(context.Background(), fs.srv.URL, "main",
		func(frame []byte) {
			mu.Lock()
			frames = append(frames, append([]byte(nil), frame...))
			mu.Unlock()
		}, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	server := fs.waitReady(t)
	if fs.streamID != "main" {
		t.Errorf("server saw streamId %q, want main", fs.streamID)
	}

	for i := 0; i < 20; i++ {
		if err := server.WriteMessage(websocket.BinaryMessage, []byte{byte(i)}); err != nil {
			t.Fatalf("server write %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(frames)
		mu.Unlock()
		if n == 20 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(frames) != 20 {
		t.Fatalf("received %d frames, want 20", len(frames))
	}
	for i, f := range frames {
		if f[0] != byte(i) {
			t.Fatalf("frame %d carries %d (reordered)", i, f[0])
		}
	}
}

func TestKeepalivePingSent(t *testing.T) {
	fs := newFrameServer(t)

	conn, err := Dial(context.Background(), fs.srv.URL, "",
		nil, nil, zaptest.NewLogger(t), WithKeepalive(20*time.Millisecond))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	fs.waitReady(t)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, text := range fs.receivedTexts() {
			if strings.EqualFold(text, "PING") {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no keepalive PING arrived at the server")
}

func TestServerCloseNotifiesOnce(t *testing.T) {
	fs := newFrameServer(t)

	closed := make(chan error, 2)
	conn, err := Dial(context.Background(), fs.srv.URL, "",
		nil, func(cause error) { closed <- cause }, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	fs.waitReady(t).Close()

	select {
	case cause := <-closed:
		if !errors.Is(cause, ErrConnectionClosed) {
			t.Errorf("close cause = %v, want ErrConnectionClosed", cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onClosed never fired")
	}

	select {
	case <-closed:
		t.Error("onClosed fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLocalCloseReportsNilCause(t *testing.T) {
	fs := newFrameServer(t)

	closed := make(chan error, 1)
	conn, err := Dial(context.Background(), fs.srv.URL, "",
		nil, func(cause error) { closed <- cause }, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	fs.waitReady(t)

	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case cause := <-closed:
		if cause != nil {
			t.Errorf("local close reported cause %v, want nil", cause)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onClosed never fired")
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	if _, err := Dial(context.Background(), "ftp://example.com", "", nil, nil, zaptest.NewLogger(t)); err == nil {
		t.Error("dial accepted an unsupported scheme")
	}
}
