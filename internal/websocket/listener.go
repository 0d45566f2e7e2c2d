// Package websocket carries the persistent duplex audio connection on
// the server side: listeners attach to a stream and receive its binary
// PCM frames until they disconnect.
package websocket

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/internal/broadcast"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024

	// Outbound frame queue per listener. A listener that falls this far
	// behind starts losing frames rather than stalling the broadcaster.
	sendQueueSize = 256
)

// DefaultStreamID is used when a connection does not name a stream.
const DefaultStreamID = "main"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// writeData is one queued outbound message: PONG replies are text,
// audio frames are binary.
type writeData struct {
	messageType int
	payload     []byte
}

// Listener is one attached connection. Frames queue onto a buffered
// channel drained by a single write pump, which preserves per-listener
// delivery order without letting one slow peer block the broadcaster.
type Listener struct {
	id       string
	streamID string
	conn     *websocket.Conn
	send     chan writeData
	done     chan struct{} // closed when the read pump exits
	registry *broadcast.Registry
	logger   *zap.Logger
}

var _ broadcast.Listener = (*Listener)(nil)

// ID identifies the listener in logs.
func (l *Listener) ID() string { return l.id }

// Send queues one binary frame. It never blocks: when the queue is
// full the frame is dropped and an error returned for the registry to
// log. Send failures never unregister the listener; only the
// connection-close path does.
func (l *Listener) Send(frame []byte) error {
	select {
	case l.send <- writeData{messageType: websocket.BinaryMessage, payload: frame}:
		return nil
	default:
		return fmt.Errorf("websocket: send queue full for listener %s", l.id)
	}
}

// Serve upgrades the request and attaches the connection as a listener
// on the stream named by the streamId query parameter.
func Serve(registry *broadcast.Registry, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	streamID := c.QueryParam("streamId")
	if streamID == "" {
		streamID = DefaultStreamID
	}

	l := &Listener{
		id:       uuid.NewString(),
		streamID: streamID,
		conn:     conn,
		send:     make(chan writeData, sendQueueSize),
		done:     make(chan struct{}),
		registry: registry,
		logger:   logger,
	}

	registry.Register(streamID, l)

	go l.writePump()
	go l.readPump()

	return nil
}

// readPump consumes inbound messages until the connection dies, then
// unregisters the listener. The only inbound protocol is the text
// keepalive: "PING" (any case) is answered with "PONG".
func (l *Listener) readPump() {
	defer func() {
		l.registry.Unregister(l.streamID, l)
		close(l.done)
		l.conn.Close()
	}()

	l.conn.SetReadLimit(maxMessageSize)
	l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		l.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l.logger.Error("websocket error",
					zap.String("listenerID", l.id),
					zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if strings.EqualFold(string(message), "PING") {
				select {
				case l.send <- writeData{messageType: websocket.TextMessage, payload: []byte("PONG")}:
				default:
				}
			}
			// Any inbound message also refreshes the read deadline.
			l.conn.SetReadDeadline(time.Now().Add(pongWait))
		case websocket.BinaryMessage:
			// Listeners only receive audio; inbound binary goes through
			// the ingest endpoint instead.
			l.logger.Warn("unexpected binary message from listener",
				zap.String("listenerID", l.id),
				zap.Int("size", len(message)))
		}
	}
}

// writePump drains the send queue onto the connection and keeps the
// peer alive with protocol-level pings.
func (l *Listener) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		l.conn.Close()
	}()

	for {
		select {
		case <-l.done:
			l.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-l.send:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(message.messageType, message.payload); err != nil {
				l.logger.Debug("failed to write to listener",
					zap.String("listenerID", l.id),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
