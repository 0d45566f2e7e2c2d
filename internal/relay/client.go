// Package relay maintains the client side of the persistent audio
// connection: it dials the server, keeps the link alive with text
// pings, and hands every inbound binary frame to the caller.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrConnectionClosed reports that the link is gone and no further
// frames will be delivered.
var ErrConnectionClosed = errors.New("relay: connection closed")

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// DefaultKeepalive is how often the client sends the text "PING"
	// keepalive when no interval is configured.
	DefaultKeepalive = 25 * time.Second
)

// Conn is one live connection to the server. Inbound binary frames are
// delivered to onFrame in arrival order from a single goroutine;
// onClosed fires exactly once, after the last frame, with the cause.
type Conn struct {
	conn     *websocket.Conn
	logger   *zap.Logger
	onFrame  func([]byte)
	onClosed func(error)

	keepalive time.Duration

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// Option adjusts connection behavior.
type Option func(*Conn)

// WithKeepalive overrides the keepalive interval.
func WithKeepalive(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.keepalive = d
		}
	}
}

// Dial connects to the server's stream endpoint. serverURL is the http
// or ws base URL; streamID selects the stream, the server applies its
// default when empty.
func Dial(ctx context.Context, serverURL, streamID string, onFrame func([]byte), onClosed func(error), logger *zap.Logger, opts ...Option) (*Conn, error) {
	endpoint, err := streamEndpoint(serverURL, streamID)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", endpoint, err)
	}

	c := &Conn{
		conn:      conn,
		logger:    logger,
		onFrame:   onFrame,
		onClosed:  onClosed,
		keepalive: DefaultKeepalive,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	go c.keepaliveLoop()

	logger.Info("relay connected", zap.String("endpoint", endpoint))
	return c, nil
}

func streamEndpoint(serverURL, streamID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("relay: bad server URL %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("relay: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if streamID != "" {
		q := u.Query()
		q.Set("streamId", streamID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Close tears the connection down. Safe to call more than once and
// concurrently with inbound traffic.
func (c *Conn) Close() error {
	c.finish(nil)
	return nil
}

// finish shuts the connection down exactly once and reports the cause.
func (c *Conn) finish(cause error) {
	c.once.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.conn.Close()

		if c.onClosed != nil {
			c.onClosed(cause)
		}
	})
}

// readLoop delivers binary frames until the connection dies. Text
// messages are keepalive replies and are dropped.
func (c *Conn) readLoop() {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close already reported.
			default:
				c.logger.Info("relay connection lost", zap.Error(err))
				c.finish(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if c.onFrame != nil {
				c.onFrame(payload)
			}
		case websocket.TextMessage:
			if !strings.EqualFold(string(payload), "PONG") {
				c.logger.Debug("relay text message", zap.String("payload", string(payload)))
			}
		}
	}
}

// keepaliveLoop sends the application-level text ping the server
// expects from long-lived listeners.
func (c *Conn) keepaliveLoop() {
	ticker := time.NewTicker(c.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, []byte("PING"))
			c.writeMu.Unlock()
			if err != nil {
				c.finish(fmt.Errorf("%w: keepalive: %v", ErrConnectionClosed, err))
				return
			}
		}
	}
}
