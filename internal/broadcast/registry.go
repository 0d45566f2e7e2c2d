// Package broadcast maps stream identifiers to their connected
// listeners and fans binary frames out to them.
package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// Listener is a connection handle frames can be sent to. Send must not
// block the caller; implementations queue onto their own write pump.
type Listener interface {
	ID() string
	Send(frame []byte) error
}

// Registry is the server-wide stream table, constructed once at process
// startup and passed by handle to every component that needs it. There
// is no ambient global instance.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]map[Listener]struct{}
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		streams: make(map[string]map[Listener]struct{}),
		logger:  logger,
	}
}

// Register adds a listener to a stream, creating the stream entry on
// first use. Registering the same listener twice is harmless.
func (r *Registry) Register(streamID string, l Listener) {
	r.mu.Lock()
	set, ok := r.streams[streamID]
	if !ok {
		set = make(map[Listener]struct{})
		r.streams[streamID] = set
	}
	set[l] = struct{}{}
	count := len(set)
	r.mu.Unlock()

	r.logger.Info("listener registered",
		zap.String("streamID", streamID),
		zap.String("listenerID", l.ID()),
		zap.Int("listeners", count))
}

// Unregister removes a listener. Removing the last listener of a stream
// removes the stream entry itself, so no empty sets linger. Unknown
// streams and unknown listeners are no-ops.
func (r *Registry) Unregister(streamID string, l Listener) {
	r.mu.Lock()
	set, ok := r.streams[streamID]
	if ok {
		delete(set, l)
		if len(set) == 0 {
			delete(r.streams, streamID)
		}
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info("listener unregistered",
			zap.String("streamID", streamID),
			zap.String("listenerID", l.ID()))
	}
}

// Broadcast forwards one binary frame to every listener of the stream,
// best effort: a failing listener is logged and skipped, never aborting
// delivery to the others and never unregistering anyone. Broadcast to
// an unknown or empty stream is a silent no-op.
func (r *Registry) Broadcast(streamID string, frame []byte) {
	r.mu.RLock()
	set := r.streams[streamID]
	listeners := make([]Listener, 0, len(set))
	for l := range set {
		listeners = append(listeners, l)
	}
	r.mu.RUnlock()

	for _, l := range listeners {
		if err := l.Send(frame); err != nil {
			r.logger.Debug("frame dropped for listener",
				zap.String("streamID", streamID),
				zap.String("listenerID", l.ID()),
				zap.Error(err))
		}
	}
}

// ListenerCount reports how many listeners a stream currently has.
func (r *Registry) ListenerCount(streamID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams[streamID])
}

// StreamCount reports how many streams currently have listeners.
func (r *Registry) StreamCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}
