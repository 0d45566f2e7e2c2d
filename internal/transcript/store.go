package transcript

import "sync"

// Store maps session identifiers to their transcript buffers. Buffers
// are created lazily on first access and live until the session is
// explicitly removed.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Buffer
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Buffer)}
}

// GetOrCreate returns the buffer for a session, creating it on first use.
func (s *Store) GetOrCreate(sessionID string) *Buffer {
	s.mu.RLock()
	buf, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return buf
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.sessions[sessionID]; ok {
		return buf
	}
	buf = NewBuffer()
	s.sessions[sessionID] = buf
	return buf
}

// Get returns the buffer for a session, or nil when the session is
// unknown.
func (s *Store) Get(sessionID string) *Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// Remove ends a session, clearing and discarding its buffer.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	buf := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if buf != nil {
		buf.Clear()
	}
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
