// Package transcript keeps the per-session utterance log.
package transcript

import (
	"sync"

	"github.com/voxbridge/voxbridge/domain/entities"
)

// Buffer is an append-only sequence of transcript entries with
// identifiers assigned strictly increasing from 1. Safe for concurrent
// appenders and readers.
type Buffer struct {
	mu      sync.RWMutex
	entries []entities.TranscriptEntry
	nextID  int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{nextID: 1}
}

// Append records one utterance and returns its assigned identifier.
// Identifier order always matches append order.
func (b *Buffer) Append(t, dur float64, speaker, lang, text string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.entries = append(b.entries, entities.TranscriptEntry{
		ID:      id,
		T:       t,
		Dur:     dur,
		Speaker: speaker,
		Lang:    lang,
		Text:    text,
	})
	return id
}

// Snapshot returns a copy reflecting entries appended strictly before
// the call. The copy never aliases internal storage.
func (b *Buffer) Snapshot() []entities.TranscriptEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]entities.TranscriptEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports the number of entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Clear discards all entries and restarts identifiers at 1.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.nextID = 1
}
