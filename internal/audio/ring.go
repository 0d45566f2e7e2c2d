package audio

import "sync"

// DefaultCompactThreshold is the number of consumed samples after which
// the ring shifts its unread tail back to offset zero. Compacting on a
// threshold instead of on every pull bounds peak memory under sustained
// streaming without paying the copy per callback.
const DefaultCompactThreshold = 8192

// Ring is a growable PCM byte queue with a read cursor. Producers push
// whole binary frames (16-bit little-endian mono); the consumer pulls
// float samples at the audio device's own pace and reads silence once
// the buffer is exhausted.
//
// It is a plain value type with no device dependency so the push/pull
// arithmetic can be tested without live audio hardware.
type Ring struct {
	mu        sync.Mutex
	buf       []byte
	cursor    int // read position in bytes, always <= len(buf)
	compactAt int // threshold in bytes
}

// NewRing creates a ring that compacts after compactThreshold consumed
// samples. Zero or negative picks DefaultCompactThreshold.
func NewRing(compactThreshold int) *Ring {
	if compactThreshold <= 0 {
		compactThreshold = DefaultCompactThreshold
	}
	return &Ring{compactAt: compactThreshold * 2}
}

// Push appends one binary frame. It never blocks beyond the internal
// lock and is safe to call from a connection receive handler.
func (r *Ring) Push(frame []byte) {
	if len(frame) == 0 {
		return
	}
	r.mu.Lock()
	r.buf = append(r.buf, frame...)
	r.mu.Unlock()
}

// Pull fills dst with the next samples, converting 16-bit PCM to floats
// in [-1, 1], and zero-fills whatever the buffer cannot cover. It
// returns the number of real samples delivered.
//
// Full consumption resets the buffer to empty; otherwise, once the read
// cursor has advanced past the compaction threshold, the unread tail is
// shifted to offset zero and the cursor reset.
func (r *Ring) Pull(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	avail := (len(r.buf) - r.cursor) / 2
	n := len(dst)
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		v := int16(uint16(r.buf[r.cursor]) | uint16(r.buf[r.cursor+1])<<8)
		dst[i] = clampUnit(FloatFromInt16(v))
		r.cursor += 2
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}

	switch {
	case r.cursor == len(r.buf):
		// Fully consumed; drop the backing array rather than retain a
		// zero-length tail.
		r.buf = nil
		r.cursor = 0
	case r.cursor > r.compactAt:
		remaining := copy(r.buf, r.buf[r.cursor:])
		r.buf = r.buf[:remaining]
		r.cursor = 0
	}
	return n
}

// Buffered reports the number of unread samples.
func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (len(r.buf) - r.cursor) / 2
}

// Reset discards all buffered data.
func (r *Ring) Reset() {
	r.mu.Lock()
	r.buf = nil
	r.cursor = 0
	r.mu.Unlock()
}

func clampUnit(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
