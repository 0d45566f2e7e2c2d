// Package playback renders inbound audio, either as a continuous ring-fed
// stream or as a one-shot decode of a complete payload.
package playback

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/internal/audio"
	"github.com/voxbridge/voxbridge/internal/device"
)

// ErrEmptyPayload reports a zero-byte response. Distinct from a decode
// failure so the caller can report "no data" rather than "bad format".
var ErrEmptyPayload = errors.New("playback: empty audio payload")

// Engine drives one output stream in one of two delivery models:
//
// Streamed: binary frames arrive asynchronously over a persistent
// connection and are pushed into a ring buffer; the device's pull
// callback drains it, reading silence on underrun.
//
// One-shot: a complete container payload is decoded up front and played
// to completion, with a done notification for the turn flip.
type Engine struct {
	stream device.OutputStream
	ring   *audio.Ring
	logger *zap.Logger

	mu      sync.Mutex
	mode    mode
	onLevel func(float64)
}

type mode int

const (
	modeIdle mode = iota
	modeStreaming
	modeOneShot
)

// NewEngine creates an engine over the given output stream.
func NewEngine(stream device.OutputStream, logger *zap.Logger) *Engine {
	return &Engine{
		stream: stream,
		ring:   audio.NewRing(audio.DefaultCompactThreshold),
		logger: logger,
	}
}

// StartStream opens the device for ring-fed playback. onLevel, if
// non-nil, receives the perceptual loudness of every pulled block.
func (e *Engine) StartStream(onLevel func(level float64)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != modeIdle {
		return fmt.Errorf("playback: engine busy")
	}

	e.onLevel = onLevel
	err := e.stream.Start(func(dst []float32) {
		e.ring.Pull(dst)
		if onLevel != nil {
			onLevel(audio.BlockLevel(dst))
		}
	})
	if err != nil {
		return err
	}
	e.mode = modeStreaming
	e.logger.Info("streamed playback started", zap.Int("sampleRate", e.stream.SampleRate()))
	return nil
}

// Push hands one inbound binary frame to the ring buffer. It never
// blocks the producer and is safe to call from a connection receive
// handler regardless of engine state.
func (e *Engine) Push(frame []byte) {
	e.ring.Push(frame)
}

// StopStream halts the device and discards buffered audio. Safe on
// every exit path; stopping an idle engine is a no-op.
func (e *Engine) StopStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != modeStreaming {
		return nil
	}
	e.mode = modeIdle
	err := e.stream.Stop()
	e.ring.Reset()
	if e.onLevel != nil {
		e.onLevel(0)
		e.onLevel = nil
	}
	e.logger.Info("streamed playback stopped")
	return err
}

// PlayOnce decodes a complete container payload and plays it to the
// end. onDone fires exactly once after the final sample has been pulled
// and the device released. Decode failures and empty payloads surface
// before any device is touched.
func (e *Engine) PlayOnce(payload []byte, onLevel func(level float64), onDone func()) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	quantized, rate, err := audio.DecodeWAV(payload)
	if err != nil {
		return err
	}
	samples := audio.FloatsFromInt16s(quantized)
	if rate != e.stream.SampleRate() {
		samples = audio.Resample(samples, rate, e.stream.SampleRate())
	}
	if len(samples) == 0 {
		return ErrEmptyPayload
	}

	e.mu.Lock()
	if e.mode != modeIdle {
		e.mu.Unlock()
		return fmt.Errorf("playback: engine busy")
	}
	e.mode = modeOneShot
	e.mu.Unlock()

	// cursor is touched only inside the pull callback, which the audio
	// backend serializes.
	cursor := 0
	finished := make(chan struct{})
	var once sync.Once

	err = e.stream.Start(func(dst []float32) {
		n := copy(dst, samples[cursor:])
		cursor += n
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
		if onLevel != nil {
			onLevel(audio.BlockLevel(dst))
		}
		if cursor >= len(samples) {
			once.Do(func() { close(finished) })
		}
	})
	if err != nil {
		e.mu.Lock()
		e.mode = modeIdle
		e.mu.Unlock()
		return err
	}

	go func() {
		<-finished
		if err := e.stream.Stop(); err != nil {
			e.logger.Warn("failed to stop output stream", zap.Error(err))
		}
		e.mu.Lock()
		e.mode = modeIdle
		e.mu.Unlock()
		if onLevel != nil {
			onLevel(0)
		}
		if onDone != nil {
			onDone()
		}
	}()

	e.logger.Info("one-shot playback started",
		zap.Int("samples", len(samples)),
		zap.Int("sampleRate", e.stream.SampleRate()))
	return nil
}

// Buffered reports the number of unread streamed samples.
func (e *Engine) Buffered() int {
	return e.ring.Buffered()
}
