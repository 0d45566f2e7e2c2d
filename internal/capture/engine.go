// Package capture turns a live input stream into finalized utterances.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/entities"
	"github.com/voxbridge/voxbridge/internal/audio"
	"github.com/voxbridge/voxbridge/internal/device"
)

// ErrEmptyCapture reports a Stop with zero accumulated samples. The
// capture surfaces this instead of returning a zero-length utterance so
// the caller can keep the turn with the same speaker.
var ErrEmptyCapture = errors.New("capture: no audio accumulated")

// Engine accumulates microphone blocks while recording and finalizes
// one encoded utterance on Stop: blocks are merged, resampled to the
// canonical target rate, quantized to 16-bit and wrapped in the
// container format. All of that happens off the audio callback path.
//
// The callback hands blocks off by appending to a pending list under a
// dedicated lock held only for the append or the consumer's swap, so
// the callback never waits on accumulation work and no block is ever
// dropped.
type Engine struct {
	stream device.InputStream
	logger *zap.Logger

	mu        sync.Mutex
	recording bool
	notify    chan struct{}
	done      chan struct{}

	// blockMu guards only the pending hand-off list. The consumer swaps
	// the whole list out, so neither side holds it across sample copies.
	blockMu sync.Mutex
	pending [][]float32

	// acc is touched only by the consumer goroutine while recording and
	// by Stop after the consumer has exited.
	acc []float32
}

// NewEngine creates an engine over the given input stream.
func NewEngine(stream device.InputStream, logger *zap.Logger) *Engine {
	return &Engine{stream: stream, logger: logger}
}

// Start acquires the input device and begins accumulating. onLevel, if
// non-nil, receives the perceptual loudness of every block; it is
// invoked from the consumer goroutine, never from the audio callback
// itself.
func (e *Engine) Start(onLevel func(level float64)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recording {
		return fmt.Errorf("capture: already recording")
	}

	e.notify = make(chan struct{}, 1)
	e.done = make(chan struct{})
	e.acc = nil
	e.pending = nil

	notify, done := e.notify, e.done
	go e.consume(notify, done, onLevel)

	err := e.stream.Start(func(block []float32) {
		// Audio callback context: copy, append under the short
		// hand-off lock and return.
		cp := make([]float32, len(block))
		copy(cp, block)
		e.blockMu.Lock()
		e.pending = append(e.pending, cp)
		e.blockMu.Unlock()
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	if err != nil {
		close(e.notify)
		<-e.done
		return err
	}

	e.recording = true
	e.logger.Info("capture started", zap.Int("sampleRate", e.stream.SampleRate()))
	return nil
}

// consume drains the pending list into the accumulator until notify is
// closed, then drains whatever arrived last.
func (e *Engine) consume(notify <-chan struct{}, done chan<- struct{}, onLevel func(float64)) {
	defer close(done)
	for range notify {
		e.drain(onLevel)
	}
	e.drain(onLevel)
}

func (e *Engine) drain(onLevel func(float64)) {
	e.blockMu.Lock()
	blocks := e.pending
	e.pending = nil
	e.blockMu.Unlock()

	for _, block := range blocks {
		e.acc = append(e.acc, block...)
		if onLevel != nil {
			onLevel(audio.BlockLevel(block))
		}
	}
}

// Stop halts input delivery, releases the device and finalizes the
// utterance. Every block the callback delivered before the device
// stopped is part of the result. Returns ErrEmptyCapture when nothing
// was accumulated.
func (e *Engine) Stop() (*entities.Utterance, error) {
	e.mu.Lock()
	if !e.recording {
		e.mu.Unlock()
		return nil, fmt.Errorf("capture: not recording")
	}
	e.recording = false
	notify := e.notify
	done := e.done
	e.notify = nil
	e.done = nil
	e.mu.Unlock()

	// Release the device first so no further callbacks race the final
	// drain.
	if err := e.stream.Stop(); err != nil {
		e.logger.Warn("failed to stop input stream", zap.Error(err))
	}
	close(notify)
	<-done

	samples := e.acc
	e.acc = nil

	if len(samples) == 0 {
		return nil, ErrEmptyCapture
	}

	resampled := audio.Resample(samples, e.stream.SampleRate(), entities.TargetSampleRate)
	quantized := audio.Int16sFromFloats(resampled)
	data, err := audio.EncodeWAV(quantized, entities.TargetSampleRate)
	if err != nil {
		return nil, fmt.Errorf("capture: finalize utterance: %w", err)
	}

	u := &entities.Utterance{
		Data:        data,
		SampleRate:  entities.TargetSampleRate,
		SampleCount: len(quantized),
	}
	e.logger.Info("capture finalized",
		zap.Int("samples", u.SampleCount),
		zap.Duration("duration", u.Duration()))
	return u, nil
}

// Recording reports whether the engine is currently capturing.
func (e *Engine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}
