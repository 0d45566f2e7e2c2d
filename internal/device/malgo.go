package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// Context owns the miniaudio backend context shared by all streams of a
// process. Construct once at startup, Close on shutdown.
type Context struct {
	ctx    *malgo.AllocatedContext
	logger *zap.Logger
}

// NewContext initializes the audio backend.
func NewContext(logger *zap.Logger) (*Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %v", ErrDeviceAccess, err)
	}
	return &Context{ctx: ctx, logger: logger}, nil
}

// Close tears the backend down.
func (c *Context) Close() {
	if c.ctx == nil {
		return
	}
	if err := c.ctx.Uninit(); err != nil {
		c.logger.Warn("failed to uninit audio context", zap.Error(err))
	}
	c.ctx.Free()
	c.ctx = nil
}

// CaptureStream is the malgo-backed InputStream. The device runs at the
// requested rate with mono float32 frames.
type CaptureStream struct {
	parent     *Context
	sampleRate int
	logger     *zap.Logger

	mu      sync.Mutex
	device  *malgo.Device
	running bool
}

var _ InputStream = (*CaptureStream)(nil)

// NewCaptureStream prepares a capture stream; the device itself is
// acquired on Start so a denied microphone surfaces there.
func NewCaptureStream(parent *Context, sampleRate int, logger *zap.Logger) *CaptureStream {
	return &CaptureStream{parent: parent, sampleRate: sampleRate, logger: logger}
}

func (s *CaptureStream) SampleRate() int { return s.sampleRate }

// Start acquires the default input device and begins delivering blocks.
func (s *CaptureStream) Start(onBlock func(block []float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("device: capture stream already started")
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(s.sampleRate)
	cfg.Alsa.NoMMap = 1

	onRecv := func(_, pSample []byte, framecount uint32) {
		if framecount == 0 {
			return
		}
		onBlock(floatsFromF32Bytes(pSample, int(framecount)))
	}

	dev, err := malgo.InitDevice(s.parent.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onRecv})
	if err != nil {
		return fmt.Errorf("%w: init capture device: %v", ErrDeviceAccess, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("%w: start capture device: %v", ErrDeviceAccess, err)
	}

	s.device = dev
	s.running = true
	s.logger.Info("capture device started", zap.Int("sampleRate", s.sampleRate))
	return nil
}

// Stop halts delivery and releases the device. Safe to call twice.
func (s *CaptureStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.device.Uninit()
	s.device = nil
	s.logger.Info("capture device stopped")
	return nil
}

// PlaybackStream is the malgo-backed OutputStream.
type PlaybackStream struct {
	parent     *Context
	sampleRate int
	logger     *zap.Logger

	mu      sync.Mutex
	device  *malgo.Device
	running bool
}

var _ OutputStream = (*PlaybackStream)(nil)

// NewPlaybackStream prepares a playback stream at the given rate.
func NewPlaybackStream(parent *Context, sampleRate int, logger *zap.Logger) *PlaybackStream {
	return &PlaybackStream{parent: parent, sampleRate: sampleRate, logger: logger}
}

func (s *PlaybackStream) SampleRate() int { return s.sampleRate }

// Start acquires the default output device; pull is invoked from the
// device's own callback whenever it needs more samples.
func (s *PlaybackStream) Start(pull func(dst []float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("device: playback stream already started")
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(s.sampleRate)
	cfg.Alsa.NoMMap = 1

	var scratch []float32
	onSend := func(pOutput, _ []byte, framecount uint32) {
		n := int(framecount)
		if cap(scratch) < n {
			scratch = make([]float32, n)
		}
		dst := scratch[:n]
		pull(dst)
		for i, v := range dst {
			binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(v))
		}
	}

	dev, err := malgo.InitDevice(s.parent.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onSend})
	if err != nil {
		return fmt.Errorf("%w: init playback device: %v", ErrDeviceAccess, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("%w: start playback device: %v", ErrDeviceAccess, err)
	}

	s.device = dev
	s.running = true
	s.logger.Info("playback device started", zap.Int("sampleRate", s.sampleRate))
	return nil
}

// Stop halts playback and releases the device. Safe to call twice.
func (s *PlaybackStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.device.Uninit()
	s.device = nil
	s.logger.Info("playback device stopped")
	return nil
}

func floatsFromF32Bytes(data []byte, frames int) []float32 {
	out := make([]float32, frames)
	for i := 0; i < frames && i*4+4 <= len(data); i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
