// Package turn gates which conversational side may transmit and when
// control passes to the other side. The coordinator is a plain state
// machine with no rendering or device concern, so it can be driven
// headlessly in tests.
package turn

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is one stage of a turn.
type State int

const (
	// StateIdle means no capture is active; the active side may start.
	StateIdle State = iota
	// StateCapturing means the active side is recording.
	StateCapturing
	// StateAwaitingResponse means the utterance was handed off and the
	// response has not started rendering yet.
	StateAwaitingResponse
	// StateRendering means the response audio is playing.
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateRendering:
		return "rendering"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Side is one of the two symmetric conversational roles.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Opposite returns the other role.
func (s Side) Opposite() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

var (
	// ErrLanguagesMatch means both sides are configured with the same
	// language, which disables the whole interaction.
	ErrLanguagesMatch = errors.New("turn: both sides use the same language")

	// ErrInvalidTransition means the requested transition is not legal
	// from the current state.
	ErrInvalidTransition = errors.New("turn: invalid transition")

	// ErrRenderTimeout is reported through OnTimeout when the rendering
	// safety ceiling forces the turn over.
	ErrRenderTimeout = errors.New("turn: rendering safety ceiling reached")
)

// DefaultRenderCeiling bounds StateRendering. Without a natural
// end-of-stream signal inside this window the coordinator forces the
// turn over so a misbehaving sender cannot stall the conversation.
const DefaultRenderCeiling = 18 * time.Second

// Coordinator is the per-session turn state machine. Transitions are
// strictly sequential: no second Start is valid while any stage of a
// turn is still active.
type Coordinator struct {
	langA, langB  string
	renderCeiling time.Duration
	logger        *zap.Logger

	// OnState, if set, observes every committed transition. Called
	// outside the lock.
	OnState func(state State, active Side)

	// OnTimeout, if set, observes forced flips caused by the rendering
	// safety ceiling. Called outside the lock.
	OnTimeout func()

	mu     sync.Mutex
	state  State
	active Side
	timer  *time.Timer
	epoch  uint64 // invalidates timers from finished turns
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithRenderCeiling overrides the rendering safety ceiling.
func WithRenderCeiling(d time.Duration) Option {
	return func(c *Coordinator) { c.renderCeiling = d }
}

// NewCoordinator creates a coordinator for two sides with the given
// languages. Side A speaks first.
func NewCoordinator(langA, langB string, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		langA:         langA,
		langB:         langB,
		renderCeiling: DefaultRenderCeiling,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current stage and active side.
func (c *Coordinator) State() (State, Side) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.active
}

// ActiveLang returns the language of the side currently holding the turn.
func (c *Coordinator) ActiveLang() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.langFor(c.active)
}

// PassiveLang returns the language the response must be rendered in.
func (c *Coordinator) PassiveLang() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.langFor(c.active.Opposite())
}

func (c *Coordinator) langFor(s Side) string {
	if s == SideA {
		return c.langA
	}
	return c.langB
}

// Start begins capture for the active side. Rejected with no state
// change when the two languages are identical or a turn is in flight.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.langA == c.langB {
		c.mu.Unlock()
		return ErrLanguagesMatch
	}
	if c.state != StateIdle {
		err := fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.state)
		c.mu.Unlock()
		return err
	}
	c.state = StateCapturing
	state, active := c.state, c.active
	c.mu.Unlock()

	c.notify(state, active)
	return nil
}

// Stop finalizes the capture stage; the caller hands the utterance to
// the processing collaborator and later reports ResponseReady.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if c.state != StateCapturing {
		err := fmt.Errorf("%w: stop from %s", ErrInvalidTransition, c.state)
		c.mu.Unlock()
		return err
	}
	c.state = StateAwaitingResponse
	state, active := c.state, c.active
	c.mu.Unlock()

	c.notify(state, active)
	return nil
}

// ResponseReady marks the beginning of rendering and arms the safety
// ceiling.
func (c *Coordinator) ResponseReady() error {
	c.mu.Lock()
	if c.state != StateAwaitingResponse {
		err := fmt.Errorf("%w: response ready from %s", ErrInvalidTransition, c.state)
		c.mu.Unlock()
		return err
	}
	c.state = StateRendering
	epoch := c.epoch
	c.timer = time.AfterFunc(c.renderCeiling, func() { c.renderTimeout(epoch) })
	state, active := c.state, c.active
	c.mu.Unlock()

	c.notify(state, active)
	return nil
}

// PlaybackEnded completes the turn: back to Idle with the active side
// flipped to the opposite role. Exactly one flip per successful turn.
func (c *Coordinator) PlaybackEnded() error {
	c.mu.Lock()
	if c.state != StateRendering {
		err := fmt.Errorf("%w: playback ended from %s", ErrInvalidTransition, c.state)
		c.mu.Unlock()
		return err
	}
	c.finishTurnLocked()
	c.active = c.active.Opposite()
	state, active := c.state, c.active
	c.mu.Unlock()

	c.logger.Info("turn completed", zap.String("nextSide", active.String()))
	c.notify(state, active)
	return nil
}

// Fail aborts the turn from any stage: back to Idle without flipping,
// so the same speaker may retry. Failing from Idle is a no-op.
func (c *Coordinator) Fail(cause error) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	from := c.state
	c.finishTurnLocked()
	state, active := c.state, c.active
	c.mu.Unlock()

	c.logger.Warn("turn failed",
		zap.String("from", from.String()),
		zap.String("side", active.String()),
		zap.Error(cause))
	c.notify(state, active)
}

// renderTimeout forces the turn over when rendering never signaled a
// natural end. Unlike Fail, the side flips: the stall was on the
// response path, not the speaker's.
func (c *Coordinator) renderTimeout(epoch uint64) {
	c.mu.Lock()
	if c.state != StateRendering || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.finishTurnLocked()
	c.active = c.active.Opposite()
	state, active := c.state, c.active
	c.mu.Unlock()

	c.logger.Warn("rendering safety ceiling reached, forcing turn over",
		zap.Duration("ceiling", c.renderCeiling),
		zap.String("nextSide", active.String()))
	c.notify(state, active)
	if c.OnTimeout != nil {
		c.OnTimeout()
	}
}

// finishTurnLocked returns to Idle and invalidates any pending timer.
func (c *Coordinator) finishTurnLocked() {
	c.state = StateIdle
	c.epoch++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) notify(state State, active Side) {
	if c.OnState != nil {
		c.OnState(state, active)
	}
}
