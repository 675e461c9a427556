// Package narration implements the speech toggle state machine: it turns a
// list of text fragments into one sequential, cancelable narration session
// and reconciles asynchronous engine callbacks with the pressed state and
// the outward lifecycle events.
package narration

import (
	"sync"
	"time"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Control        = (*Controller)(nil)
	_ domain.EngineListener = (*Controller)(nil)
)

// Option configures the controller.
type Option func(*Controller)

// WithIdentity sets a host-supplied identity. Without it one is generated.
func WithIdentity(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.identity = id
		}
	}
}

// WithTextIDs sets the comma-separated element ids to narrate.
func WithTextIDs(ids string) Option {
	return func(c *Controller) {
		c.textIDs = ids
	}
}

// WithVoice sets the voice configuration for new sessions.
func WithVoice(v domain.VoiceConfig) Option {
	return func(c *Controller) {
		c.voice = v
	}
}

// WithVerbose turns on debug logging for this controller only.
func WithVerbose(on bool) Option {
	return func(c *Controller) {
		c.verbose = on
	}
}

// transitions lists the legal moves of the state machine. Anything else is
// refused.
var transitions = map[domain.PlaybackState][]domain.PlaybackState{
	domain.StateIdle:     {domain.StateSpeaking},
	domain.StateSpeaking: {domain.StateSpeaking, domain.StateIdle, domain.StatePaused, domain.StateFailed},
	domain.StatePaused:   {domain.StateSpeaking, domain.StateIdle, domain.StateFailed},
	domain.StateFailed:   {domain.StateIdle},
}

// Controller owns one narration session at a time for one speech toggle.
// All entry points are serialized, so engine callbacks arriving on another
// goroutine are processed one at a time, as are toggles.
type Controller struct {
	engine   domain.SpeechEngine
	resolver domain.TextResolver
	sink     domain.EventSink
	log      *logger.Logger
	verbose  bool

	mu         sync.Mutex
	identity   string
	textIDs    string
	voice      domain.VoiceConfig
	state      domain.PlaybackState
	generation uint64
	session    *session
}

// New creates a controller and registers it as the engine's listener.
func New(engine domain.SpeechEngine, resolver domain.TextResolver, sink domain.EventSink, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		engine:   engine,
		resolver: resolver,
		sink:     sink,
		voice:    domain.DefaultVoice(),
		state:    domain.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.identity == "" {
		c.identity = generateID()
	}
	if c.sink == nil {
		c.sink = discardSink{}
	}
	c.log = log.WithField("control", c.identity)
	if c.verbose {
		c.log.SetLevel(logger.LevelVerbose)
	}

	engine.SetListener(c)
	return c
}

// Identity returns the stable identity used to tag emitted events.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Pressed reports the toggle state shown to the user.
func (c *Controller) Pressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Pressed()
}

// State returns the current playback state.
func (c *Controller) State() domain.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := domain.Status{
		Identity:   c.identity,
		State:      c.state,
		Pressed:    c.state.Pressed(),
		Generation: c.generation,
		Cursor:     -1,
		TextIDs:    c.textIDs,
	}
	if c.session != nil {
		st.Cursor = c.session.cursor
		st.Fragments = len(c.session.fragments)
	}
	return st
}

// SetTextIDs changes the element ids narrated by the next session.
func (c *Controller) SetTextIDs(ids string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textIDs = ids
}

// SetVoice changes the voice used by the next session. A live session
// keeps the voice it started with.
func (c *Controller) SetVoice(v domain.VoiceConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = v
}

// Toggle flips the pressed state. Pressing starts a fresh session from the
// first fragment; unpressing cancels the engine queue without waiting for
// it and emits the stop event right away. Toggle never blocks on speech.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("toggle requested in state %s", c.state)
	if c.state.Pressed() {
		c.cancelLocked()
		return
	}
	c.startLocked()
}

// HandleEngineStarted is called when a queued fragment begins speaking.
func (c *Controller) HandleEngineStarted(ref domain.UtteranceRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.liveLocked(ref, "started") {
		return
	}
	if ref.Index != c.session.cursor {
		c.log.Warn("fragment %d started while cursor is at %d", ref.Index, c.session.cursor)
	}
	if !c.transitionLocked(domain.StateSpeaking) {
		return
	}
	c.session.cursor = ref.Index
	c.log.Debug("narration started (fragment %d/%d)", ref.Index+1, len(c.session.fragments))
	c.emitLocked(domain.EventStarted)
}

// HandleEngineFinished is called when a fragment completes normally. Only
// the last fragment ends the session and emits finished.
func (c *Controller) HandleEngineFinished(ref domain.UtteranceRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.liveLocked(ref, "finished") {
		return
	}
	c.session.finished++

	if !c.session.isLast(ref.Index) {
		c.session.cursor = ref.Index + 1
		c.log.Debug("fragment %d finished, next is %d", ref.Index, c.session.cursor)
		return
	}

	if !c.transitionLocked(domain.StateIdle) {
		return
	}
	c.session = nil
	c.log.Debug("narration finished")
	c.emitLocked(domain.EventFinished)
}

// HandleEnginePaused is called when the engine pauses mid-fragment. The
// session is kept, but a later toggle starts over from the first fragment.
func (c *Controller) HandleEnginePaused(ref domain.UtteranceRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.liveLocked(ref, "paused") {
		return
	}
	if !c.transitionLocked(domain.StatePaused) {
		return
	}
	c.log.Debug("narration paused at fragment %d", ref.Index)
	c.emitLocked(domain.EventPaused)
}

// HandleEngineFailed is called when the engine fails a fragment. The rest
// of the session is dropped; nothing is retried.
func (c *Controller) HandleEngineFailed(ref domain.UtteranceRef, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.liveLocked(ref, "failed") {
		return
	}
	c.log.Error("narration failed at fragment %d: %v", ref.Index, err)
	c.engine.CancelAll()
	c.failLocked()
}

// startLocked resolves fragments and queues a brand new session.
func (c *Controller) startLocked() {
	// The engine may still hold a paused session, or a pause that landed
	// after the last fragment ended. Either would stall the new one.
	c.engine.CancelAll()
	c.session = nil

	fragments := c.resolver.ResolveFragments(c.textIDs)
	if len(fragments) == 0 {
		c.log.Warn("no text resolved for %q, using fallback", c.textIDs)
		fragments = []string{domain.FallbackText}
	}

	if !c.transitionLocked(domain.StateSpeaking) {
		return
	}
	c.generation++
	c.session = newSession(c.generation, fragments, c.voice)
	c.log.Debug("session %d: queueing %d fragment(s)", c.generation, len(fragments))

	for _, u := range c.session.utterances() {
		if err := c.engine.Enqueue(u); err != nil {
			c.log.Error("session %d: enqueue fragment %d: %v", c.generation, u.Index, err)
			c.engine.CancelAll()
			c.failLocked()
			return
		}
	}
}

// cancelLocked stops the live session. Cancellation is fire-and-forget:
// late callbacks for this generation are discarded as stale.
func (c *Controller) cancelLocked() {
	c.engine.CancelAll()

	ev := domain.EventPaused
	if c.session != nil && c.session.complete() {
		ev = domain.EventFinished
	}
	if !c.transitionLocked(domain.StateIdle) {
		return
	}
	c.session = nil
	c.log.Debug("narration cancelled")
	c.emitLocked(ev)
}

// failLocked moves through Failed back to Idle and emits failed.
func (c *Controller) failLocked() {
	if !c.transitionLocked(domain.StateFailed) {
		return
	}
	c.session = nil
	c.transitionLocked(domain.StateIdle)
	c.emitLocked(domain.EventFailed)
}

// liveLocked reports whether a callback belongs to the live session.
func (c *Controller) liveLocked(ref domain.UtteranceRef, what string) bool {
	if c.session.owns(ref) {
		return true
	}
	c.log.Debug("dropping stale %s callback (generation %d, fragment %d)", what, ref.Generation, ref.Index)
	return false
}

func (c *Controller) transitionLocked(to domain.PlaybackState) bool {
	for _, allowed := range transitions[c.state] {
		if allowed == to {
			if c.state != to {
				c.log.Debug("state %s -> %s", c.state, to)
			}
			c.state = to
			return true
		}
	}
	c.log.Warn("refusing illegal transition %s -> %s", c.state, to)
	return false
}

func (c *Controller) emitLocked(t domain.EventType) {
	c.sink.Emit(domain.Event{Type: t, Identity: c.identity, Time: time.Now()})
}

type discardSink struct{}

func (discardSink) Emit(domain.Event) {}
