// Package engine coordinates the speech toggles mounted on one page: it
// builds a narration controller per declared control, keeps them in the
// control store and tracks keyboard focus along the tab order.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
	"github.com/hammamikhairi/readaloud/internal/narration"
	"github.com/hammamikhairi/readaloud/internal/page"
)

// SpeechFactory returns the speech engine a control will drive. Each
// control gets its own, since an engine has a single listener.
type SpeechFactory func(spec page.ControlSpec) (domain.SpeechEngine, error)

// Option configures the engine.
type Option func(*Engine)

// WithSink sets where every control emits its lifecycle events.
func WithSink(sink domain.EventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// ControlInfo describes one mounted control for display.
type ControlInfo struct {
	Status  domain.Status
	Spec    page.ControlSpec
	Focused bool
}

type mounted struct {
	ctrl   *narration.Controller
	speech domain.SpeechEngine
	spec   page.ControlSpec
}

// Engine manages the controls of a page. It depends only on interfaces
// and is fully testable with fakes.
type Engine struct {
	store     domain.ControlStore
	resolver  domain.TextResolver
	newSpeech SpeechFactory
	sink      domain.EventSink
	log       *logger.Logger

	mu      sync.Mutex
	mounted map[string]*mounted
	order   []string // identities in tab order
	focus   int
}

// New creates a page engine with the given dependencies and options.
func New(store domain.ControlStore, resolver domain.TextResolver, newSpeech SpeechFactory, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		resolver:  resolver,
		newSpeech: newSpeech,
		log:       log,
		mounted:   make(map[string]*mounted),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mount creates a controller for every spec, in the given order, which
// becomes the tab order. The first focusable control takes focus.
func (e *Engine) Mount(ctx context.Context, specs []page.ControlSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, spec := range specs {
		if spec.ID != "" {
			if _, dup := e.mounted[spec.ID]; dup {
				return fmt.Errorf("mounting control %q: %w", spec.ID, domain.ErrAlreadyExists)
			}
		}
		if err := spec.Voice.Validate(); err != nil {
			e.log.Warn("control %q: %v, the engine will clamp it", spec.ID, err)
		}

		speech, err := e.newSpeech(spec)
		if err != nil {
			return fmt.Errorf("creating speech engine for %q: %w", spec.ID, err)
		}

		ctrl := narration.New(speech, e.resolver, e.sink, e.log,
			narration.WithIdentity(spec.ID),
			narration.WithTextIDs(spec.TextIDs),
			narration.WithVoice(spec.Voice),
			narration.WithVerbose(spec.Verbose),
		)
		id := ctrl.Identity()

		if err := e.store.Save(ctx, ctrl); err != nil {
			return fmt.Errorf("saving control %s: %w", id, err)
		}
		e.mounted[id] = &mounted{ctrl: ctrl, speech: speech, spec: spec}
		e.order = append(e.order, id)
		if !e.focusableLocked(e.focus) && spec.Focusable() {
			e.focus = len(e.order) - 1
		}
		e.log.Info("mounted control %s (textids=%q, lang=%s)", id, spec.TextIDs, spec.Voice.Language)
	}
	return nil
}

// Focused returns the control holding keyboard focus.
func (e *Engine) Focused(ctx context.Context) (domain.Control, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focusedLocked(ctx)
}

// FocusNext moves focus to the next focusable control in tab order,
// wrapping around. Focus stays put when no other control is focusable.
func (e *Engine) FocusNext(ctx context.Context) (domain.Control, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.order) == 0 {
		return nil, domain.ErrNotFound
	}
	for step := 1; step <= len(e.order); step++ {
		next := (e.focus + step) % len(e.order)
		if e.focusableLocked(next) {
			e.focus = next
			break
		}
	}
	return e.focusedLocked(ctx)
}

// Focus moves focus to the control with the given identity.
func (e *Engine) Focus(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, o := range e.order {
		if o == id {
			e.focus = i
			return nil
		}
	}
	return domain.ErrNotFound
}

// Toggle activates a control like a click: it takes focus and flips its
// pressed state. An empty id means the focused control.
func (e *Engine) Toggle(ctx context.Context, id string) (domain.Status, error) {
	c, err := e.resolve(ctx, id)
	if err != nil {
		return domain.Status{}, err
	}
	if err := e.Focus(ctx, c.Identity()); err != nil {
		return domain.Status{}, err
	}
	c.Toggle()
	return c.Status(), nil
}

// Status returns the snapshot of a control. An empty id means the
// focused control.
func (e *Engine) Status(ctx context.Context, id string) (ControlInfo, error) {
	c, err := e.resolve(ctx, id)
	if err != nil {
		return ControlInfo{}, err
	}
	return e.info(c), nil
}

// Pause holds the speech engine of a control mid-utterance. The control
// hears about it through its engine callbacks. A control that is not
// narrating is left alone, so its next press starts right away.
func (e *Engine) Pause(ctx context.Context, id string) error {
	m, err := e.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !m.ctrl.Pressed() {
		e.log.Debug("control %s is not narrating, nothing to pause", m.ctrl.Identity())
		return nil
	}
	m.speech.Pause()
	return nil
}

// Resume continues a paused speech engine.
func (e *Engine) Resume(ctx context.Context, id string) error {
	m, err := e.lookup(ctx, id)
	if err != nil {
		return err
	}
	m.speech.Resume()
	return nil
}

// SetTextIDs changes which elements a control reads. A session already
// running keeps its fragments; the next press picks up the new list.
func (e *Engine) SetTextIDs(ctx context.Context, id, textIDs string) error {
	m, err := e.lookup(ctx, id)
	if err != nil {
		return err
	}
	m.ctrl.SetTextIDs(textIDs)

	e.mu.Lock()
	m.spec.TextIDs = textIDs
	e.mu.Unlock()
	return nil
}

// List returns every mounted control in tab order.
func (e *Engine) List(ctx context.Context) ([]ControlInfo, error) {
	controls, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing controls: %w", err)
	}
	out := make([]ControlInfo, 0, len(controls))
	for _, c := range controls {
		out = append(out, e.info(c))
	}
	return out, nil
}

// StopAll unpresses every narrating control.
func (e *Engine) StopAll(ctx context.Context) error {
	pressed, err := e.store.ListPressed(ctx)
	if err != nil {
		return fmt.Errorf("listing pressed controls: %w", err)
	}
	for _, c := range pressed {
		e.log.Debug("stopping control %s", c.Identity())
		c.Toggle()
	}
	return nil
}

// resolve loads a control by identity, or the focused one for "".
func (e *Engine) resolve(ctx context.Context, id string) (domain.Control, error) {
	if id == "" {
		return e.Focused(ctx)
	}
	c, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("control %q: %w", id, err)
	}
	return c, nil
}

func (e *Engine) lookup(ctx context.Context, id string) (*mounted, error) {
	c, err := e.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.mounted[c.Identity()]
	if !ok {
		return nil, fmt.Errorf("control %q: %w", c.Identity(), domain.ErrNotFound)
	}
	return m, nil
}

func (e *Engine) focusableLocked(i int) bool {
	if i >= len(e.order) {
		return false
	}
	return e.mounted[e.order[i]].spec.Focusable()
}

func (e *Engine) focusedLocked(ctx context.Context) (domain.Control, error) {
	if len(e.order) == 0 {
		return nil, domain.ErrNotFound
	}
	return e.store.Load(ctx, e.order[e.focus])
}

func (e *Engine) info(c domain.Control) ControlInfo {
	st := c.Status()

	e.mu.Lock()
	defer e.mu.Unlock()

	info := ControlInfo{Status: st}
	if m, ok := e.mounted[st.Identity]; ok {
		info.Spec = m.spec
	}
	if len(e.order) > 0 && e.order[e.focus] == st.Identity {
		info.Focused = true
	}
	return info
}
