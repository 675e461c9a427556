package domain

import "context"

// TextResolver turns a comma-separated list of element ids into the
// fragments to narrate, in presentation order. Implementations never
// return an empty slice for a blank list; they may for a list whose ids
// all fail to resolve, in which case the caller substitutes FallbackText.
type TextResolver interface {
	ResolveFragments(idList string) []string
}

// EngineListener receives per-utterance callbacks from a SpeechEngine.
// Callbacks for one utterance arrive in the order start, then one of
// finish, pause or fail.
type EngineListener interface {
	HandleEngineStarted(ref UtteranceRef)
	HandleEngineFinished(ref UtteranceRef)
	HandleEnginePaused(ref UtteranceRef)
	HandleEngineFailed(ref UtteranceRef, err error)
}

// SpeechEngine is the platform speech capability. It speaks queued
// utterances one at a time in submission order. None of its methods
// block on speech.
type SpeechEngine interface {
	SetListener(l EngineListener)
	Enqueue(u Utterance) error
	CancelAll()
	Pause()
	Resume()
}

// EventSink receives outward lifecycle events. Emit is called while the
// emitting controller holds its lock, so it must not call back into it.
type EventSink interface {
	Emit(ev Event)
}

// Control is one speech toggle hosted on a page.
type Control interface {
	Identity() string
	Toggle()
	Pressed() bool
	Status() Status
}

// ControlStore keeps the controls of a page. Implementations can be
// in-memory or anything else.
type ControlStore interface {
	Save(ctx context.Context, c Control) error
	Load(ctx context.Context, id string) (Control, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Control, error)
	ListPressed(ctx context.Context) ([]Control, error)
}

// IntentParser turns a line of user input into an intent.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}
