package domain

import "time"

// FallbackText is narrated when a control has no resolvable text.
const FallbackText = "No text available, therefore no narration possible."

// PlaybackState is the explicit state of a narration controller.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateSpeaking
	StatePaused
	StateFailed
)

// String returns a human-readable playback state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pressed reports the toggle state the UI shows for this playback state.
// Only Speaking maps to pressed.
func (s PlaybackState) Pressed() bool {
	return s == StateSpeaking
}

// UtteranceRef identifies one fragment of one session. Engine callbacks
// carry it back so stale callbacks can be told apart from live ones.
type UtteranceRef struct {
	Generation uint64
	Index      int
}

// Utterance is a single fragment handed to the speech engine.
type Utterance struct {
	UtteranceRef
	Text  string
	Voice VoiceConfig
}

// Status is a snapshot of a controller, safe to hand out.
type Status struct {
	Identity   string
	State      PlaybackState
	Pressed    bool
	Generation uint64
	Cursor     int // -1 when no session is live
	Fragments  int
	TextIDs    string
}

// EventType names the outward lifecycle notifications of a control.
type EventType string

const (
	EventStarted  EventType = "started"
	EventFinished EventType = "finished"
	EventPaused   EventType = "paused"
	EventFailed   EventType = "failed"
)

// Event is a lifecycle notification. The payload is the control identity;
// error details never travel in it.
type Event struct {
	Type     EventType `json:"type"`
	Identity string    `json:"identity"`
	Time     time.Time `json:"time"`
}
