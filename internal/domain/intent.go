package domain

// IntentType classifies what the user wants to do with the controls.
type IntentType int

const (
	IntentUnknown   IntentType = iota
	IntentToggle               // activation: click, Enter or Space
	IntentFocusNext            // move focus along the tab order
	IntentListControls
	IntentStatus
	IntentPause  // engine-level pause of the active utterance
	IntentResume // engine-level resume
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentToggle:
		return "toggle"
	case IntentFocusNext:
		return "focus_next"
	case IntentListControls:
		return "list_controls"
	case IntentStatus:
		return "status"
	case IntentPause:
		return "pause"
	case IntentResume:
		return "resume"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // optional control identity; empty means the focused control
}

// IntentFromString is the inverse of String. Unrecognised names map to
// IntentUnknown.
func IntentFromString(s string) IntentType {
	for t := IntentToggle; t <= IntentQuit; t++ {
		if t.String() == s {
			return t
		}
	}
	return IntentUnknown
}
