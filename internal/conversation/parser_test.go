package conversation

import (
	"context"
	"testing"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

func TestKeywordParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewKeywordParser(log)
	ctx := context.Background()

	tests := []struct {
		input       string
		wantType    domain.IntentType
		wantPayload string
	}{
		// Keyboard activation of the focused control
		{"", domain.IntentToggle, ""},
		{" ", domain.IntentToggle, ""},
		{"\t", domain.IntentToggle, ""},

		// Toggle variants
		{"toggle", domain.IntentToggle, ""},
		{"t intro", domain.IntentToggle, "intro"},
		{"click speech-c9p", domain.IntentToggle, "speech-c9p"},
		{"TOGGLE Main", domain.IntentToggle, "Main"},

		// Focus
		{"next", domain.IntentFocusNext, ""},
		{"tab", domain.IntentFocusNext, ""},

		// List
		{"list", domain.IntentListControls, ""},
		{"controls", domain.IntentListControls, ""},

		// Status
		{"status", domain.IntentStatus, ""},
		{"status intro", domain.IntentStatus, "intro"},

		// Pause/Resume
		{"pause", domain.IntentPause, ""},
		{"resume", domain.IntentResume, ""},
		{"continue", domain.IntentResume, ""},

		// Help
		{"help", domain.IntentHelp, ""},
		{"?", domain.IntentHelp, ""},

		// Quit
		{"quit", domain.IntentQuit, ""},
		{"q", domain.IntentQuit, ""},

		// Unknown
		{"read me a poem", domain.IntentUnknown, "read me a poem"},
		{"toggle a b", domain.IntentUnknown, "toggle a b"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			intent, err := parser.Parse(ctx, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if intent.Type != tt.wantType {
				t.Errorf("input=%q: got type %s, want %s", tt.input, intent.Type, tt.wantType)
			}
			if intent.Payload != tt.wantPayload {
				t.Errorf("input=%q: got payload %q, want %q", tt.input, intent.Payload, tt.wantPayload)
			}
		})
	}
}
