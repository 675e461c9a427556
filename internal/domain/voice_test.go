package domain

import (
	"errors"
	"math"
	"testing"
)

func TestVoiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(v *VoiceConfig)
		wantErr bool
	}{
		{"defaults", func(v *VoiceConfig) {}, false},
		{"english", func(v *VoiceConfig) { v.Language = "en" }, false},
		{"bad language", func(v *VoiceConfig) { v.Language = "not a tag!" }, true},
		{"pitch too high", func(v *VoiceConfig) { v.Pitch = 2.5 }, true},
		{"rate too low", func(v *VoiceConfig) { v.Rate = 0.01 }, true},
		{"volume negative", func(v *VoiceConfig) { v.Volume = -0.1 }, true},
		{"pitch NaN", func(v *VoiceConfig) { v.Pitch = math.NaN() }, true},
		{"rate infinite", func(v *VoiceConfig) { v.Rate = math.Inf(1) }, true},
		{"volume NaN", func(v *VoiceConfig) { v.Volume = math.NaN() }, true},
		{"bounds inclusive", func(v *VoiceConfig) { v.Pitch = 2; v.Rate = 10; v.Volume = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DefaultVoice()
			tt.modify(&v)
			err := v.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVoice) {
					t.Fatalf("expected ErrInvalidVoice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestVoiceConfigClamp(t *testing.T) {
	v := VoiceConfig{Language: "???", Pitch: 5, Rate: 0, Volume: 3, Name: "Katja"}
	got := v.Clamp()

	if got.Language != DefaultLanguage {
		t.Fatalf("expected default language, got %q", got.Language)
	}
	if got.Pitch != MaxPitch || got.Rate != MinRate || got.Volume != MaxVolume {
		t.Fatalf("unexpected clamp result: %+v", got)
	}
	if got.Name != "Katja" {
		t.Fatalf("voice name must pass through, got %q", got.Name)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("clamped config should validate: %v", err)
	}
}

func TestVoiceConfigClampNotANumber(t *testing.T) {
	v := VoiceConfig{Language: "en", Pitch: math.NaN(), Rate: math.NaN(), Volume: math.Inf(-1)}
	got := v.Clamp()

	if got.Pitch != DefaultPitch || got.Rate != DefaultRate || got.Volume != MinVolume {
		t.Fatalf("unexpected clamp result: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("clamped config should validate: %v", err)
	}
}

func TestPlaybackStatePressed(t *testing.T) {
	for _, s := range []PlaybackState{StateIdle, StatePaused, StateFailed} {
		if s.Pressed() {
			t.Fatalf("%s must not be pressed", s)
		}
	}
	if !StateSpeaking.Pressed() {
		t.Fatal("speaking must be pressed")
	}
}

func TestIntentFromString(t *testing.T) {
	for typ := IntentToggle; typ <= IntentQuit; typ++ {
		if got := IntentFromString(typ.String()); got != typ {
			t.Errorf("IntentFromString(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
	if got := IntentFromString("make coffee"); got != IntentUnknown {
		t.Fatalf("expected unknown, got %v", got)
	}
}
