package domain

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
)

// Defaults for a control that sets no voice attributes.
const (
	DefaultLanguage = "de-DE"
	DefaultPitch    = 1.0
	DefaultRate     = 1.0
	DefaultVolume   = 1.0
)

// Platform bounds. Values outside are clamped by the engine.
const (
	MinPitch  = 0.0
	MaxPitch  = 2.0
	MinRate   = 0.1
	MaxRate   = 10.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// VoiceConfig holds the speech parameters of one session. The controller
// passes it through untouched; the engine clamps it.
type VoiceConfig struct {
	Language string  `mapstructure:"lang" json:"lang"`
	Pitch    float64 `mapstructure:"pitch" json:"pitch"`
	Rate     float64 `mapstructure:"rate" json:"rate"`
	Volume   float64 `mapstructure:"volume" json:"volume"`
	Name     string  `mapstructure:"name" json:"name,omitempty"` // empty = engine default
}

// DefaultVoice returns the voice configuration used when nothing is set.
func DefaultVoice() VoiceConfig {
	return VoiceConfig{
		Language: DefaultLanguage,
		Pitch:    DefaultPitch,
		Rate:     DefaultRate,
		Volume:   DefaultVolume,
	}
}

// Validate reports the first out-of-range or malformed field.
func (v VoiceConfig) Validate() error {
	if _, err := language.Parse(v.Language); err != nil {
		return fmt.Errorf("%w: language %q: %v", ErrInvalidVoice, v.Language, err)
	}
	if outside(v.Pitch, MinPitch, MaxPitch) {
		return fmt.Errorf("%w: pitch %.2f outside [%.1f, %.1f]", ErrInvalidVoice, v.Pitch, MinPitch, MaxPitch)
	}
	if outside(v.Rate, MinRate, MaxRate) {
		return fmt.Errorf("%w: rate %.2f outside [%.1f, %.1f]", ErrInvalidVoice, v.Rate, MinRate, MaxRate)
	}
	if outside(v.Volume, MinVolume, MaxVolume) {
		return fmt.Errorf("%w: volume %.2f outside [%.1f, %.1f]", ErrInvalidVoice, v.Volume, MinVolume, MaxVolume)
	}
	return nil
}

// Clamp returns a copy with every numeric field forced into its platform
// range and an unparsable language replaced by the default. NaN falls back
// to the field's default.
func (v VoiceConfig) Clamp() VoiceConfig {
	out := v
	if tag, err := language.Parse(v.Language); err != nil {
		out.Language = DefaultLanguage
	} else {
		out.Language = tag.String()
	}
	out.Pitch = clamp(v.Pitch, MinPitch, MaxPitch, DefaultPitch)
	out.Rate = clamp(v.Rate, MinRate, MaxRate, DefaultRate)
	out.Volume = clamp(v.Volume, MinVolume, MaxVolume, DefaultVolume)
	return out
}

// Fingerprint is a stable string over every field that changes the audio.
func (v VoiceConfig) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f|%.2f", v.Name, v.Language, v.Pitch, v.Rate, v.Volume)
}

// outside is true for NaN, which fails every comparison.
func outside(x, lo, hi float64) bool {
	return math.IsNaN(x) || x < lo || x > hi
}

func clamp(x, lo, hi, def float64) float64 {
	if math.IsNaN(x) {
		return def
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
