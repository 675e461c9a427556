package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{LevelOff, false, false},
		{LevelNormal, false, true},
		{LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)

			log.Debug("debug %d", 1)
			log.Info("info %d", 2)

			out := buf.String()
			if got := strings.Contains(out, "debug 1"); got != tt.wantDebug {
				t.Fatalf("debug present = %v, want %v (output %q)", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "info 2"); got != tt.wantInfo {
				t.Fatalf("info present = %v, want %v (output %q)", got, tt.wantInfo, out)
			}
		})
	}
}

func TestWithFieldIsIndependent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(LevelNormal, &buf)
	child := parent.WithField("control", "intro")
	child.SetLevel(LevelVerbose)

	child.Debug("child debug")
	parent.Debug("parent debug")

	out := buf.String()
	if !strings.Contains(out, "child debug") || !strings.Contains(out, "control=intro") {
		t.Fatalf("expected tagged child debug line, got %q", out)
	}
	if strings.Contains(out, "parent debug") {
		t.Fatalf("parent should still be at normal level, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"off":     LevelOff,
		"quiet":   LevelOff,
		"verbose": LevelVerbose,
		"debug":   LevelVerbose,
		"normal":  LevelNormal,
		"":        LevelNormal,
		"bogus":   LevelNormal,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
