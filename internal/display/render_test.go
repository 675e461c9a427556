package display

import (
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/readaloud/internal/domain"
)

func TestRenderControl(t *testing.T) {
	tests := []struct {
		name    string
		view    ControlView
		want    []string
		notWant []string
	}{
		{
			name: "pressed and focused",
			view: ControlView{
				Status:  domain.Status{Identity: "intro", Pressed: true, State: domain.StateSpeaking},
				Title:   "Read aloud",
				Focused: true,
			},
			want: []string{"›", IconPressed, "intro", "Read aloud", "aria-pressed=true"},
		},
		{
			name: "idle",
			view: ControlView{
				Status: domain.Status{Identity: "body", Cursor: -1},
				Title:  "Listen",
			},
			want:    []string{IconUnpressed, "body", "Listen", "aria-pressed=false"},
			notWant: []string{"›", IconPressed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderControl(tt.view)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in %q", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("unexpected %q in %q", w, got)
				}
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	v := ControlView{
		Status: domain.Status{
			Identity: "intro", State: domain.StateSpeaking, Pressed: true,
			Generation: 3, Cursor: 1, Fragments: 4, TextIDs: "a,b",
		},
		Alt: "Speaker icon",
	}
	got := RenderStatus(v)
	for _, w := range []string{"state=speaking", "generation=3", "fragment 2/4", `textids="a,b"`} {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in %q", w, got)
		}
	}

	v.Status.Cursor = -1
	if !strings.Contains(RenderStatus(v), "no session") {
		t.Error("expected no session line")
	}
}

func TestRenderEvent(t *testing.T) {
	ev := domain.Event{Type: domain.EventFinished, Identity: "intro", Time: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)}
	got := RenderEvent(ev)
	for _, w := range []string{"09:30:00", "finished", "intro"} {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in %q", w, got)
		}
	}
}

func TestRenderBar(t *testing.T) {
	bar := renderBar([]ControlView{
		{Status: domain.Status{Identity: "a", Pressed: true}},
		{Status: domain.Status{Identity: "b"}, Focused: true},
	}, 60)
	for _, w := range []string{IconPressed, IconUnpressed, "a", "b"} {
		if !strings.Contains(bar, w) {
			t.Errorf("missing %q in bar %q", w, bar)
		}
	}
}

func TestTitleStr(t *testing.T) {
	m := model{controls: []ControlView{
		{Status: domain.Status{Identity: "a", Pressed: true}},
		{Status: domain.Status{Identity: "b"}},
	}}
	if got := m.titleStr(); got != "readaloud - reading a" {
		t.Fatalf("unexpected title %q", got)
	}
	m.controls = nil
	if got := m.titleStr(); got != "readaloud" {
		t.Fatalf("unexpected idle title %q", got)
	}
}
