package page

import (
	"strings"
	"testing"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Demo</title><style>#intro { color: red }</style></head>
<body>
  <h1 id="title">Welcome</h1>
  <p id="intro">Hello   <b>world</b>
     and friends.<script>alert("no")</script></p>
  <div id="empty">   </div>
  <p id="dup">first</p>
  <p id="dup">second</p>
  <speech-toggle id="hidden" textids="intro" tabindex="-1" audiovolume="NaN"></speech-toggle>
  <speech-toggle id="late" textids="intro" tabindex="2"></speech-toggle>
  <speech-toggle id="main" textids="title, intro" audiolang="en-GB" audiorate="1.5"
      audiopitch="oops" voicename="en-GB-RyanNeural" title="Listen" verbose></speech-toggle>
  <speech-toggle textids="missing" tabindex="x" verbose="false"></speech-toggle>
</body></html>`

func parseTestPage(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(testPage), logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestDocumentText(t *testing.T) {
	doc := parseTestPage(t)

	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"title", "Welcome", true},
		{"intro", "Hello world and friends.", true},
		{"empty", "", true},
		{"dup", "first", true},
		{"nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := doc.Text(tt.id)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Text(%q) = %q, %v; want %q, %v", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveFragments(t *testing.T) {
	doc := parseTestPage(t)
	r := NewResolver(doc, logger.New(logger.LevelOff, nil))

	tests := []struct {
		name   string
		idList string
		want   []string
	}{
		{"blank list", "", []string{domain.FallbackText}},
		{"whitespace list", "   ", []string{domain.FallbackText}},
		{"single", "title", []string{"Welcome"}},
		{"order kept and trimmed", " intro , title ", []string{"Hello world and friends.", "Welcome"}},
		{"missing skipped", "nope,title", []string{"Welcome"}},
		{"empty element skipped", "empty,intro", []string{"Hello world and friends."}},
		{"all missing", "nope,gone", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolveFragments(tt.idList)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("fragment %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestControls(t *testing.T) {
	doc := parseTestPage(t)
	specs := doc.Controls(domain.DefaultVoice())

	if len(specs) != 4 {
		t.Fatalf("expected 4 controls, got %d", len(specs))
	}

	// Positive tabindex first, then tabindex 0 in document order, then
	// the controls kept out of keyboard navigation.
	var order []string
	for _, s := range specs {
		order = append(order, s.ID)
	}
	if strings.Join(order, ",") != "late,main,,hidden" {
		t.Fatalf("unexpected order: %q", order)
	}

	hidden := specs[3]
	if hidden.Focusable() || !specs[0].Focusable() {
		t.Fatal("only a negative tabindex leaves keyboard navigation")
	}
	if hidden.Voice.Volume != domain.DefaultVolume {
		t.Fatalf("NaN volume should fall back, got %v", hidden.Voice.Volume)
	}

	main := specs[1]
	if main.TextIDs != "title, intro" {
		t.Fatalf("unexpected textids %q", main.TextIDs)
	}
	if main.Voice.Language != "en-GB" || main.Voice.Name != "en-GB-RyanNeural" {
		t.Fatalf("unexpected voice %+v", main.Voice)
	}
	if main.Voice.Rate != 1.5 {
		t.Fatalf("expected rate 1.5, got %v", main.Voice.Rate)
	}
	if main.Voice.Pitch != domain.DefaultPitch {
		t.Fatalf("malformed pitch should fall back, got %v", main.Voice.Pitch)
	}
	if !main.Verbose {
		t.Fatal("bare verbose attribute should enable verbose")
	}
	if main.Title != "Listen" || main.Alt != DefaultAlt {
		t.Fatalf("unexpected labels %q / %q", main.Title, main.Alt)
	}

	anon := specs[2]
	if anon.Verbose {
		t.Fatal("verbose=false should stay quiet")
	}
	if anon.TabIndex != 0 || anon.Title != DefaultTitle {
		t.Fatalf("expected defaults, got tabindex %d title %q", anon.TabIndex, anon.Title)
	}
	if anon.Voice.Language != domain.DefaultLanguage {
		t.Fatalf("expected default language, got %q", anon.Voice.Language)
	}
}

func TestDocumentTitle(t *testing.T) {
	if got := parseTestPage(t).Title(); got != "Demo" {
		t.Fatalf("expected title Demo, got %q", got)
	}

	bare, err := Parse(strings.NewReader("<p>no head</p>"), logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := bare.Title(); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}
