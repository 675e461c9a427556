package page

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hammamikhairi/readaloud/internal/domain"
)

// Defaults for the accessible labels of a control.
const (
	DefaultTitle = "Read aloud"
	DefaultAlt   = "Speaker icon for speech output"
)

// ControlSpec is a speech toggle as declared in the page.
type ControlSpec struct {
	ID       string // empty means the controller generates one
	TextIDs  string
	Voice    domain.VoiceConfig
	Verbose  bool
	Title    string
	Alt      string
	TabIndex int
}

// Focusable reports whether the control takes part in keyboard navigation.
// A negative tabindex leaves it reachable only by a direct press.
func (s ControlSpec) Focusable() bool { return s.TabIndex >= 0 }

// Controls returns every speech toggle in the page in browser tab order:
// positive tabindex values ascending, then tabindex 0, each in document
// order. Controls with a negative tabindex come last. Voice attributes
// override base; malformed numbers keep the base value and log a warning.
func (d *Document) Controls(base domain.VoiceConfig) []ControlSpec {
	var specs []ControlSpec
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == ControlTag {
			specs = append(specs, d.controlSpec(n, base))
		}
		return true
	})

	sort.SliceStable(specs, func(i, j int) bool {
		return tabBefore(specs[i].TabIndex, specs[j].TabIndex)
	})
	return specs
}

func tabBefore(a, b int) bool {
	ra, rb := tabRank(a), tabRank(b)
	if ra != rb {
		return ra < rb
	}
	return ra == 0 && a < b
}

func tabRank(tabIndex int) int {
	switch {
	case tabIndex > 0:
		return 0
	case tabIndex == 0:
		return 1
	default:
		return 2
	}
}

func (d *Document) controlSpec(n *html.Node, base domain.VoiceConfig) ControlSpec {
	spec := ControlSpec{
		ID:      attr(n, "id"),
		TextIDs: attr(n, "textids"),
		Voice:   base,
		Title:   DefaultTitle,
		Alt:     DefaultAlt,
	}

	if v := strings.TrimSpace(attr(n, "audiolang")); v != "" {
		spec.Voice.Language = v
	}
	if v := strings.TrimSpace(attr(n, "voicename")); v != "" {
		spec.Voice.Name = v
	}
	spec.Voice.Pitch = d.floatAttr(n, "audiopitch", base.Pitch)
	spec.Voice.Rate = d.floatAttr(n, "audiorate", base.Rate)
	spec.Voice.Volume = d.floatAttr(n, "audiovolume", base.Volume)

	if v := attr(n, "title"); v != "" {
		spec.Title = v
	}
	if v := attr(n, "alt"); v != "" {
		spec.Alt = v
	}
	if v := strings.TrimSpace(attr(n, "tabindex")); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			d.log.Warn("page: control %q has bad tabindex %q, using 0", spec.ID, v)
		} else {
			spec.TabIndex = i
		}
	}

	if hasAttr(n, "verbose") {
		switch strings.ToLower(strings.TrimSpace(attr(n, "verbose"))) {
		case "false", "0", "no":
		default:
			spec.Verbose = true
		}
	}
	return spec
}

func (d *Document) floatAttr(n *html.Node, key string, def float64) float64 {
	v := strings.TrimSpace(attr(n, key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		d.log.Warn("page: control %q has bad %s %q, using %.2f", attr(n, "id"), key, v, def)
		return def
	}
	return f
}
