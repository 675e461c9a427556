package display

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/readaloud/internal/domain"
)

// Icons shown for the two toggle states.
const (
	IconPressed   = "[🔊]"
	IconUnpressed = "[🔈]"
)

// ControlView is what the display needs to draw one control.
type ControlView struct {
	Status  domain.Status
	Title   string
	Alt     string
	Focused bool
}

// Icon returns the toggle icon for the pressed state.
func Icon(pressed bool) string {
	if pressed {
		return IconPressed
	}
	return IconUnpressed
}

// AriaPressed renders the accessibility attribute of a toggle button.
func AriaPressed(pressed bool) string {
	return fmt.Sprintf("aria-pressed=%t", pressed)
}

// RenderControl returns one styled line for a control, for example
// "› [🔊] intro  Read aloud  aria-pressed=true".
func RenderControl(v ControlView) string {
	marker := "  "
	if v.Focused {
		marker = focusStyle.Render("› ")
	}

	iconStyle := idleIconStyle
	if v.Status.Pressed {
		iconStyle = pressedIconStyle
	}

	parts := []string{
		iconStyle.Render(Icon(v.Status.Pressed)),
		primaryStyle.Render(v.Status.Identity),
		labelStyle.Render(v.Title),
		secondaryStyle.Render(AriaPressed(v.Status.Pressed)),
	}
	return marker + strings.Join(parts, "  ")
}

// RenderStatus returns a multi-line detail view of a control.
func RenderStatus(v ControlView) string {
	st := v.Status
	var b strings.Builder
	b.WriteString(RenderControl(v))
	b.WriteByte('\n')
	b.WriteString(secondaryStyle.Render(fmt.Sprintf("    state=%s  generation=%d", st.State, st.Generation)))
	b.WriteByte('\n')
	if st.Cursor >= 0 {
		b.WriteString(secondaryStyle.Render(fmt.Sprintf("    fragment %d/%d", st.Cursor+1, st.Fragments)))
	} else {
		b.WriteString(secondaryStyle.Render("    no session"))
	}
	b.WriteByte('\n')
	b.WriteString(secondaryStyle.Render(fmt.Sprintf("    textids=%q  alt=%q", st.TextIDs, v.Alt)))
	return b.String()
}

// RenderEvent returns one styled line for a lifecycle event.
func RenderEvent(ev domain.Event) string {
	style := eventStyle
	if ev.Type == domain.EventFailed {
		style = urgentOutputStyle
	}
	return secondaryStyle.Render(ev.Time.Format("15:04:05")+" ") +
		style.Render(fmt.Sprintf("%-8s", ev.Type)) +
		primaryStyle.Render(ev.Identity)
}
