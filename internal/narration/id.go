package narration

import "github.com/rs/xid"

// generateID creates a short, sortable identity for a control that has no
// host-supplied id.
func generateID() string {
	return "speech-" + xid.New().String()
}
