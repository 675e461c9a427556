package page

import (
	"strings"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ domain.TextResolver = (*Resolver)(nil)

// Resolver turns id lists into narration fragments using a Document.
type Resolver struct {
	doc *Document
	log *logger.Logger
}

// NewResolver creates a resolver over a parsed page.
func NewResolver(doc *Document, log *logger.Logger) *Resolver {
	return &Resolver{doc: doc, log: log}
}

// ResolveFragments returns the text of each listed element in list order.
// A blank list yields the fallback text. Ids that are missing or whose
// element has no text are skipped with a warning, which may leave the
// result empty.
func (r *Resolver) ResolveFragments(idList string) []string {
	if strings.TrimSpace(idList) == "" {
		return []string{domain.FallbackText}
	}

	var fragments []string
	for _, id := range strings.Split(idList, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		text, ok := r.doc.Text(id)
		if !ok {
			r.log.Warn("page: no element with id %q to read", id)
			continue
		}
		if text == "" {
			r.log.Warn("page: element %q has no text", id)
			continue
		}
		fragments = append(fragments, text)
	}
	return fragments
}
