// Package conversation turns REPL input lines into intents for the
// controls on a page.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser. Patterns with a
// capture group carry the first group as the payload.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(?:toggle|t|press|click|enter|space)(?:\s+(\S+))?$`), domain.IntentToggle},
		{regexp.MustCompile(`(?i)^(?:next|tab|n)$`), domain.IntentFocusNext},
		{regexp.MustCompile(`(?i)^(?:list|controls|ls)$`), domain.IntentListControls},
		{regexp.MustCompile(`(?i)^(?:status|info|s)(?:\s+(\S+))?$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(?:pause|p|hold)$`), domain.IntentPause},
		{regexp.MustCompile(`(?i)^(?:resume|r|continue|unpause)$`), domain.IntentResume},
		{regexp.MustCompile(`(?i)^(?:help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(?:quit|exit|q)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts user input into an intent. An empty line or a line of
// spaces activates the focused control, like Enter or Space on a
// focused button.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentToggle}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		intent := &domain.Intent{Type: rule.intent}
		if len(m) > 1 {
			intent.Payload = m[1]
		}
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}
