package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

const promptClassify = `You map commands for a page reader to intents.

The page has speech toggle controls. Each control reads some elements of
the page aloud. Pick exactly ONE intent for the user's input and answer
with a JSON object and nothing else.

Intents:
- "toggle"        press or release a control ("read the intro", "stop reading"). Set "payload" to the control identity when the user names or describes one.
- "focus_next"    move to the next control ("next one", "skip ahead").
- "list_controls" show the controls ("what can you read").
- "status"        ask about progress ("where are we"). Set "payload" to a control identity if one is meant.
- "pause"         hold playback ("hang on").
- "resume"        continue after a pause ("go on").
- "help"          show the commands.
- "quit"          leave ("I'm done").
- "unknown"       anything else.

Schema: { "intent": "<intent>", "payload": "<control identity or empty>" }
Only use identities from the control list. Never invent one.`

// ControlHint describes a control to the model.
type ControlHint struct {
	Identity string
	Title    string
	TextIDs  string
	Pressed  bool
}

type classifyResponse struct {
	Intent  string `json:"intent"`
	Payload string `json:"payload"`
}

// Classifier turns free-form input into an intent.
type Classifier struct {
	client *Client
	log    *logger.Logger
}

// NewClassifier creates a classifier backed by client.
func NewClassifier(client *Client, log *logger.Logger) *Classifier {
	return &Classifier{client: client, log: log}
}

// Classify asks the model what input means, given the controls of the
// page. An unusable answer yields IntentUnknown; only transport failures
// return an error. Payloads naming a control that does not exist are
// dropped, so the intent falls back to the focused control.
func (c *Classifier) Classify(ctx context.Context, input string, controls []ControlHint) (*domain.Intent, error) {
	messages := []Message{
		{Role: RoleSystem, Content: promptClassify},
		{Role: RoleUser, Content: describeControls(controls)},
		{Role: RoleAssistant, Content: "Got it."},
		{Role: RoleUser, Content: input},
	}

	raw, err := c.client.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		c.log.Warn("gpt: unparseable classification: %v", err)
		return &domain.Intent{Type: domain.IntentUnknown, Payload: input}, nil
	}

	intent := &domain.Intent{Type: domain.IntentFromString(resp.Intent)}
	switch {
	case intent.Type == domain.IntentUnknown:
		intent.Payload = input
	case known(controls, resp.Payload):
		intent.Payload = resp.Payload
	case resp.Payload != "":
		c.log.Debug("gpt: dropped unknown control %q", resp.Payload)
	}

	c.log.Debug("gpt: classified %q -> %s (payload=%q)", input, intent.Type, intent.Payload)
	return intent, nil
}

func describeControls(controls []ControlHint) string {
	if len(controls) == 0 {
		return "The page has no controls."
	}
	var b strings.Builder
	b.WriteString("Controls on the page:\n")
	for _, h := range controls {
		state := "idle"
		if h.Pressed {
			state = "reading"
		}
		fmt.Fprintf(&b, "- %s: %q reads %q (%s)\n", h.Identity, h.Title, h.TextIDs, state)
	}
	return b.String()
}

func known(controls []ControlHint, id string) bool {
	if id == "" {
		return false
	}
	for _, h := range controls {
		if h.Identity == id {
			return true
		}
	}
	return false
}

// stripCodeFence removes the ```json fences models like to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
