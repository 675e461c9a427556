package narration

import "github.com/hammamikhairi/readaloud/internal/domain"

// session is one toggle-to-pressed activation: the fragments it queued and
// how far the engine has got through them.
type session struct {
	generation uint64
	fragments  []string
	voice      domain.VoiceConfig
	cursor     int
	finished   int // fragments the engine reported as finished
}

func newSession(generation uint64, fragments []string, voice domain.VoiceConfig) *session {
	return &session{
		generation: generation,
		fragments:  fragments,
		voice:      voice,
	}
}

func (s *session) owns(ref domain.UtteranceRef) bool {
	return s != nil && ref.Generation == s.generation && ref.Index >= 0 && ref.Index < len(s.fragments)
}

func (s *session) isLast(index int) bool {
	return index == len(s.fragments)-1
}

func (s *session) complete() bool {
	return s.finished >= len(s.fragments)
}

// utterances builds the engine queue for the session, in order.
func (s *session) utterances() []domain.Utterance {
	out := make([]domain.Utterance, len(s.fragments))
	for i, text := range s.fragments {
		out[i] = domain.Utterance{
			UtteranceRef: domain.UtteranceRef{Generation: s.generation, Index: i},
			Text:         text,
			Voice:        s.voice,
		}
	}
	return out
}
