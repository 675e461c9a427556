// Package events delivers control lifecycle notifications to whoever is
// listening: in-process subscribers, the log, or other processes through
// Redis. Every sink is non-blocking because controllers emit while holding
// their lock.
package events

import (
	"sync"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.EventSink = (*Bus)(nil)
	_ domain.EventSink = (*LogSink)(nil)
	_ domain.EventSink = Multi(nil)
)

const defaultBuffer = 64

// Bus fans events out to local subscribers.
type Bus struct {
	log *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]chan domain.Event
}

// NewBus creates an empty bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		log:         log,
		subscribers: make(map[string]chan domain.Event),
	}
}

// Emit delivers ev to every subscriber without waiting. A subscriber
// whose buffer is full misses the event.
func (b *Bus) Emit(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.log.Warn("events: dropped %s for subscriber %s (buffer full)", ev.Type, id)
		}
	}
}

// Subscribe registers a subscriber and returns its channel. Subscribing
// again with the same id replaces the old channel, which is closed.
func (b *Bus) Subscribe(id string, bufSize int) <-chan domain.Event {
	if bufSize <= 0 {
		bufSize = defaultBuffer
	}
	ch := make(chan domain.Event, bufSize)

	b.mu.Lock()
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	b.subscribers[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// LogSink writes one log line per event.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink that logs at debug level.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit logs the event.
func (s *LogSink) Emit(ev domain.Event) {
	s.log.Debug("event %s from %s", ev.Type, ev.Identity)
}

// Multi forwards every event to each sink in order.
type Multi []domain.EventSink

// Emit forwards ev.
func (m Multi) Emit(ev domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
