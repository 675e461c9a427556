package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

func event(t domain.EventType, id string) domain.Event {
	return domain.Event{Type: t, Identity: id, Time: time.Now()}
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus(logger.New(logger.LevelOff, nil))
	a := bus.Subscribe("a", 4)
	b := bus.Subscribe("b", 4)

	bus.Emit(event(domain.EventStarted, "reader"))

	for name, ch := range map[string]<-chan domain.Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Type != domain.EventStarted || ev.Identity != "reader" {
				t.Fatalf("%s: unexpected event %+v", name, ev)
			}
		default:
			t.Fatalf("%s: no event delivered", name)
		}
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(logger.New(logger.LevelOff, nil))
	ch := bus.Subscribe("slow", 1)

	bus.Emit(event(domain.EventStarted, "x"))
	bus.Emit(event(domain.EventFinished, "x")) // must not block

	if got := (<-ch).Type; got != domain.EventStarted {
		t.Fatalf("expected started, got %s", got)
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected the second event to be dropped, got %+v", ev)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(logger.New(logger.LevelOff, nil))
	ch := bus.Subscribe("gone", 1)
	bus.Unsubscribe("gone")

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	bus.Emit(event(domain.EventPaused, "x")) // no panic on closed subscriber
	bus.Unsubscribe("gone")                  // idempotent
}

type countingSink struct{ n int }

func (c *countingSink) Emit(domain.Event) { c.n++ }

func TestMultiForwardsToAll(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, nil, b}
	m.Emit(event(domain.EventFailed, "x"))
	if a.n != 1 || b.n != 1 {
		t.Fatalf("expected one event each, got %d and %d", a.n, b.n)
	}
}

// fakeRedis records PUBLISH calls.
type fakeRedis struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
	err      error
	got      chan struct{}
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.([]byte))
	f.mu.Unlock()
	f.got <- struct{}{}
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher(t *testing.T) {
	fake := &fakeRedis{got: make(chan struct{}, 4)}
	log := logger.New(logger.LevelOff, nil)
	p := NewRedisPublisher(fake, log, WithChannel("page:demo"), WithSource("test"))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Emit(event(domain.EventFinished, "reader"))

	select {
	case <-fake.got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}
	cancel()
	p.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.channels[0] != "page:demo" {
		t.Fatalf("unexpected channel %q", fake.channels[0])
	}

	var env Envelope
	if err := json.Unmarshal(fake.messages[0], &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.ID == "" || env.Source != "test" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.Event.Type != domain.EventFinished || env.Event.Identity != "reader" {
		t.Fatalf("unexpected event %+v", env.Event)
	}
}

func TestRedisPublisherFlushesOnStop(t *testing.T) {
	fake := &fakeRedis{got: make(chan struct{}, 8), err: errors.New("down")}
	p := NewRedisPublisher(fake, logger.New(logger.LevelOff, nil))

	p.Emit(event(domain.EventStarted, "a"))
	p.Emit(event(domain.EventPaused, "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Start(ctx)
	p.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.messages) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(fake.messages))
	}
}
