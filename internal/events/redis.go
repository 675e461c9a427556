package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ domain.EventSink = (*RedisPublisher)(nil)

// DefaultChannel is the Redis channel events are published on.
const DefaultChannel = "readaloud:events"

// Envelope wraps an event for other processes.
type Envelope struct {
	ID     string       `json:"id"`
	Source string       `json:"source"`
	Event  domain.Event `json:"event"`
}

// publisher is the part of a Redis client the publisher needs.
// *redis.Client and redis.UniversalClient satisfy it.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisOption configures the RedisPublisher.
type RedisOption func(*RedisPublisher)

// WithChannel sets the Redis channel name.
func WithChannel(name string) RedisOption {
	return func(p *RedisPublisher) {
		p.channel = name
	}
}

// WithSource sets the source tag carried in every envelope.
func WithSource(source string) RedisOption {
	return func(p *RedisPublisher) {
		p.source = source
	}
}

// WithPublishTimeout bounds each PUBLISH round trip.
func WithPublishTimeout(d time.Duration) RedisOption {
	return func(p *RedisPublisher) {
		p.timeout = d
	}
}

// RedisPublisher publishes events as JSON envelopes. Emit only queues; a
// background goroutine started by Start does the network work.
type RedisPublisher struct {
	client  publisher
	log     *logger.Logger
	channel string
	source  string
	timeout time.Duration
	pending chan domain.Event

	wg sync.WaitGroup
}

// NewRedisPublisher creates a publisher over an existing client.
func NewRedisPublisher(client publisher, log *logger.Logger, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{
		client:  client,
		log:     log,
		channel: DefaultChannel,
		source:  "readaloud",
		timeout: 2 * time.Second,
		pending: make(chan domain.Event, defaultBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DialRedis connects to the Redis server at url (redis://host:port/db) and
// checks it answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// Emit queues ev for publishing. Drops it when the queue is full.
func (p *RedisPublisher) Emit(ev domain.Event) {
	select {
	case p.pending <- ev:
	default:
		p.log.Warn("events: redis queue full, dropped %s from %s", ev.Type, ev.Identity)
	}
}

// Start runs the publishing goroutine until ctx is cancelled. Events still
// queued at that point are flushed before Wait returns.
func (p *RedisPublisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case ev := <-p.pending:
				p.publish(ctx, ev)
			case <-ctx.Done():
				p.flush()
				return
			}
		}
	}()
}

// Wait blocks until the publishing goroutine has exited.
func (p *RedisPublisher) Wait() {
	p.wg.Wait()
}

func (p *RedisPublisher) flush() {
	for {
		select {
		case ev := <-p.pending:
			p.publish(context.Background(), ev)
		default:
			return
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, ev domain.Event) {
	raw, err := json.Marshal(Envelope{ID: xid.New().String(), Source: p.source, Event: ev})
	if err != nil {
		p.log.Error("events: encoding %s: %v", ev.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.log.Error("events: publishing %s to %s: %v", ev.Type, p.channel, err)
		return
	}
	p.log.Debug("events: published %s from %s to %s", ev.Type, ev.Identity, p.channel)
}
