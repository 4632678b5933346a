package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultChannel is the pub/sub channel events are published on.
const DefaultChannel = "hushroom:events"

const (
	queueSize      = 256
	publishTimeout = 2 * time.Second
)

// RedisPublisher forwards events to a Redis pub/sub channel from a single
// background goroutine. Events are dropped when the queue is full.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	queue   chan Event
	log     *slog.Logger
}

// Connect parses url, pings the server and returns a ready client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRedisPublisher creates a publisher. Call Run to start delivery.
func NewRedisPublisher(rdb *redis.Client, channel string, log *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		queue:   make(chan Event, queueSize),
		log:     log,
	}
}

// Publish queues evt for delivery.
func (p *RedisPublisher) Publish(evt Event) {
	select {
	case p.queue <- evt:
	default:
		p.log.Warn("events.queue_full", "kind", evt.Kind, "room_id", evt.RoomID)
	}
}

// Run delivers queued events until ctx is cancelled.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-p.queue:
			p.deliver(ctx, evt)
		}
	}
}

func (p *RedisPublisher) deliver(ctx context.Context, evt Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("events.marshal", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.log.Warn("events.publish", "kind", evt.Kind, "err", err)
	}
}
