package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
)

// DefaultChannel is the pub/sub channel external subscribers listen on.
const DefaultChannel = "render:events"

// RedisPublisher broadcasts events over a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisPublisher creates a publisher on the given channel. An empty
// channel name falls back to DefaultChannel.
func NewRedisPublisher(rdb *redis.Client, channel string, log *logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		log:     log.WithComponent("events"),
	}
}

// Publish broadcasts the event as JSON. Failures are logged and dropped;
// notification delivery never gates the render pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("failed to encode event", "request_id", ev.RequestID, "error", err.Error())
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn("failed to publish event",
			"request_id", ev.RequestID,
			"channel", p.channel,
			"error", err.Error(),
		)
	}
}
