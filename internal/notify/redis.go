package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultChannel = "gcdl:data-updated"

// RedisBridge delivers events to the local hub and relays them through a
// Redis channel so clients connected to other API instances hear them too.
type RedisBridge struct {
	client  *redis.Client
	channel string
	local   *Hub
	origin  string
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func NewRedisBridge(client *redis.Client, channel string, local *Hub, log logrus.FieldLogger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		local:   local,
		origin:  uuid.NewString(),
		log:     log,
		timeout: 3 * time.Second,
	}
}

// Broadcast publishes locally right away and to Redis in the background.
func (b *RedisBridge) Broadcast(entity string) {
	ev := NewEvent(entity)
	ev.Origin = b.origin
	b.local.Publish(ev)

	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).Warn("encode notification")
		return
	}
	b.safeGo("redis publish", func(ctx context.Context) error {
		return b.client.Publish(ctx, b.channel, payload).Err()
	})
}

// Run relays events published by other instances into the local hub until
// ctx is cancelled. ready, when non-nil, is closed once the subscription is
// confirmed.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	b.log.WithField("channel", b.channel).Info("notification relay subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).Warn("discarding malformed notification")
				continue
			}
			if ev.Origin == b.origin {
				continue
			}
			b.local.Publish(ev)
		}
	}
}

func (b *RedisBridge) safeGo(task string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				b.log.WithFields(logrus.Fields{"task": task, "panic": r, "stack": string(debug.Stack())}).Error("panic in background task")
			}
		}()
		if err := fn(ctx); err != nil {
			b.log.WithError(err).WithField("task", task).Warn("background task failed")
		}
	}()
}
