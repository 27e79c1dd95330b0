package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/photofeed-be/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel is the Redis pub/sub channel carrying feed events.
const Channel = "photofeed:feed"

// Redis publishes feed events to a Redis channel and relays everything
// received on it to the local hub, so every instance sees every event.
type Redis struct {
	client *redis.Client
	hub    *websocket.Hub
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(redisURL string, hub *websocket.Hub) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &Redis{client: client, hub: hub}, nil
}

// Publish sends the event to every instance, including this one.
func (r *Redis) Publish(ctx context.Context, action string, payload interface{}) error {
	data, err := websocket.Encode(action, payload)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, Channel, data).Err()
}

// Run relays channel messages to the hub until ctx is cancelled.
func (r *Redis) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}
	log.Info().Str("channel", Channel).Msg("Relaying feed events from Redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := deliver(ctx, r.hub, []byte(msg.Payload)); err != nil {
				return nil
			}
		}
	}
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
