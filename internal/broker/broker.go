// Package broker fans feed events out to websocket subscribers, either
// in-process or across instances through Redis.
package broker

import (
	"context"

	"github.com/isdelr/photofeed-be/internal/websocket"
)

// Publisher delivers a feed event to subscribers.
type Publisher interface {
	Publish(ctx context.Context, action string, payload interface{}) error
}

// Local hands events straight to this process's hub.
type Local struct {
	hub *websocket.Hub
}

// NewLocal creates a Local publisher.
func NewLocal(hub *websocket.Hub) *Local {
	return &Local{hub: hub}
}

// Publish enqueues the event on the hub.
func (l *Local) Publish(ctx context.Context, action string, payload interface{}) error {
	data, err := websocket.Encode(action, payload)
	if err != nil {
		return err
	}
	return deliver(ctx, l.hub, data)
}

func deliver(ctx context.Context, hub *websocket.Hub, data []byte) error {
	select {
	case hub.Broadcast <- data:
		return nil
	case <-hub.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
