package websocket

import "encoding/json"

// Feed event actions.
const (
	ActionPostCreated = "post.created"
	ActionPostDeleted = "post.deleted"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Encode marshals a message for the wire.
func Encode(action string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Action: action, Payload: payload})
}
