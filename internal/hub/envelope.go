package hub

import "encoding/json"

// Envelope is the wire frame pushed to subscribers: an event type tag
// plus a type-specific payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Marshal serializes an envelope once, for broadcast to every
// subscriber.
func Marshal(eventType string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, Data: data})
}
