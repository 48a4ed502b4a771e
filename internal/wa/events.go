package wa

import "github.com/lautaromei/wpbb10/internal/store"

// Session lifecycle and message events delivered to handlers registered
// via Client.AddEventHandler. Handlers receive them as `any` and switch
// on the concrete type, mirroring the upstream library's event style.

// QRCodeEvent carries a fresh pairing challenge.
type QRCodeEvent struct {
	Code string
}

// AuthenticatedEvent fires when pairing succeeds or stored credentials
// are accepted.
type AuthenticatedEvent struct{}

// ReadyEvent fires when the session is fully operational.
type ReadyEvent struct{}

// DisconnectedEvent fires when the session drops.
type DisconnectedEvent struct {
	Reason string
}

// AuthFailureEvent fires on an unrecoverable authentication failure,
// including being logged out remotely.
type AuthFailureEvent struct {
	Reason string
}

// MessageEvent carries a newly received message. Echo marks messages
// sent by the session owner (from this or another linked device).
type MessageEvent struct {
	Message store.Message
	Echo    bool
}

// AckEvent carries a delivery/read progress change for a message.
// MessageFromMe is the direction of the acked message, needed by
// consumers that serialize composite identifiers.
type AckEvent struct {
	MessageID     string
	ChatJID       string
	Ack           int
	MessageFromMe bool
}

// ReactionEvent carries an emoji reaction added to a message.
// MessageFromMe is the direction of the reacted-to message.
type ReactionEvent struct {
	MessageID     string
	ChatJID       string
	Emoji         string
	SenderID      string
	FromMe        bool
	MessageFromMe bool
	Timestamp     int64
}
