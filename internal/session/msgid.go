package session

import (
	"fmt"
	"strings"
)

// Composite message identifiers are what the HTTP and WebSocket surface
// exposes: direction, conversation JID and the upstream opaque id
// joined by underscores, e.g. "false_5511999999999@s.whatsapp.net_3EB0A9252D8CB2".
// The upstream id never leaves the daemon on its own.

// MessageID is a parsed composite identifier.
type MessageID struct {
	FromMe  bool
	ChatJID string
	RawID   string
}

// SerializeMessageID builds the composite wire identifier for a message.
func SerializeMessageID(fromMe bool, chatJID, rawID string) string {
	dir := "false"
	if fromMe {
		dir = "true"
	}
	return strings.Join([]string{dir, chatJID, rawID}, "_")
}

// ParseMessageID splits a composite identifier into its segments. An
// identifier with fewer than three segments is rejected with
// ErrInvalidIdentifier.
func ParseMessageID(id string) (MessageID, error) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return MessageID{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return MessageID{
		FromMe:  parts[0] == "true",
		ChatJID: parts[1],
		RawID:   parts[2],
	}, nil
}
