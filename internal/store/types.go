package store

// Reaction is a single emoji reaction on a message.
type Reaction struct {
	Emoji    string `json:"emoji"`
	SenderID string `json:"senderId"`
	FromMe   bool   `json:"fromMe"`
}

// Message is a raw message as seen through the remote session's
// retrieval window. Timestamps are unix seconds (WhatsApp wire time).
type Message struct {
	ID         string
	ChatJID    string
	SenderJID  string
	SenderName string
	Body       string
	Type       string
	From       string
	To         string
	FromMe     bool
	Timestamp  int64
	Ack        int
	HasMedia   bool
	Reactions  []Reaction
}

// Chat is a conversation summary derived from the index.
type Chat struct {
	JID           string
	Name          string
	IsGroup       bool
	Unread        int
	LastMessageAt int64
	LastMessage   *Message
}
