package session

import "github.com/lautaromei/wpbb10/internal/store"

// Message is the normalized shape served over HTTP and pushed over the
// WebSocket. IDs are composite (see msgid.go); timestamps are unix
// seconds.
type Message struct {
	ID        string           `json:"id"`
	ChatID    string           `json:"chatId"`
	Body      string           `json:"body"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Timestamp int64            `json:"timestamp"`
	FromMe    bool             `json:"fromMe"`
	Ack       int              `json:"ack"`
	Type      string           `json:"type"`
	Author    *string          `json:"author,omitempty"`
	HasMedia  bool             `json:"hasMedia"`
	MediaURL  *string          `json:"mediaUrl,omitempty"`
	Reactions []store.Reaction `json:"reactions"`
}

// LastMessage is the preview embedded in a chat summary.
type LastMessage struct {
	Body      string `json:"body"`
	FromMe    bool   `json:"fromMe"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// ChatSummary is one entry of the conversation list.
type ChatSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	IsGroup     bool         `json:"isGroup"`
	UnreadCount int          `json:"unreadCount"`
	Timestamp   int64        `json:"timestamp"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
}

// AckUpdate is the payload of a delivery/read progress change.
type AckUpdate struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	Ack       int    `json:"ack"`
}

// ReactionUpdate is the payload of an emoji reaction change.
type ReactionUpdate struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	Emoji     string `json:"emoji"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
}

// StatusUpdate is the payload of a lifecycle state change.
type StatusUpdate struct {
	State string `json:"state"`
}

func toWire(sm store.Message) Message {
	reactions := sm.Reactions
	if reactions == nil {
		reactions = []store.Reaction{}
	}
	return Message{
		ID:        SerializeMessageID(sm.FromMe, sm.ChatJID, sm.ID),
		ChatID:    sm.ChatJID,
		Body:      sm.Body,
		From:      sm.From,
		To:        sm.To,
		Timestamp: sm.Timestamp,
		FromMe:    sm.FromMe,
		Ack:       sm.Ack,
		Type:      sm.Type,
		HasMedia:  sm.HasMedia,
		Reactions: reactions,
	}
}
