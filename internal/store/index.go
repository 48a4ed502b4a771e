package store

import (
	"sort"
	"strings"
	"sync"
)

// DefaultWindow is how many messages are retained per chat. It matches
// the remote session's own recent-message lookup depth.
const DefaultWindow = 100

// Index is the in-memory view of the session's retrieval window: a
// bounded per-chat message window plus a chat summary list, fed by live
// events and history sync. Nothing here is persisted; the remote
// session remains the source of truth.
type Index struct {
	mu     sync.RWMutex
	chats  map[string]*chatEntry
	msgs   map[string]string // message id -> chat JID
	window int
}

type chatEntry struct {
	name   string
	unread int
	order  []*Message // chronological
	byID   map[string]*Message
}

// NewIndex creates an index retaining up to window messages per chat.
// window <= 0 uses DefaultWindow.
func NewIndex(window int) *Index {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Index{
		chats:  make(map[string]*chatEntry),
		msgs:   make(map[string]string),
		window: window,
	}
}

// IsGroupJID reports whether a JID addresses a group conversation.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@g.us")
}

// Upsert inserts or updates a message in its chat's window, keeping the
// window chronological and bounded. Returns the ids of any messages
// evicted to make room, so callers can drop per-message side state.
func (ix *Index) Upsert(msg *Message) (evicted []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entry := ix.chats[msg.ChatJID]
	if entry == nil {
		entry = &chatEntry{byID: make(map[string]*Message)}
		ix.chats[msg.ChatJID] = entry
	}

	if existing, ok := entry.byID[msg.ID]; ok {
		// Redelivery (history sync re-sending a live message) must not
		// clobber state accumulated since: acks only move forward and
		// reactions survive unless the incoming copy carries its own.
		ack := existing.Ack
		reactions := existing.Reactions
		*existing = *msg
		if ack > existing.Ack {
			existing.Ack = ack
		}
		if len(existing.Reactions) == 0 {
			existing.Reactions = reactions
		}
		return nil
	}

	cp := *msg
	entry.byID[msg.ID] = &cp
	ix.msgs[msg.ID] = msg.ChatJID

	// Insert keeping chronological order; live messages almost always
	// append, history sync can interleave.
	i := sort.Search(len(entry.order), func(i int) bool {
		return entry.order[i].Timestamp > cp.Timestamp
	})
	entry.order = append(entry.order, nil)
	copy(entry.order[i+1:], entry.order[i:])
	entry.order[i] = &cp

	for len(entry.order) > ix.window {
		old := entry.order[0]
		entry.order = entry.order[1:]
		delete(entry.byID, old.ID)
		delete(ix.msgs, old.ID)
		evicted = append(evicted, old.ID)
	}
	return evicted
}

// Get returns a copy of the message and its chat JID.
func (ix *Index) Get(msgID string) (Message, string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	chatJID, ok := ix.msgs[msgID]
	if !ok {
		return Message{}, "", false
	}
	m := ix.chats[chatJID].byID[msgID]
	return *m, chatJID, true
}

// Messages returns up to limit most recent messages of a chat in
// chronological order. Unknown chats yield nil.
func (ix *Index) Messages(chatJID string, limit int) []Message {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry := ix.chats[chatJID]
	if entry == nil {
		return nil
	}
	n := len(entry.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Message, 0, n)
	for _, m := range entry.order[len(entry.order)-n:] {
		out = append(out, *m)
	}
	return out
}

// Chats returns all known conversations ordered by last activity,
// newest first.
func (ix *Index) Chats() []Chat {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Chat, 0, len(ix.chats))
	for jid, entry := range ix.chats {
		c := Chat{
			JID:     jid,
			Name:    entry.name,
			IsGroup: IsGroupJID(jid),
			Unread:  entry.unread,
		}
		if n := len(entry.order); n > 0 {
			last := *entry.order[n-1]
			c.LastMessage = &last
			c.LastMessageAt = last.Timestamp
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt > out[j].LastMessageAt
	})
	return out
}

// SetChatName records a display name for a chat.
func (ix *Index) SetChatName(chatJID, name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entry := ix.chats[chatJID]
	if entry == nil {
		entry = &chatEntry{byID: make(map[string]*Message)}
		ix.chats[chatJID] = entry
	}
	entry.name = name
}

// SetAck updates a message's ack level, returning its chat JID. Ack
// levels only move forward.
func (ix *Index) SetAck(msgID string, ack int) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	chatJID, ok := ix.msgs[msgID]
	if !ok {
		return "", false
	}
	m := ix.chats[chatJID].byID[msgID]
	if ack > m.Ack {
		m.Ack = ack
	}
	return chatJID, true
}

// AddReaction appends a reaction to a message, returning its chat JID.
func (ix *Index) AddReaction(msgID string, r Reaction) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	chatJID, ok := ix.msgs[msgID]
	if !ok {
		return "", false
	}
	m := ix.chats[chatJID].byID[msgID]
	m.Reactions = append(m.Reactions, r)
	return chatJID, true
}

// IncrementUnread bumps a chat's unread counter.
func (ix *Index) IncrementUnread(chatJID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if entry := ix.chats[chatJID]; entry != nil {
		entry.unread++
	}
}

// ClearUnread resets a chat's unread counter.
func (ix *Index) ClearUnread(chatJID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if entry := ix.chats[chatJID]; entry != nil {
		entry.unread = 0
	}
}
