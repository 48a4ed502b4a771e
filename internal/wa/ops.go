package wa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/lautaromei/wpbb10/internal/store"
)

// ListConversations returns the known chats ordered by last activity.
// User chats without a known name are resolved against the contact
// store (a local lookup, no network).
func (a *Adapter) ListConversations(ctx context.Context) ([]store.Chat, error) {
	chats := a.index.Chats()
	for i := range chats {
		if chats[i].Name != "" || chats[i].IsGroup {
			continue
		}
		jid, err := types.ParseJID(chats[i].JID)
		if err != nil {
			continue
		}
		info, err := a.client.Store.Contacts.GetContact(ctx, jid)
		if err != nil || !info.Found {
			continue
		}
		if info.PushName != "" {
			chats[i].Name = info.PushName
		} else if info.FullName != "" {
			chats[i].Name = info.FullName
		}
	}
	return chats, nil
}

// FetchMessages returns up to limit most recent messages of a chat, in
// chronological order, from the retrieval window.
func (a *Adapter) FetchMessages(_ context.Context, chatJID string, limit int) ([]store.Message, error) {
	return a.index.Messages(chatJID, limit), nil
}

// SendText sends a plain text message and records it in the window.
func (a *Adapter) SendText(ctx context.Context, chatJID, body string) (*store.Message, error) {
	to, err := types.ParseJID(chatJID)
	if err != nil {
		return nil, fmt.Errorf("parse JID: %w", err)
	}
	resp, err := a.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	m := &store.Message{
		ID:        resp.ID,
		ChatJID:   chatJID,
		SenderJID: a.ownJID(),
		Body:      body,
		Type:      "chat",
		From:      a.ownJID(),
		To:        chatJID,
		FromMe:    true,
		Timestamp: resp.Timestamp.Unix(),
		Ack:       AckSent,
	}
	a.forget(a.index.Upsert(m))
	return m, nil
}

// SendMedia uploads a payload and sends it as the message kind implied
// by its mimetype. Audio flagged VoiceNote goes out as a push-to-talk
// note; everything that is neither image nor audio is sent as a
// document.
func (a *Adapter) SendMedia(ctx context.Context, chatJID string, data []byte, mimetype string, opts SendMediaOptions) (*store.Message, error) {
	to, err := types.ParseJID(chatJID)
	if err != nil {
		return nil, fmt.Errorf("parse JID: %w", err)
	}

	var waMsg *waE2E.Message
	var msgType string
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		up, err := a.client.Upload(ctx, data, whatsmeow.MediaImage)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		waMsg = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(opts.Caption),
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
		msgType = "image"
	case strings.HasPrefix(mimetype, "audio/"):
		up, err := a.client.Upload(ctx, data, whatsmeow.MediaAudio)
		if err != nil {
			return nil, fmt.Errorf("upload audio: %w", err)
		}
		waMsg = &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(mimetype),
			PTT:           proto.Bool(opts.VoiceNote),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
		msgType = "audio"
		if opts.VoiceNote {
			msgType = "ptt"
		}
	default:
		up, err := a.client.Upload(ctx, data, whatsmeow.MediaDocument)
		if err != nil {
			return nil, fmt.Errorf("upload document: %w", err)
		}
		waMsg = &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			FileName:      proto.String("attachment"),
			Caption:       proto.String(opts.Caption),
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
		msgType = "document"
	}

	resp, err := a.client.SendMessage(ctx, to, waMsg)
	if err != nil {
		return nil, fmt.Errorf("send media: %w", err)
	}

	m := &store.Message{
		ID:        resp.ID,
		ChatJID:   chatJID,
		SenderJID: a.ownJID(),
		Body:      opts.Caption,
		Type:      msgType,
		From:      a.ownJID(),
		To:        chatJID,
		FromMe:    true,
		Timestamp: resp.Timestamp.Unix(),
		Ack:       AckSent,
		HasMedia:  true,
	}
	a.remember(m.ID, waMsg)
	a.forget(a.index.Upsert(m))
	return m, nil
}

// React sends an emoji reaction to a message in the retrieval window.
func (a *Adapter) React(ctx context.Context, chatJID, msgID, emoji string) error {
	chat, err := types.ParseJID(chatJID)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	msg, _, ok := a.index.Get(msgID)
	if !ok {
		return fmt.Errorf("message %s not in window", msgID)
	}

	var sender types.JID
	if msg.FromMe {
		if a.client.Store.ID == nil {
			return fmt.Errorf("no own JID")
		}
		sender = *a.client.Store.ID
	} else if sender, err = types.ParseJID(msg.SenderJID); err != nil {
		return fmt.Errorf("parse sender JID: %w", err)
	}

	reaction := a.client.BuildReaction(chat, sender, msgID, emoji)
	if _, err := a.client.SendMessage(ctx, chat, reaction); err != nil {
		return fmt.Errorf("send reaction: %w", err)
	}
	return nil
}

// MarkRead sends read receipts for the chat's inbound window messages
// and clears its unread counter.
func (a *Adapter) MarkRead(ctx context.Context, chatJID string) error {
	chat, err := types.ParseJID(chatJID)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}

	var ids []types.MessageID
	var sender types.JID
	for _, m := range a.index.Messages(chatJID, 0) {
		if m.FromMe {
			continue
		}
		ids = append(ids, m.ID)
		if s, err := types.ParseJID(m.SenderJID); err == nil {
			sender = s
		}
	}

	if len(ids) > 0 {
		if err := a.client.MarkRead(ctx, ids, time.Now(), chat, sender); err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
	}
	a.index.ClearUnread(chatJID)
	return nil
}

// ResolveDisplayName looks up a participant's name in the contact
// store. Unknown contacts yield an empty name and no error; callers
// apply their own fallback.
func (a *Adapter) ResolveDisplayName(ctx context.Context, jidStr string) (string, error) {
	jid, err := types.ParseJID(jidStr)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	info, err := a.client.Store.Contacts.GetContact(ctx, jid)
	if err != nil {
		return "", fmt.Errorf("get contact: %w", err)
	}
	if !info.Found {
		return "", nil
	}
	if info.PushName != "" {
		return info.PushName, nil
	}
	if info.FullName != "" {
		return info.FullName, nil
	}
	return "", nil
}

// FetchAvatarURL returns the contact's profile picture URL, or empty
// when none is set or visible.
func (a *Adapter) FetchAvatarURL(ctx context.Context, contactJID string) (string, error) {
	jid, err := types.ParseJID(contactJID)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	info, err := a.client.GetProfilePictureInfo(ctx, jid, &whatsmeow.GetProfilePictureParams{Preview: true})
	if err != nil || info == nil {
		return "", nil
	}
	return info.URL, nil
}

// DownloadMedia fetches the binary payload of a windowed message.
func (a *Adapter) DownloadMedia(ctx context.Context, msgID string) ([]byte, string, error) {
	a.mu.RLock()
	src := a.raw[msgID]
	a.mu.RUnlock()
	if src == nil {
		return nil, "", fmt.Errorf("no media source for message %s", msgID)
	}
	part := downloadablePart(src)
	if part == nil {
		return nil, "", fmt.Errorf("message %s has no downloadable media", msgID)
	}
	data, err := a.client.Download(ctx, part)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	return data, mediaMimetype(src), nil
}
