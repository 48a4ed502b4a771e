package wa

import (
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/store"
)

// handleEvent translates whatsmeow events into the adapter's own event
// vocabulary and keeps the retrieval-window index current.
func (a *Adapter) handleEvent(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		a.logger.Info("session connected")
		a.dispatch(ReadyEvent{})
	case *events.Disconnected:
		a.logger.Warn("session disconnected")
		a.dispatch(DisconnectedEvent{Reason: "connection closed"})
	case *events.LoggedOut:
		a.logger.Warn("session logged out", zap.String("reason", evt.Reason.String()))
		a.dispatch(AuthFailureEvent{Reason: evt.Reason.String()})
	case *events.Message:
		a.handleMessage(evt)
	case *events.Receipt:
		a.handleReceipt(evt)
	case *events.HistorySync:
		a.handleHistorySync(evt)
	}
}

func (a *Adapter) handleMessage(evt *events.Message) {
	if react := evt.Message.GetReactionMessage(); react != nil {
		targetID := react.GetKey().GetID()
		senderID := evt.Info.Sender.ToNonAD().String()
		chatJID, ok := a.index.AddReaction(targetID, store.Reaction{
			Emoji:    react.GetText(),
			SenderID: senderID,
			FromMe:   evt.Info.IsFromMe,
		})
		if !ok {
			chatJID = evt.Info.Chat.String()
		}
		targetFromMe := false
		if target, _, found := a.index.Get(targetID); found {
			targetFromMe = target.FromMe
		}
		a.dispatch(ReactionEvent{
			MessageID:     targetID,
			ChatJID:       chatJID,
			Emoji:         react.GetText(),
			SenderID:      senderID,
			FromMe:        evt.Info.IsFromMe,
			MessageFromMe: targetFromMe,
			Timestamp:     evt.Info.Timestamp.Unix(),
		})
		return
	}

	msg := ParseLiveMessage(evt)
	a.remember(msg.ID, evt.Message)
	a.forget(a.index.Upsert(msg))

	if !msg.FromMe {
		a.index.IncrementUnread(msg.ChatJID)
		if evt.Info.PushName != "" && !evt.Info.IsGroup {
			a.index.SetChatName(msg.ChatJID, evt.Info.PushName)
		}
	}

	a.dispatch(MessageEvent{Message: *msg, Echo: msg.FromMe})
}

func (a *Adapter) handleReceipt(evt *events.Receipt) {
	ack := ackFromReceipt(evt.Type)
	if ack == 0 {
		return
	}
	for _, id := range evt.MessageIDs {
		chatJID, ok := a.index.SetAck(id, ack)
		if !ok {
			chatJID = evt.Chat.String()
		}
		fromMe := true
		if msg, _, found := a.index.Get(id); found {
			fromMe = msg.FromMe
		}
		a.dispatch(AckEvent{MessageID: id, ChatJID: chatJID, Ack: ack, MessageFromMe: fromMe})
	}
}

func (a *Adapter) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}

	count := 0
	for _, conv := range data.GetConversations() {
		chatJID := conv.GetID()
		if name := conv.GetName(); name != "" {
			a.index.SetChatName(chatJID, name)
		}
		for _, hm := range conv.GetMessages() {
			wmsg := hm.GetMessage()
			if wmsg == nil || wmsg.GetMessage() == nil {
				continue
			}
			key := wmsg.GetKey()
			content := wmsg.GetMessage()

			sender := key.GetParticipant()
			if sender == "" && !key.GetFromMe() {
				sender = chatJID
			}
			if sender == "" {
				sender = a.ownJID()
			}

			m := &store.Message{
				ID:        key.GetID(),
				ChatJID:   chatJID,
				SenderJID: sender,
				Body:      extractTextBody(content),
				Type:      detectMessageType(content),
				FromMe:    key.GetFromMe(),
				Timestamp: int64(wmsg.GetMessageTimestamp()),
				HasMedia:  downloadablePart(content) != nil,
			}
			if m.FromMe {
				m.From, m.To, m.Ack = sender, chatJID, AckSent
			} else {
				m.From, m.To = chatJID, a.ownJID()
			}

			a.remember(m.ID, content)
			a.forget(a.index.Upsert(m))
			count++
		}
	}

	if count > 0 {
		a.logger.Info("history sync ingested", zap.Int("messages", count))
	}
}
