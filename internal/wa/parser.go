package wa

import (
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/lautaromei/wpbb10/internal/store"
)

// Ack levels as the legacy client understands them.
const (
	AckSent      = 1
	AckDelivered = 2
	AckRead      = 3
)

// ParseLiveMessage normalizes a live message event into the store model.
func ParseLiveMessage(evt *events.Message) *store.Message {
	m := &store.Message{
		ID:         evt.Info.ID,
		ChatJID:    evt.Info.Chat.String(),
		SenderJID:  evt.Info.Sender.ToNonAD().String(),
		SenderName: evt.Info.PushName,
		Body:       extractTextBody(evt.Message),
		Type:       detectMessageType(evt.Message),
		FromMe:     evt.Info.IsFromMe,
		Timestamp:  evt.Info.Timestamp.Unix(),
		HasMedia:   downloadablePart(evt.Message) != nil,
	}
	if evt.Info.IsFromMe {
		m.From = evt.Info.Sender.ToNonAD().String()
		m.To = evt.Info.Chat.String()
		m.Ack = AckSent
	} else {
		m.From = evt.Info.Chat.String()
		m.To = evt.Info.Sender.ToNonAD().String()
	}
	return m
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

// detectMessageType maps a message proto to the legacy client's type
// vocabulary. Voice notes are "ptt", plain audio stays "audio".
func detectMessageType(msg *waE2E.Message) string {
	if msg == nil {
		return "unknown"
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return "chat"
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	case msg.GetAudioMessage() != nil:
		if msg.GetAudioMessage().GetPTT() {
			return "ptt"
		}
		return "audio"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetContactMessage() != nil:
		return "vcard"
	case msg.GetLocationMessage() != nil:
		return "location"
	default:
		return "unknown"
	}
}

// downloadablePart returns the media section of a message that can be
// fetched from upstream, or nil for text-only messages.
func downloadablePart(msg *waE2E.Message) whatsmeow.DownloadableMessage {
	if msg == nil {
		return nil
	}
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage()
	default:
		return nil
	}
}

// mediaMimetype returns the declared mimetype of a message's media part.
func mediaMimetype(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetMimetype()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage().GetMimetype()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage().GetMimetype()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetMimetype()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetMimetype()
	default:
		return ""
	}
}

// ackFromReceipt maps an upstream receipt type to an ack level, or 0
// for receipt types the legacy client does not track.
func ackFromReceipt(t types.ReceiptType) int {
	switch t {
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf:
		return AckRead
	case types.ReceiptTypeDelivered:
		return AckDelivered
	default:
		return 0
	}
}
