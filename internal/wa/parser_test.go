package wa

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestExtractTextBody(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hello")}, "hello"},
		{
			"extended text",
			&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("quoted reply")}},
			"quoted reply",
		},
		{
			"image caption",
			&waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look at this")}},
			"look at this",
		},
		{"empty", &waE2E.Message{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTextBody(tt.msg); got != tt.want {
				t.Errorf("extractTextBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectMessageType(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil", nil, "unknown"},
		{"text", &waE2E.Message{Conversation: proto.String("hi")}, "chat"},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, "image"},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, "sticker"},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, "audio"},
		{
			"voice note",
			&waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}},
			"ptt",
		},
		{"video", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{}}, "video"},
		{"document", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{}}, "document"},
		{"empty", &waE2E.Message{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMessageType(tt.msg); got != tt.want {
				t.Errorf("detectMessageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDownloadablePart(t *testing.T) {
	if downloadablePart(&waE2E.Message{Conversation: proto.String("hi")}) != nil {
		t.Error("text message should have no downloadable part")
	}
	if downloadablePart(&waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}) == nil {
		t.Error("image message should have a downloadable part")
	}
}

func TestAckFromReceipt(t *testing.T) {
	tests := []struct {
		rt   types.ReceiptType
		want int
	}{
		{types.ReceiptTypeDelivered, AckDelivered},
		{types.ReceiptTypeRead, AckRead},
		{types.ReceiptTypeReadSelf, AckRead},
		{types.ReceiptTypePlayed, 0},
	}
	for _, tt := range tests {
		if got := ackFromReceipt(tt.rt); got != tt.want {
			t.Errorf("ackFromReceipt(%q) = %d, want %d", tt.rt, got, tt.want)
		}
	}
}

func TestParseLiveMessageInbound(t *testing.T) {
	chat := types.NewJID("123456", types.DefaultUserServer)
	sender := types.NewJID("123456", types.DefaultUserServer)
	ts := time.Unix(1700000000, 0)

	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, Sender: sender, IsFromMe: false},
			ID:            "MSG1",
			PushName:      "Alice",
			Timestamp:     ts,
		},
		Message: &waE2E.Message{Conversation: proto.String("hello")},
	}

	m := ParseLiveMessage(evt)
	if m.ID != "MSG1" || m.Body != "hello" || m.Type != "chat" {
		t.Errorf("parsed = %+v", m)
	}
	if m.FromMe {
		t.Error("inbound message marked FromMe")
	}
	if m.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d, want 1700000000", m.Timestamp)
	}
	if m.SenderName != "Alice" {
		t.Errorf("sender name = %q, want Alice", m.SenderName)
	}
	if m.From != chat.String() {
		t.Errorf("from = %q, want chat JID", m.From)
	}
	if m.HasMedia {
		t.Error("text message marked HasMedia")
	}
}

func TestParseLiveMessageOutboundMedia(t *testing.T) {
	chat := types.NewJID("123456", types.DefaultUserServer)
	me := types.NewJID("999", types.DefaultUserServer)

	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, Sender: me, IsFromMe: true},
			ID:            "MSG2",
			Timestamp:     time.Unix(1700000001, 0),
		},
		Message: &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}},
	}

	m := ParseLiveMessage(evt)
	if !m.FromMe || m.Ack != AckSent {
		t.Errorf("outbound message: FromMe=%v Ack=%d", m.FromMe, m.Ack)
	}
	if m.Type != "ptt" {
		t.Errorf("type = %q, want ptt", m.Type)
	}
	if !m.HasMedia {
		t.Error("voice note not marked HasMedia")
	}
	if m.To != chat.String() {
		t.Errorf("to = %q, want chat JID", m.To)
	}
}
