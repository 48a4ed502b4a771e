package wa

import (
	"context"

	"github.com/lautaromei/wpbb10/internal/store"
)

// SendMediaOptions controls how a media payload is attached to an
// outgoing message.
type SendMediaOptions struct {
	// Caption accompanies image and document sends.
	Caption string
	// VoiceNote flags an audio payload as a push-to-talk voice note.
	// Only meaningful for audio mimetypes.
	VoiceNote bool
}

// Client is the boundary to the remote messaging session. The session
// manager consumes it as an opaque collaborator; the production
// implementation is the whatsmeow-backed Adapter, tests substitute
// fakes. Events are delivered through handlers registered with
// AddEventHandler (see events.go for the types).
type Client interface {
	// Connect establishes the session. For unpaired devices it starts
	// the QR pairing flow and emits QRCodeEvents until pairing
	// completes or times out.
	Connect(ctx context.Context) error
	// Disconnect tears the session down and releases its resources.
	Disconnect()
	// IsLoggedIn reports whether stored credentials exist.
	IsLoggedIn() bool
	// AddEventHandler registers an event observer. Must be called
	// before Connect.
	AddEventHandler(h func(evt any))

	ListConversations(ctx context.Context) ([]store.Chat, error)
	FetchMessages(ctx context.Context, chatJID string, limit int) ([]store.Message, error)
	SendText(ctx context.Context, chatJID, body string) (*store.Message, error)
	SendMedia(ctx context.Context, chatJID string, data []byte, mimetype string, opts SendMediaOptions) (*store.Message, error)
	React(ctx context.Context, chatJID, msgID, emoji string) error
	MarkRead(ctx context.Context, chatJID string) error
	ResolveDisplayName(ctx context.Context, jid string) (string, error)
	FetchAvatarURL(ctx context.Context, contactJID string) (string, error)
	DownloadMedia(ctx context.Context, msgID string) ([]byte, string, error)
}

// Factory builds a fresh Client. The manager rebuilds the session
// through it during supervised reconnection, so implementations must
// return an independent instance each call.
type Factory func(ctx context.Context) (Client, error)
