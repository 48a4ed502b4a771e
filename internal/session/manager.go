package session

import (
	"context"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/bus"
	"github.com/lautaromei/wpbb10/internal/media"
	"github.com/lautaromei/wpbb10/internal/status"
	"github.com/lautaromei/wpbb10/internal/store"
	"github.com/lautaromei/wpbb10/internal/wa"
)

// ReconnectConfig tunes the supervised reconnection loop.
type ReconnectConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (c ReconnectConfig) withDefaults() ReconnectConfig {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 5 * time.Second
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// reconnectDelay grows linearly with the attempt number up to the cap.
func reconnectDelay(attempt int, cfg ReconnectConfig) time.Duration {
	d := cfg.BaseDelay * time.Duration(attempt)
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}

// recentWindow bounds the per-chat message scan used to locate reaction
// targets. It matches the per-chat retention of the store index.
const recentWindow = store.DefaultWindow

// Manager owns one messaging session: it drives the lifecycle state
// machine, supervises reconnection, normalizes traffic for the HTTP and
// WebSocket surface, and fronts the media cache. All methods are safe
// for concurrent use.
type Manager struct {
	factory    wa.Factory
	machine    *status.Machine
	bus        *bus.Bus
	cache      *media.Cache
	transcoder media.Transcoder
	rc         ReconnectConfig
	logger     *zap.Logger

	mu           sync.Mutex
	client       wa.Client
	qrDataURL    string
	attempts     int
	reconnecting bool
	mediaTried   map[string]struct{}
}

// NewManager wires a manager around its collaborators. transcoder may
// be nil when no ffmpeg binary is available; audio sends then fall back
// to the original payload.
func NewManager(factory wa.Factory, machine *status.Machine, b *bus.Bus, cache *media.Cache, transcoder media.Transcoder, rc ReconnectConfig, logger *zap.Logger) *Manager {
	return &Manager{
		factory:    factory,
		machine:    machine,
		bus:        b,
		cache:      cache,
		transcoder: transcoder,
		rc:         rc.withDefaults(),
		logger:     logger,
		mediaTried: make(map[string]struct{}),
	}
}

// Start builds the initial client and begins connecting. Events from
// the client drive all further state changes.
func (m *Manager) Start(ctx context.Context) error {
	return m.bootstrap(ctx)
}

// Stop tears down the current client, if any.
func (m *Manager) Stop() {
	if c := m.currentClient(); c != nil {
		c.Disconnect()
	}
}

func (m *Manager) bootstrap(ctx context.Context) error {
	client, err := m.factory(ctx)
	if err != nil {
		return err
	}
	client.AddEventHandler(m.handleEvent)

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()

	return client.Connect(ctx)
}

func (m *Manager) currentClient() wa.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

func (m *Manager) isReconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnecting
}

// State returns the current lifecycle state.
func (m *Manager) State() status.State {
	return m.machine.Current()
}

// QRCode returns the pending pairing code as a PNG data URL, or ""
// when no pairing is in progress.
func (m *Manager) QRCode() string {
	if m.machine.Current() != status.QRRequired {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.qrDataURL
}

// Cache exposes the media cache for the HTTP media endpoint.
func (m *Manager) Cache() *media.Cache {
	return m.cache
}

// Transcoder exposes the audio transcoder for derived media variants.
func (m *Manager) Transcoder() media.Transcoder {
	return m.transcoder
}

func (m *Manager) handleEvent(evt any) {
	switch e := evt.(type) {
	case wa.QRCodeEvent:
		m.setQR(e.Code)
		_ = m.machine.Transition(status.QRRequired)
	case wa.AuthenticatedEvent:
		m.clearQR()
		_ = m.machine.Transition(status.Authenticated)
	case wa.ReadyEvent:
		if err := m.machine.Transition(status.Ready); err == nil {
			m.mu.Lock()
			m.attempts = 0
			m.mu.Unlock()
			m.logger.Info("session ready")
		}
	case wa.AuthFailureEvent:
		m.logger.Error("authentication failure", zap.String("reason", e.Reason))
		m.clearQR()
		_ = m.machine.Transition(status.Disconnected)
	case wa.DisconnectedEvent:
		m.logger.Warn("session disconnected", zap.String("reason", e.Reason))
		_ = m.machine.Transition(status.Disconnected)
		m.triggerReconnect()
	case wa.MessageEvent:
		m.publishMessage(e)
	case wa.AckEvent:
		m.bus.Publish(bus.Event{
			Kind:      "message.ack",
			Timestamp: time.Now(),
			Payload: AckUpdate{
				MessageID: SerializeMessageID(e.MessageFromMe, e.ChatJID, e.MessageID),
				ChatID:    e.ChatJID,
				Ack:       e.Ack,
			},
		})
	case wa.ReactionEvent:
		m.bus.Publish(bus.Event{
			Kind:      "message.reaction",
			Timestamp: time.Now(),
			Payload: ReactionUpdate{
				MessageID: SerializeMessageID(e.MessageFromMe, e.ChatJID, e.MessageID),
				ChatID:    e.ChatJID,
				Emoji:     e.Emoji,
				SenderID:  e.SenderID,
				Timestamp: e.Timestamp,
			},
		})
	}
}

func (m *Manager) publishMessage(e wa.MessageEvent) {
	msg := toWire(e.Message)
	sm := e.Message
	if store.IsGroupJID(sm.ChatJID) && !sm.FromMe && sm.SenderJID != "" {
		name := sm.SenderName
		if name == "" {
			name = m.resolveAuthorName(context.Background(), sm.SenderJID)
		}
		msg.Author = &name
	}
	m.bus.Publish(bus.Event{
		Kind:      "message.new",
		Timestamp: time.Now(),
		Payload:   msg,
	})
}

func (m *Manager) setQR(code string) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		m.logger.Error("failed to render qr code", zap.Error(err))
		return
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	m.mu.Lock()
	m.qrDataURL = dataURL
	m.mu.Unlock()
}

func (m *Manager) clearQR() {
	m.mu.Lock()
	m.qrDataURL = ""
	m.mu.Unlock()
}

// checkFatal inspects an operation error and kicks off reconnection
// when the underlying connection is gone.
func (m *Manager) checkFatal(err error) {
	if !IsFatal(err) {
		return
	}
	m.logger.Error("fatal session error, rebuilding client", zap.Error(err))
	_ = m.machine.Transition(status.Disconnected)
	m.triggerReconnect()
}

func (m *Manager) triggerReconnect() {
	m.mu.Lock()
	if m.reconnecting {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.rc.MaxAttempts {
		m.mu.Unlock()
		m.logger.Error("reconnect attempts exhausted, manual restart required",
			zap.Int("max_attempts", m.rc.MaxAttempts))
		return
	}
	m.reconnecting = true
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	delay := reconnectDelay(attempt, m.rc)
	m.logger.Warn("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", m.rc.MaxAttempts),
		zap.Duration("delay", delay))
	go m.reconnect(delay)
}

func (m *Manager) reconnect(delay time.Duration) {
	defer func() {
		m.mu.Lock()
		m.reconnecting = false
		m.mu.Unlock()
	}()

	time.Sleep(delay)

	// Teardown failures of the dead client are irrelevant to the new one.
	if old := m.currentClient(); old != nil {
		old.Disconnect()
	}

	_ = m.machine.Transition(status.Initializing)

	if err := m.bootstrap(context.Background()); err != nil {
		m.logger.Error("reconnect bootstrap failed", zap.Error(err))
		return
	}
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
	m.logger.Info("reconnect bootstrap complete")
}

// Chats lists conversations sorted by recent activity. Returns an empty
// list while the session is not ready.
func (m *Manager) Chats(ctx context.Context, limit int) []ChatSummary {
	if m.machine.Current() != status.Ready {
		return []ChatSummary{}
	}
	client := m.currentClient()
	chats, err := client.ListConversations(ctx)
	if err != nil {
		m.logger.Warn("failed to list conversations", zap.Error(err))
		m.checkFatal(err)
		return []ChatSummary{}
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageAt > chats[j].LastMessageAt
	})
	if limit > 0 && len(chats) > limit {
		chats = chats[:limit]
	}
	out := make([]ChatSummary, 0, len(chats))
	for _, c := range chats {
		name := c.Name
		if name == "" {
			name = localPart(c.JID)
		}
		summary := ChatSummary{
			ID:          c.JID,
			Name:        name,
			IsGroup:     c.IsGroup,
			UnreadCount: c.Unread,
			Timestamp:   c.LastMessageAt,
		}
		if c.LastMessage != nil {
			summary.LastMessage = &LastMessage{
				Body:      c.LastMessage.Body,
				FromMe:    c.LastMessage.FromMe,
				Timestamp: c.LastMessage.Timestamp,
				Type:      c.LastMessage.Type,
			}
		}
		out = append(out, summary)
	}
	return out
}

// Messages returns the recent window of a conversation, oldest first,
// with group author names resolved and media for displayable types
// fetched into the cache. baseURL prefixes the mediaUrl links. Returns
// an empty list while the session is not ready.
func (m *Manager) Messages(ctx context.Context, chatID string, limit int, baseURL string) []Message {
	if m.machine.Current() != status.Ready {
		return []Message{}
	}
	client := m.currentClient()
	raw, err := client.FetchMessages(ctx, chatID, limit)
	if err != nil {
		m.logger.Warn("failed to fetch messages", zap.String("chat", chatID), zap.Error(err))
		m.checkFatal(err)
		return []Message{}
	}

	isGroup := store.IsGroupJID(chatID)
	// Author lookups are memoized per batch so a chatty sender costs one
	// resolution, not one per message.
	names := make(map[string]string)

	out := make([]Message, 0, len(raw))
	for _, sm := range raw {
		msg := toWire(sm)
		if isGroup && !sm.FromMe && sm.SenderJID != "" {
			name, ok := names[sm.SenderJID]
			if !ok {
				if sm.SenderName != "" {
					name = sm.SenderName
				} else {
					name = m.resolveAuthorName(ctx, sm.SenderJID)
				}
				names[sm.SenderJID] = name
			}
			msg.Author = &name
		}
		if sm.HasMedia && downloadableType(sm.Type) {
			if link := m.ensureMedia(ctx, msg.ID, sm.ID, baseURL); link != "" {
				msg.MediaURL = &link
			}
		}
		out = append(out, msg)
	}
	return out
}

// AvatarURL resolves a contact's profile picture URL. Returns "" when
// unavailable or while the session is not ready.
func (m *Manager) AvatarURL(ctx context.Context, contactID string) string {
	if m.machine.Current() != status.Ready {
		return ""
	}
	link, err := m.currentClient().FetchAvatarURL(ctx, contactID)
	if err != nil {
		m.logger.Debug("failed to fetch avatar", zap.String("contact", contactID), zap.Error(err))
		return ""
	}
	return link
}

// SendText sends a plain text message and returns its normalized form.
func (m *Manager) SendText(ctx context.Context, chatID, body string) (*Message, error) {
	if m.machine.Current() != status.Ready {
		return nil, ErrNotReady
	}
	sm, err := m.currentClient().SendText(ctx, chatID, body)
	if err != nil {
		m.checkFatal(err)
		return nil, err
	}
	msg := toWire(*sm)
	return &msg, nil
}

// SendMedia sends a media payload. Audio is transcoded to an OGG Opus
// voice note when a transcoder is available; if transcoding fails the
// original bytes go out as a plain audio message. The payload that was
// actually sent is cached immediately under the new message id.
func (m *Manager) SendMedia(ctx context.Context, chatID string, data []byte, mimetype, caption, baseURL string) (*Message, error) {
	if m.machine.Current() != status.Ready {
		return nil, ErrNotReady
	}

	sendData, sendMime := data, mimetype
	isAudio := strings.HasPrefix(mimetype, "audio/")
	opts := wa.SendMediaOptions{}
	if isAudio {
		if m.transcoder != nil {
			out, outMime, err := m.transcoder.Transcode(ctx, data, media.ProfileVoiceNote)
			if err != nil {
				m.logger.Warn("voice note transcode failed, sending original audio", zap.Error(err))
			} else {
				sendData, sendMime = out, outMime
				opts.VoiceNote = true
			}
		}
	} else {
		opts.Caption = caption
	}

	sm, err := m.currentClient().SendMedia(ctx, chatID, sendData, sendMime, opts)
	if err != nil {
		m.checkFatal(err)
		return nil, err
	}

	msg := toWire(*sm)
	m.cache.Put(msg.ID, sendData, sendMime)
	m.markMediaTried(msg.ID)
	link := mediaLink(baseURL, msg.ID)
	msg.MediaURL = &link
	return &msg, nil
}

// React adds an emoji reaction to a message addressed by its composite
// identifier. The target must still be inside the recent window of its
// conversation.
func (m *Manager) React(ctx context.Context, messageID, emoji string) error {
	if m.machine.Current() != status.Ready {
		return ErrNotReady
	}
	parsed, err := ParseMessageID(messageID)
	if err != nil {
		return err
	}
	client := m.currentClient()
	window, err := client.FetchMessages(ctx, parsed.ChatJID, recentWindow)
	if err != nil {
		m.checkFatal(err)
		return err
	}
	found := false
	for _, sm := range window {
		if sm.ID == parsed.RawID {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	if err := client.React(ctx, parsed.ChatJID, parsed.RawID, emoji); err != nil {
		m.checkFatal(err)
		return err
	}
	return nil
}

// MarkRead marks every inbound message of a conversation as read.
func (m *Manager) MarkRead(ctx context.Context, chatID string) error {
	if m.machine.Current() != status.Ready {
		return ErrNotReady
	}
	if err := m.currentClient().MarkRead(ctx, chatID); err != nil {
		m.checkFatal(err)
		return err
	}
	return nil
}

func (m *Manager) resolveAuthorName(ctx context.Context, jid string) string {
	name, err := m.currentClient().ResolveDisplayName(ctx, jid)
	if err == nil && name != "" {
		return name
	}
	return localPart(jid)
}

// ensureMedia downloads a message's media into the cache at most once
// and returns the serving URL, or "" when the payload is unavailable.
func (m *Manager) ensureMedia(ctx context.Context, wireID, rawID, baseURL string) string {
	if _, ok := m.cache.Get(wireID); ok {
		return mediaLink(baseURL, wireID)
	}
	if !m.markMediaTried(wireID) {
		return ""
	}
	data, mimetype, err := m.currentClient().DownloadMedia(ctx, rawID)
	if err != nil {
		m.logger.Warn("media download failed", zap.String("message", wireID), zap.Error(err))
		return ""
	}
	m.cache.Put(wireID, data, mimetype)
	return mediaLink(baseURL, wireID)
}

// markMediaTried records a download attempt; it returns false when the
// message was already attempted.
func (m *Manager) markMediaTried(wireID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.mediaTried[wireID]; seen {
		return false
	}
	m.mediaTried[wireID] = struct{}{}
	return true
}

func downloadableType(t string) bool {
	switch t {
	case "image", "sticker", "audio", "ptt":
		return true
	}
	return false
}

func mediaLink(baseURL, wireID string) string {
	return baseURL + "/api/media/" + url.PathEscape(wireID)
}

func localPart(jid string) string {
	if i := strings.Index(jid, "@"); i >= 0 {
		return jid[:i]
	}
	return jid
}
