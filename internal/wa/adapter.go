package wa

import (
	"context"
	"fmt"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Adapter implements Client on top of whatsmeow. It owns the device
// credential store (sqlite) and an in-memory index of the session's
// retrieval window, fed by live events and history sync. The raw map
// retains proto forms of windowed messages so media can be downloaded
// later; it is pruned together with the index window.
type Adapter struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	index     *store.Index
	logger    *zap.Logger

	mu       sync.RWMutex
	handlers []func(any)
	raw      map[string]*waE2E.Message
}

var _ Client = (*Adapter)(nil)

// NewAdapter opens the device store at dbPath and prepares a client.
// Connection is deferred to Connect.
func NewAdapter(ctx context.Context, dbPath string, logger *zap.Logger) (*Adapter, error) {
	// Device name shown in the phone's linked devices list.
	wastore.SetOSInfo("WPBB10 Bridge", [3]uint32{0, 1, 0})

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)
	// The session manager supervises reconnection; the library must not
	// race it with its own retry loop.
	client.EnableAutoReconnect = false

	a := &Adapter{
		client:    client,
		container: container,
		index:     store.NewIndex(store.DefaultWindow),
		logger:    logger,
		raw:       make(map[string]*waE2E.Message),
	}
	client.AddEventHandler(a.handleEvent)
	return a, nil
}

// IsLoggedIn reports whether the device store holds credentials.
func (a *Adapter) IsLoggedIn() bool {
	return a.client.Store.ID != nil
}

// AddEventHandler registers an observer for translated session events.
func (a *Adapter) AddEventHandler(h func(evt any)) {
	a.mu.Lock()
	a.handlers = append(a.handlers, h)
	a.mu.Unlock()
}

// Connect establishes the session. Unpaired devices enter the QR flow:
// pairing challenges and their outcome arrive as events.
func (a *Adapter) Connect(ctx context.Context) error {
	if !a.IsLoggedIn() {
		qrChan, err := a.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get QR channel: %w", err)
		}
		if err := a.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		go a.pumpQR(qrChan)
		return nil
	}

	if err := a.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	a.dispatch(AuthenticatedEvent{})
	return nil
}

// Disconnect closes the connection and the device store. The adapter is
// unusable afterwards; reconnection builds a fresh one.
func (a *Adapter) Disconnect() {
	a.client.Disconnect()
	if err := a.container.Close(); err != nil {
		a.logger.Warn("closing session store", zap.Error(err))
	}
}

func (a *Adapter) pumpQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case "code":
			a.dispatch(QRCodeEvent{Code: item.Code})
		case "success":
			a.dispatch(AuthenticatedEvent{})
		case "timeout":
			a.dispatch(AuthFailureEvent{Reason: "QR code timeout"})
		default:
			if item.Error != nil {
				a.dispatch(AuthFailureEvent{Reason: item.Error.Error()})
			}
		}
	}
}

func (a *Adapter) dispatch(evt any) {
	a.mu.RLock()
	handlers := make([]func(any), len(a.handlers))
	copy(handlers, a.handlers)
	a.mu.RUnlock()
	for _, h := range handlers {
		h(evt)
	}
}

func (a *Adapter) remember(id string, src *waE2E.Message) {
	if src == nil || downloadablePart(src) == nil {
		return
	}
	a.mu.Lock()
	a.raw[id] = src
	a.mu.Unlock()
}

func (a *Adapter) forget(ids []string) {
	if len(ids) == 0 {
		return
	}
	a.mu.Lock()
	for _, id := range ids {
		delete(a.raw, id)
	}
	a.mu.Unlock()
}

func (a *Adapter) ownJID() string {
	if a.client.Store.ID == nil {
		return ""
	}
	return a.client.Store.ID.ToNonAD().String()
}
