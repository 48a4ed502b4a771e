package httpapi

import (
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/bus"
	"github.com/lautaromei/wpbb10/internal/hub"
	"github.com/lautaromei/wpbb10/internal/session"
	"github.com/lautaromei/wpbb10/internal/status"
)

// Pump drains session events off the bus, wraps each one in a wire
// envelope and broadcasts it through the hub. One pump serves all
// WebSocket subscribers; the frame is serialized once per event.
type Pump struct {
	bus    *bus.Bus
	hub    *hub.Hub
	logger *zap.Logger
	unsub  func()
	done   chan struct{}
}

func NewPump(b *bus.Bus, h *hub.Hub, logger *zap.Logger) *Pump {
	return &Pump{bus: b, hub: h, logger: logger}
}

// Start subscribes to the bus and begins broadcasting in a background
// goroutine.
func (p *Pump) Start() {
	events, unsub := p.bus.Subscribe("", 64)
	p.unsub = unsub
	p.done = make(chan struct{})
	go p.run(events)
}

// Stop unsubscribes and waits for the broadcast goroutine to drain.
func (p *Pump) Stop() {
	if p.unsub == nil {
		return
	}
	p.unsub()
	<-p.done
}

func (p *Pump) run(events <-chan bus.Event) {
	defer close(p.done)
	for evt := range events {
		frame, ok := p.frame(evt)
		if !ok {
			continue
		}
		p.hub.Broadcast(frame)
	}
}

// frame maps a bus event to its wire envelope. Unknown kinds and
// unexpected payload types are skipped.
func (p *Pump) frame(evt bus.Event) ([]byte, bool) {
	var (
		frame []byte
		err   error
	)
	switch evt.Kind {
	case "message.new":
		msg, ok := evt.Payload.(session.Message)
		if !ok {
			return nil, false
		}
		frame, err = hub.Marshal("new_message", map[string]any{
			"chatId":  msg.ChatID,
			"message": msg,
		})
	case "message.ack":
		upd, ok := evt.Payload.(session.AckUpdate)
		if !ok {
			return nil, false
		}
		frame, err = hub.Marshal("message_ack", upd)
	case "message.reaction":
		upd, ok := evt.Payload.(session.ReactionUpdate)
		if !ok {
			return nil, false
		}
		frame, err = hub.Marshal("message_reaction", upd)
	case "session.status_changed":
		change, ok := evt.Payload.(status.StatusChange)
		if !ok {
			return nil, false
		}
		frame, err = hub.Marshal("status", session.StatusUpdate{State: string(change.To)})
	default:
		return nil, false
	}
	if err != nil {
		p.logger.Warn("failed to serialize event", zap.String("kind", evt.Kind), zap.Error(err))
		return nil, false
	}
	return frame, true
}
