// Package hub fans serialized events out to a dynamic set of
// subscribers, typically WebSocket connections. Subscribers that fail a
// send are dropped so one dead connection cannot poison the broadcast.
package hub

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber receives broadcast frames. Send must be safe for
// concurrent use and should return an error once the subscriber is no
// longer able to accept frames.
type Subscriber interface {
	Send(data []byte) error
}

// Hub is a broadcast fan-out. The zero value is not usable; construct
// with New.
type Hub struct {
	mu     sync.Mutex
	subs   map[Subscriber]struct{}
	logger *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[Subscriber]struct{}),
		logger: logger,
	}
}

// Register adds a subscriber. Registering the same subscriber twice is
// a no-op.
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("subscriber registered", zap.Int("total", n))
}

// Unregister removes a subscriber. Removing an unknown subscriber is a
// no-op.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("subscriber removed", zap.Int("total", n))
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast delivers one frame to every current subscriber. The
// subscriber set is snapshotted first, so handlers may register or
// unregister concurrently. Subscribers whose Send fails are evicted.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	snapshot := make([]Subscriber, 0, len(h.subs))
	for s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		if err := s.Send(data); err != nil {
			h.logger.Debug("evicting failed subscriber", zap.Error(err))
			h.Unregister(s)
		}
	}
}
