package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type recordingSub struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (s *recordingSub) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *recordingSub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := New(zap.NewNop())
	a, b := &recordingSub{}, &recordingSub{}
	h.Register(a)
	h.Register(b)

	h.Broadcast([]byte(`{"type":"status"}`))

	if a.count() != 1 || b.count() != 1 {
		t.Errorf("frames = %d, %d, want 1, 1", a.count(), b.count())
	}
}

func TestRegisterIdempotent(t *testing.T) {
	h := New(zap.NewNop())
	a := &recordingSub{}
	h.Register(a)
	h.Register(a)
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}

	h.Broadcast([]byte("x"))
	if a.count() != 1 {
		t.Errorf("duplicate registration delivered %d frames", a.count())
	}

	h.Unregister(a)
	h.Unregister(a)
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestFailedSubscriberEvicted(t *testing.T) {
	h := New(zap.NewNop())
	good := &recordingSub{}
	bad := &recordingSub{err: errors.New("connection reset")}
	h.Register(good)
	h.Register(bad)

	h.Broadcast([]byte("first"))
	if h.Len() != 1 {
		t.Fatalf("Len after failure = %d, want 1", h.Len())
	}

	// The healthy subscriber keeps receiving after the eviction.
	h.Broadcast([]byte("second"))
	if good.count() != 2 {
		t.Errorf("healthy subscriber frames = %d, want 2", good.count())
	}
}

func TestUnregisteredReceivesNothing(t *testing.T) {
	h := New(zap.NewNop())
	a := &recordingSub{}
	h.Register(a)
	h.Unregister(a)

	h.Broadcast([]byte("x"))
	if a.count() != 0 {
		t.Errorf("frames after unregister = %d, want 0", a.count())
	}
}

func TestEnvelopeMarshal(t *testing.T) {
	frame, err := Marshal("new_message", map[string]string{"chatId": "x@g.us"})
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "new_message" || env.Data["chatId"] != "x@g.us" {
		t.Errorf("envelope = %+v", env)
	}
}
