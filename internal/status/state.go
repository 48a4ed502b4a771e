package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lautaromei/wpbb10/internal/bus"
)

// State represents a session lifecycle state. The string values are the
// wire states the mobile client already understands.
type State string

const (
	Initializing  State = "initializing"
	QRRequired    State = "qr_needed"
	Authenticated State = "authenticated"
	Ready         State = "ready"
	Disconnected  State = "disconnected"
)

// validTransitions defines the allowed lifecycle edges. QR refreshes
// while already in QRRequired are not transitions and emit nothing.
var validTransitions = map[State][]State{
	Initializing:  {QRRequired, Authenticated, Disconnected},
	QRRequired:    {Authenticated, Disconnected},
	Authenticated: {Ready, Disconnected},
	Ready:         {Disconnected},
	Disconnected:  {Initializing},
}

// Machine tracks and enforces session state transitions. Only the
// session manager mutates it; everyone else observes via Current or the
// bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine starting in Initializing.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Initializing,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. On success exactly one
// session.status_changed event is published, synchronously with the
// transition. Invalid transitions return an error and emit nothing.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "session.status_changed",
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
