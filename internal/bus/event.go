package bus

import "time"

// Event is a domain event published on the bus. Kind uses dotted
// namespaces ("session.", "message.") so consumers can subscribe by prefix.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
