package telemetry

import "sync"

// Outbox collects engine events in the order they happen.
// The engine appends during a tick; observers drain after it completes.
// Treatment calls between ticks may append from other goroutines.
type Outbox struct {
	mu     sync.Mutex
	events []Event
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{events: make([]Event, 0, 256)}
}

// Append adds an event. A nil outbox discards it.
func (o *Outbox) Append(ev Event) {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

// Drain returns all pending events and empties the outbox.
func (o *Outbox) Drain() []Event {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.events) == 0 {
		return nil
	}
	out := o.events
	o.events = make([]Event, 0, cap(out))
	return out
}

// Len returns the number of pending events.
func (o *Outbox) Len() int {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}
