package exposure

import (
	"time"

	"github.com/GriffinCanCode/stratisd/internal/shared/id"
)

// EventType distinguishes exposure events
type EventType string

const (
	EventAdded   EventType = "added"
	EventRemoved EventType = "removed"
)

// Event reports an object appearing on or leaving the bus
type Event struct {
	Type      EventType  `json:"type"`
	Path      ObjectPath `json:"path"`
	Kind      string     `json:"kind"`
	ID        uint64     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
}

// Subscribe registers a listener for exposure events. Delivery is lossy: a
// subscriber whose buffer is full misses events rather than blocking the
// manager. cancel closes the channel and is safe to call more than once.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sid := id.NewSubscriberID()
	ch := make(chan Event, buffer)

	m.subsMu.Lock()
	m.subs[sid] = ch
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if c, ok := m.subs[sid]; ok {
			delete(m.subs, sid)
			close(c)
		}
	}
	return ch, cancel
}

func (m *Manager) publish(typ EventType, path ObjectPath, obj Exposable) {
	ev := Event{
		Type:      typ,
		Path:      path,
		Kind:      obj.Kind().String(),
		ID:        obj.ID(),
		Timestamp: time.Now(),
	}

	m.subsMu.RLock()
	defer m.subsMu.RUnlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
