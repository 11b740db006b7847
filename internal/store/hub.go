package store

import (
	"log/slog"
	"sync"
)

// hub fans change events out to subscribers. Each subscriber gets a
// buffered channel; a subscriber that stops draining has events dropped
// rather than blocking the writer.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan ChangeEvent
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan ChangeEvent)}
}

// subscribe registers a new feed consumer. The cancel func closes the
// channel; nothing is delivered after it returns.
func (h *hub) subscribe() (<-chan ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan ChangeEvent, 32)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// broadcast delivers ev to every subscriber.
func (h *hub) broadcast(ev ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("change feed subscriber lagging, dropping event",
				"subscriber", id, "event", ev.Type)
		}
	}
}

// close shuts every subscriber channel down.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
