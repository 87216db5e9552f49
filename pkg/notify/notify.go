// Package notify provides the subscribe-to-change contract shared by the
// client's stateful components. Notifications carry no payload; listeners
// read the current state from the component that notified them.
package notify

import (
	"sort"
	"sync"
)

// Listener is called after the owning component's state changed.
type Listener func()

// Hub manages listeners. The zero value is ready to use.
type Hub struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (h *Hub) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[uint64]Listener)
	}
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Notify calls every listener in subscription order. Listeners run outside
// the hub's lock so they may subscribe or unsubscribe.
func (h *Hub) Notify() {
	h.mu.Lock()
	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]Listener, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, h.listeners[id])
	}
	h.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}

// Len returns the number of active listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
