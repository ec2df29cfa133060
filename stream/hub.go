// Package stream fans board change notifications out to server-sent event clients.
package stream

import "sync"

// Hub tracks SSE subscribers per board. Notifications are coalesced: a subscriber
// that has not consumed the previous signal receives just one.
type Hub struct {
	mu     sync.Mutex
	boards map[string]map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{boards: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers a subscriber for boardID. The returned func unsubscribes.
func (h *Hub) Subscribe(boardID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	subs, ok := h.boards[boardID]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		h.boards[boardID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.boards, boardID)
			}
			h.mu.Unlock()
		})
	}
}

// Notify signals every subscriber of boardID without blocking.
func (h *Hub) Notify(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.boards[boardID]
	for ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return len(subs)
}

// Subscribers returns the number of subscribers of boardID.
func (h *Hub) Subscribers(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.boards[boardID])
}
