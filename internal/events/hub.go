// Package events provides a small in-process pub/sub hub used to fan loan
// lifecycle events out to websocket subscribers.
package events

import (
	"sync"
	"time"
)

// Loan lifecycle event types.
const (
	TypeBorrowed = "loan.borrowed"
	TypeReturned = "loan.returned"
	TypeUpdated  = "loan.updated"
	TypeDeleted  = "loan.deleted"
)

// Event describes one loan lifecycle transition.
type Event struct {
	Type   string    `json:"type"`
	LoanID int64     `json:"loanId"`
	BookID int64     `json:"bookId"`
	UserID int64     `json:"userId,omitempty"`
	At     time.Time `json:"at"`
}

// Hub fans events out to subscribers. Publishing never blocks: slow
// subscribers drop events rather than stalling request handling.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns its channel plus a cancel
// function. The channel is closed on cancel or hub shutdown.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	ch := make(chan Event, 16)
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

// Publish delivers an event to every subscriber with room in its buffer.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
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
