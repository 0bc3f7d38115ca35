package engine

import (
	"sync"
)

// Broadcast message types.
const (
	TypeFocusUpdate      = "focus-update"
	TypeFocusStop        = "focus-stop"
	TypeConnectionStatus = "eeg-connection-status"
)

// Message is one best-effort broadcast to UI subscribers.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub fans messages out to in-process subscribers. Delivery is best effort:
// a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Message]struct{}
	onDrop func()
}

// NewHub returns an empty Hub. onDrop, if non-nil, is called for every
// message a subscriber misses.
func NewHub(onDrop func()) *Hub {
	return &Hub{subs: make(map[chan Message]struct{}), onDrop: onDrop}
}

// Subscribe returns a channel receiving broadcasts. Caller must Unsubscribe.
func (h *Hub) Subscribe() chan Message {
	ch := make(chan Message, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (h *Hub) Unsubscribe(ch chan Message) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers msg to every subscriber without blocking.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
