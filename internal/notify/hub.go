// Package notify creates user notifications when delegated tasks finish and streams
// them to connected clients over WebSocket.
package notify

import (
	"sync"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
)

// subscriberBuffer bounds the notifications queued for one slow subscriber.
const subscriberBuffer = 16

// Hub fans notifications out to the subscribers of each user.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Entity]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan domain.Entity]struct{})}
}

// Subscribe registers a subscriber for userID. The returned cancel func must be
// called to release it; the channel is closed afterwards.
func (h *Hub) Subscribe(userID string) (<-chan domain.Entity, func()) {
	ch := make(chan domain.Entity, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.Entity]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[userID], ch)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
			close(ch)
		})
	}
}

// Publish delivers n to every subscriber of userID. Subscribers whose buffer is
// full miss the notification and pick it up from the stored list on reconnect.
// It returns the number of subscribers reached.
func (h *Hub) Publish(userID string, n domain.Entity) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[userID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of subscribers of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
