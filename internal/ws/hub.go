package ws

import (
	"encoding/json"
	"sync"

	"shopflow/pkg/log"
)

// Envelope is the wire shape pushed to connected clients
type Envelope struct {
	Message string `json:"message"`
}

// Hub tracks currently-open client connections. Clients self-register on
// accept and self-deregister on close or error; broadcast only reads the set.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a connection hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Count returns the number of registered clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the message to every connection that is open at call time
// and returns how many received it. Best-effort multicast over a snapshot of
// the subscriber set: closed or backed-up clients are skipped without error,
// and a client that connects afterwards misses the message.
func (h *Hub) Broadcast(message string) int {
	payload, err := json.Marshal(Envelope{Message: message})
	if err != nil {
		log.WithError(err).Error("Failed to marshal broadcast envelope")
		return 0
	}

	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range snapshot {
		if c.trySend(payload) {
			delivered++
		}
	}

	log.WithFields(map[string]interface{}{
		"clients":   len(snapshot),
		"delivered": delivered,
	}).Debug("Broadcast dispatched")

	return delivered
}
