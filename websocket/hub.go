package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// Envelope is the wire message sent over the push channel
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of live connections per user and delivers
// notification events to every connection of a recipient. It is created in
// main and passed to the handlers and services that need it.
type Hub struct {
	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*Client]bool
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients: make(map[primitive.ObjectID]map[*Client]bool),
	}
}

// Register adds a connection to the registry under its user ID. A user may
// hold any number of concurrent connections (tabs, devices).
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]bool)
		h.clients[client.UserID] = conns
	}
	conns[client] = true
}

// Unregister removes a connection from the registry and closes it. It is
// called from every disconnect path and is safe to call more than once for
// the same connection.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[client.UserID]; ok {
		if _, registered := conns[client]; registered {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}
	h.mu.Unlock()

	client.close()
}

// Dispatch forwards a persisted notification to every live connection of its
// recipient. It never returns an error: no live connection just means the
// client picks the record up on its next load, and a connection that cannot
// keep up is dropped without affecting its siblings.
func (h *Hub) Dispatch(notification models.Notification) {
	payload, err := json.Marshal(Envelope{Type: "notification", Data: notification})
	if err != nil {
		log.Printf("Error marshaling notification %s: %v", notification.ID.Hex(), err)
		return
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[notification.UserID]))
	for client := range h.clients[notification.UserID] {
		conns = append(conns, client)
	}
	h.mu.RUnlock()

	for _, client := range conns {
		if !client.enqueue(payload) {
			// Send queue full: the client stalled. One attempt, then drop.
			h.Unregister(client)
		}
	}
}

func mustMarshalEnvelope(e Envelope) []byte {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("Error marshaling envelope: %v", err)
		return []byte(`{"type":"error"}`)
	}
	return payload
}

// ConnectionCount reports how many live connections a user currently holds
func (h *Hub) ConnectionCount(userID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
