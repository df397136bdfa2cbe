package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/petpals/internal/engine"
)

// Message is what a client receives for each engine event.
type Message struct {
	Type  string         `json:"type"`
	PetID string         `json:"pet_id,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Hub tracks connected clients per user and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Publish sends msg to every connection of userID.
func (h *Hub) Publish(userID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "user_id", userID, "type", msg.Type)
		}
	}
}

// Notify makes the hub an engine.Notifier.
func (h *Hub) Notify(ev engine.Event) {
	h.Publish(ev.UserID, Message{Type: string(ev.Type), PetID: ev.PetID, Data: ev.Data})
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

var _ engine.Notifier = (*Hub)(nil)
