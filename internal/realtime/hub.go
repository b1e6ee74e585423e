package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection belonging to a user. A user may hold
// several connections (multiple devices or tabs).
type Client struct {
	UserID uint
	Conn   *websocket.Conn
}

// Hub fans notification payloads out to the recipient's open connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*Client]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.clients[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Push delivers a payload to every open connection of one user. Write
// errors are ignored; the persisted notification row is the source of truth
// and the socket is only a live mirror.
func (h *Hub) Push(userID uint, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
	}
}
