// Package push tracks live websocket connections per user and delivers
// best-effort payloads to them.
package push

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub maps a username to its active connection. It is created on startup and
// torn down with Close; every server instance owns its own hub while the
// persisted notification row remains the durable record.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*websocket.Conn)}
}

// Register binds a connection to a username. A previous connection for the
// same user is closed and replaced.
func (h *Hub) Register(username string, conn *websocket.Conn) {
	h.mu.Lock()
	prev := h.conns[username]
	h.conns[username] = conn
	h.mu.Unlock()

	if prev != nil && prev != conn {
		_ = prev.Close()
	}
	log.Printf("[push] %s connected", username)
}

// Unregister drops the binding, but only if conn is still the active one, so
// a stale disconnect cannot evict a fresh connection.
func (h *Hub) Unregister(username string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[username] == conn {
		delete(h.conns, username)
		log.Printf("[push] %s disconnected", username)
	}
	h.mu.Unlock()
}

// Connected reports whether the user has an active connection.
func (h *Hub) Connected(username string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[username]
	return ok
}

// SendTo writes payload to the user's connection if one is active. It
// reports whether delivery was attempted successfully; an offline recipient
// is not an error.
func (h *Hub) SendTo(username string, payload any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[username]
	if !ok {
		return false
	}
	if err := conn.WriteJSON(payload); err != nil {
		log.Printf("[push] write to %s failed: %v", username, err)
		delete(h.conns, username)
		_ = conn.Close()
		return false
	}
	return true
}

// Close tears down every connection. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for username, conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, username)
	}
}
