package handlers

import (
	"sync"

	"marketplace-chat/internal/models"

	"github.com/rs/zerolog"
)

// Conn is the one thing the hub needs from a live connection. Satisfied by
// *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
}

type clientInfo struct {
	UserID string
	Conn   Conn
}

// Hub tracks who is listening right now: connected clients by connection id
// and the set of connections joined to each room. All state is in-memory
// and rebuilt from zero on restart; it is handed to the components that
// need it, never reached as a global.
type Hub struct {
	mu sync.RWMutex
	// connID -> client
	clients map[string]clientInfo
	// chatID -> set of connIDs currently joined
	rooms map[string]map[string]struct{}
	log   zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]clientInfo),
		rooms:   make(map[string]map[string]struct{}),
		log:     log,
	}
}

// Register records a new authenticated connection. Returns true when this is
// the user's first live connection (the user just came online).
func (h *Hub) Register(connID, userID string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasOnline := h.userOnlineLocked(userID)
	h.clients[connID] = clientInfo{UserID: userID, Conn: conn}
	return !wasOnline
}

// Unregister drops the connection from the client registry and from every
// room join-set it belonged to. Returns true when the user has no
// connections left.
func (h *Hub) Unregister(connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	info, ok := h.clients[connID]
	if !ok {
		return false
	}

	for chatID, conns := range h.rooms {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, chatID)
		}
	}
	delete(h.clients, connID)

	return !h.userOnlineLocked(info.UserID)
}

// Join subscribes the connection to pushes for the room. Joining twice has
// no additional effect.
func (h *Hub) Join(chatID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return
	}
	if _, ok := h.rooms[chatID]; !ok {
		h.rooms[chatID] = make(map[string]struct{})
	}
	h.rooms[chatID][connID] = struct{}{}
}

// Leave unsubscribes the connection from the room.
func (h *Hub) Leave(chatID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[chatID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// BroadcastNewMessage pushes a freshly persisted message to every connection
// joined to its room, sender included (the echo doubles as a delivery
// confirmation). Delivery is best effort: a failed write is logged and never
// surfaces to the sender, and with nobody joined this is a no-op.
func (h *Hub) BroadcastNewMessage(msg *models.Message) {
	h.Broadcast(msg.ChatID, models.WSEvent{
		Event:    models.EventNewMessage,
		ChatID:   msg.ChatID,
		SenderID: msg.SenderID,
		Message:  msg,
	}, "")
}

// Broadcast sends the payload to every connection joined to the room except
// excludeConnID (empty string excludes nobody).
func (h *Hub) Broadcast(chatID string, payload interface{}, excludeConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.rooms[chatID]
	if !ok {
		return
	}
	for connID := range conns {
		if connID == excludeConnID {
			continue
		}
		info, ok := h.clients[connID]
		if !ok {
			continue
		}
		if err := info.Conn.WriteJSON(payload); err != nil {
			// The read loop will notice the dead connection and unregister it.
			h.log.Warn().Err(err).Str("conn_id", connID).Str("chat_id", chatID).Msg("push failed")
		}
	}
}

// IsUserOnline reports whether the user has any live connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.userOnlineLocked(userID)
}

// RoomConnCount returns how many connections are joined to the room.
func (h *Hub) RoomConnCount(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

func (h *Hub) userOnlineLocked(userID string) bool {
	for _, info := range h.clients {
		if info.UserID == userID {
			return true
		}
	}
	return false
}
