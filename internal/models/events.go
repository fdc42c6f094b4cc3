package models

// WebSocket event structure, both directions. The Event field selects which
// of the optional fields are meaningful.
type WSEvent struct {
	Event    string   `json:"event"` // "join_room", "send_message", "new_message", ...
	ChatID   string   `json:"chat_id,omitempty"`
	SenderID string   `json:"sender_id,omitempty"`
	Content  string   `json:"content,omitempty"`
	Message  *Message `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Client -> server events.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
)

// Server -> client events.
const (
	EventConnected  = "connected"
	EventJoined     = "joined"
	EventNewMessage = "new_message"
	EventError      = "error"
)
