package models

import "time"

// ChatRoom is a persistent conversation channel between a fixed set of
// participants. It is not the same thing as the live join-state the hub
// tracks: one is "who participates ever", the other "who is listening now".
type ChatRoom struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateRoomRequest struct {
	Participants []string `json:"participants"`
}
