package store

import (
	"context"
	"errors"

	"marketplace-chat/internal/models"
)

// ErrNotFound signals that a referenced room or message does not exist.
// An empty query result is not an error; callers get an empty slice.
var ErrNotFound = errors.New("not found")

// MessageStore is the persistence surface the chat service orchestrates.
type MessageStore interface {
	// CreateRoom persists a room with the given participants, in order.
	// The participant list must be non-empty.
	CreateRoom(ctx context.Context, participants []string) (*models.ChatRoom, error)

	// UpdateRoomLastMessage repoints the room's last-message reference.
	// Returns ErrNotFound when the room does not exist.
	UpdateRoomLastMessage(ctx context.Context, chatID string, messageID int64) error

	// CreateMessage persists the message and its media entries atomically,
	// filling in ID and CreatedAt.
	CreateMessage(ctx context.Context, msg *models.Message) error

	// DeleteMessage removes a message and its media entries.
	DeleteMessage(ctx context.Context, messageID int64) error

	// MessagesByRoom returns the room's messages in creation order.
	// A room with no messages yields an empty slice and no error.
	MessagesByRoom(ctx context.Context, chatID string) ([]models.Message, error)

	// RoomsForParticipant returns every room the user participates in,
	// most recently updated first, with participants and last message
	// expanded. No rooms yields an empty slice and no error.
	RoomsForParticipant(ctx context.Context, userID string) ([]models.ChatRoom, error)
}
