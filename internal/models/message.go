package models

import (
	"strings"
	"time"
)

// MediaType classifies an attachment by its MIME major type.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// ClassifyMedia maps a MIME type to a MediaType. Anything that is not
// image/* or video/* is a document.
func ClassifyMedia(mimeType string) MediaType {
	major, _, _ := strings.Cut(mimeType, "/")
	switch strings.ToLower(strings.TrimSpace(major)) {
	case "image":
		return MediaImage
	case "video":
		return MediaVideo
	default:
		return MediaDocument
	}
}

// Media is one stored attachment on a message.
type Media struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// Message carries optional text and/or an ordered list of media attachments.
// A message with neither is rejected before it reaches the store.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   *string   `json:"content"`
	Media     []Media   `json:"media,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}
