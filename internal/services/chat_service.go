package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/store"

	"github.com/rs/zerolog"
)

// MediaFile is one uploaded file as the transport hands it over.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f MediaFile) valid() bool {
	return f.Name != "" && f.ContentType != "" && len(f.Data) > 0
}

// ChatService orchestrates room creation, message persistence and the media
// pipeline. It knows nothing about live connections; delivery is the
// gateway's job, done after a send returns.
type ChatService struct {
	store   store.MessageStore
	objects storage.ObjectStore
	log     zerolog.Logger
}

func NewChatService(st store.MessageStore, objects storage.ObjectStore, log zerolog.Logger) *ChatService {
	return &ChatService{store: st, objects: objects, log: log}
}

// CreateChatRoom provisions a conversation channel for the given users,
// typically when a brand accepts an influencer's application. Duplicate
// identifiers are dropped, first occurrence wins.
func (s *ChatService) CreateChatRoom(ctx context.Context, participants []string) (*models.ChatRoom, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: participants", ErrValidation)
	}

	seen := make(map[string]struct{}, len(participants))
	deduped := make([]string, 0, len(participants))
	for _, id := range participants {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: empty participant id", ErrValidation)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	room, err := s.store.CreateRoom(ctx, deduped)
	if err != nil {
		return nil, fmt.Errorf("%w: create room: %v", ErrUpstream, err)
	}

	s.log.Info().Str("chat_id", room.ID).Strs("participants", room.Participants).Msg("chat room created")
	return room, nil
}

// SendTextMessage persists a text message and repoints the room's last
// message. All three fields are required and checked before anything is
// written.
func (s *ChatService) SendTextMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error) {
	if chatID == "" || senderID == "" || content == "" {
		return nil, fmt.Errorf("%w: chat_id, sender_id and content are required", ErrValidation)
	}

	msg := &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  &content,
	}
	return s.persist(ctx, msg)
}

// SendMessageWithMedia uploads the given files, persists one message
// carrying all of them plus optional text, and repoints the room's last
// message. Structurally invalid files are skipped, not fatal; a batch in
// which nothing survives fails as a whole.
func (s *ChatService) SendMessageWithMedia(ctx context.Context, chatID, senderID, content string, files []MediaFile) (*models.Message, error) {
	if chatID == "" || senderID == "" {
		return nil, fmt.Errorf("%w: chat_id and sender_id are required", ErrValidation)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one media file is required", ErrValidation)
	}

	// Uploads run sequentially in input order; the media array order is
	// part of the contract.
	var media []models.Media
	var keys []string
	for _, f := range files {
		if !f.valid() {
			s.log.Warn().Str("chat_id", chatID).Str("file", f.Name).Msg("skipping malformed media file")
			continue
		}

		key := storage.ObjectKey(f.Name)
		url, err := s.objects.Put(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), f.ContentType)
		if err != nil {
			s.log.Warn().Err(err).Str("chat_id", chatID).Str("file", f.Name).Msg("media upload failed, skipping file")
			continue
		}

		media = append(media, models.Media{URL: url, Type: models.ClassifyMedia(f.ContentType)})
		keys = append(keys, key)
	}

	if len(media) == 0 {
		return nil, ErrInvalidMedia
	}

	msg := &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Media:    media,
	}
	if content != "" {
		msg.Content = &content
	}

	persisted, err := s.persist(ctx, msg)
	if err != nil {
		// The blobs are orphans now; best effort cleanup.
		for _, key := range keys {
			if delErr := s.objects.Delete(ctx, key); delErr != nil {
				s.log.Warn().Err(delErr).Str("key", key).Msg("failed to clean up orphaned media object")
			}
		}
		return nil, err
	}
	return persisted, nil
}

// persist writes the message and repoints the room's last message. If the
// room turns out not to exist the freshly created message is deleted again
// so no orphan is left behind; both send paths share this policy.
func (s *ChatService) persist(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, msg.ChatID)
		}
		return nil, fmt.Errorf("%w: create message: %v", ErrUpstream, err)
	}

	if err := s.store.UpdateRoomLastMessage(ctx, msg.ChatID, msg.ID); err != nil {
		if delErr := s.store.DeleteMessage(ctx, msg.ID); delErr != nil {
			s.log.Error().Err(delErr).Int64("message_id", msg.ID).Msg("failed to roll back orphaned message")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, msg.ChatID)
		}
		return nil, fmt.Errorf("%w: update room last message: %v", ErrUpstream, err)
	}

	s.log.Debug().Str("chat_id", msg.ChatID).Int64("message_id", msg.ID).Int("media", len(msg.Media)).Msg("message persisted")
	return msg, nil
}

// GetMessages returns the room's history in creation order. An empty slice
// is the normal "no messages yet" outcome, not an error.
func (s *ChatService) GetMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat_id is required", ErrValidation)
	}

	messages, err := s.store.MessagesByRoom(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch messages: %v", ErrUpstream, err)
	}
	return messages, nil
}

// GetRoomsForUser returns every room the user participates in, expanded for
// the inbox view. An empty slice is the normal "no rooms yet" outcome.
func (s *ChatService) GetRoomsForUser(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	rooms, err := s.store.RoomsForParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch rooms: %v", ErrUpstream, err)
	}
	return rooms, nil
}
