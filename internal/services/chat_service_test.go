package services

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory MessageStore.
type fakeStore struct {
	rooms    map[string]*models.ChatRoom
	messages map[int64]*models.Message
	order    []int64
	nextID   int64

	createRoomCalls    int
	createMessageCalls int

	// forces UpdateRoomLastMessage to report a missing room even when the
	// room exists, to exercise the rollback path
	updateFails bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[string]*models.ChatRoom),
		messages: make(map[int64]*models.Message),
	}
}

func (f *fakeStore) CreateRoom(ctx context.Context, participants []string) (*models.ChatRoom, error) {
	f.createRoomCalls++
	room := &models.ChatRoom{
		ID:           fmt.Sprintf("room-%d", len(f.rooms)+1),
		Participants: participants,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeStore) UpdateRoomLastMessage(ctx context.Context, chatID string, messageID int64) error {
	room, ok := f.rooms[chatID]
	if !ok || f.updateFails {
		return store.ErrNotFound
	}
	room.LastMessage = f.messages[messageID]
	room.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	f.createMessageCalls++
	if _, ok := f.rooms[msg.ChatID]; !ok {
		return store.ErrNotFound
	}
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	stored := *msg
	f.messages[msg.ID] = &stored
	f.order = append(f.order, msg.ID)
	return nil
}

func (f *fakeStore) DeleteMessage(ctx context.Context, messageID int64) error {
	delete(f.messages, messageID)
	for i, id := range f.order {
		if id == messageID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) MessagesByRoom(ctx context.Context, chatID string) ([]models.Message, error) {
	out := []models.Message{}
	for _, id := range f.order {
		if f.messages[id].ChatID == chatID {
			out = append(out, *f.messages[id])
		}
	}
	return out, nil
}

func (f *fakeStore) RoomsForParticipant(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	out := []models.ChatRoom{}
	for _, room := range f.rooms {
		for _, p := range room.Participants {
			if p == userID {
				out = append(out, *room)
				break
			}
		}
	}
	return out, nil
}

// fakeObjects is an in-memory ObjectStore.
type fakeObjects struct {
	puts    []string
	deletes []string
	failOn  map[string]bool // filename suffix -> fail the upload
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{failOn: make(map[string]bool)}
}

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	for suffix := range f.failOn {
		if len(key) >= len(suffix) && key[len(key)-len(suffix):] == suffix {
			return "", fmt.Errorf("store unavailable")
		}
	}
	f.puts = append(f.puts, key)
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Exists(ctx context.Context, key string) (bool, error) { return true, nil }

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeObjects) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://cdn.test/signed/" + key, nil
}

func newTestService() (*ChatService, *fakeStore, *fakeObjects) {
	st := newFakeStore()
	objects := newFakeObjects()
	return NewChatService(st, objects, zerolog.Nop()), st, objects
}

func TestCreateChatRoom(t *testing.T) {
	svc, _, _ := newTestService()

	room, err := svc.CreateChatRoom(context.Background(), []string{"brand-1", "influencer-9"})
	require.NoError(t, err)

	assert.Equal(t, []string{"brand-1", "influencer-9"}, room.Participants)
	assert.Nil(t, room.LastMessage)
	assert.NotEmpty(t, room.ID)
}

func TestCreateChatRoomEmptyParticipants(t *testing.T) {
	svc, st, _ := newTestService()

	_, err := svc.CreateChatRoom(context.Background(), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateChatRoom(context.Background(), []string{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateChatRoom(context.Background(), []string{"brand-1", "  "})
	assert.ErrorIs(t, err, ErrValidation)

	// Never partially creates a room.
	assert.Zero(t, st.createRoomCalls)
}

func TestCreateChatRoomDeduplicatesParticipants(t *testing.T) {
	svc, _, _ := newTestService()

	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b", "a", "c", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, room.Participants)
}

func TestSendTextMessage(t *testing.T) {
	svc, st, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	msg, err := svc.SendTextMessage(context.Background(), room.ID, "a", "hello there")
	require.NoError(t, err)

	assert.False(t, msg.Read)
	require.NotNil(t, msg.Content)
	assert.Equal(t, "hello there", *msg.Content)
	assert.Equal(t, "a", msg.SenderID)

	// Room's last message now points at it.
	require.NotNil(t, st.rooms[room.ID].LastMessage)
	assert.Equal(t, msg.ID, st.rooms[room.ID].LastMessage.ID)
}

func TestSendTextMessageValidatesBeforePersisting(t *testing.T) {
	svc, st, _ := newTestService()

	cases := [][3]string{
		{"", "a", "hi"},
		{"room-1", "", "hi"},
		{"room-1", "a", ""},
	}
	for _, c := range cases {
		_, err := svc.SendTextMessage(context.Background(), c[0], c[1], c[2])
		assert.ErrorIs(t, err, ErrValidation)
	}

	// No orphan message was ever created.
	assert.Zero(t, st.createMessageCalls)
}

func TestSendTextMessageUnknownRoom(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SendTextMessage(context.Background(), "no-such-room", "a", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendTextMessageRollsBackOrphan(t *testing.T) {
	svc, st, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	st.updateFails = true
	_, err = svc.SendTextMessage(context.Background(), room.ID, "a", "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	// The orphaned message was compensated away.
	assert.Empty(t, st.messages)
}

func mediaFile(name, mime string) MediaFile {
	return MediaFile{Name: name, ContentType: mime, Data: []byte("payload")}
}

func TestSendMessageWithMedia(t *testing.T) {
	svc, st, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	files := []MediaFile{
		mediaFile("selfie.png", "image/png"),
		mediaFile("reel.mp4", "video/mp4"),
		mediaFile("rates.pdf", "application/pdf"),
	}
	msg, err := svc.SendMessageWithMedia(context.Background(), room.ID, "a", "campaign assets", files)
	require.NoError(t, err)

	require.Len(t, msg.Media, 3)
	assert.Equal(t, models.MediaImage, msg.Media[0].Type)
	assert.Equal(t, models.MediaVideo, msg.Media[1].Type)
	assert.Equal(t, models.MediaDocument, msg.Media[2].Type)

	// URLs are distinct even for same-named uploads.
	urls := map[string]struct{}{}
	for _, m := range msg.Media {
		urls[m.URL] = struct{}{}
	}
	assert.Len(t, urls, 3)

	require.NotNil(t, msg.Content)
	assert.Equal(t, "campaign assets", *msg.Content)
	require.NotNil(t, st.rooms[room.ID].LastMessage)
	assert.Equal(t, msg.ID, st.rooms[room.ID].LastMessage.ID)
}

func TestSendMessageWithMediaSkipsMalformedFiles(t *testing.T) {
	svc, _, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	files := []MediaFile{
		mediaFile("ok1.png", "image/png"),
		{Name: "broken.bin"}, // no mime type, no bytes
		mediaFile("ok2.png", "image/png"),
	}
	msg, err := svc.SendMessageWithMedia(context.Background(), room.ID, "a", "", files)
	require.NoError(t, err)
	assert.Len(t, msg.Media, 2)
}

func TestSendMessageWithMediaAllMalformed(t *testing.T) {
	svc, st, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	files := []MediaFile{
		{Name: "a.bin"},
		{ContentType: "image/png"},
	}
	_, err = svc.SendMessageWithMedia(context.Background(), room.ID, "a", "", files)
	assert.ErrorIs(t, err, ErrInvalidMedia)
	assert.Zero(t, st.createMessageCalls)
}

func TestSendMessageWithMediaNoFiles(t *testing.T) {
	svc, _, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	_, err = svc.SendMessageWithMedia(context.Background(), room.ID, "a", "text only", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageWithMediaUploadFailureSkipsFile(t *testing.T) {
	svc, _, objects := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	objects.failOn["flaky.png"] = true
	files := []MediaFile{
		mediaFile("ok.png", "image/png"),
		mediaFile("flaky.png", "image/png"),
	}
	msg, err := svc.SendMessageWithMedia(context.Background(), room.ID, "a", "", files)
	require.NoError(t, err)
	assert.Len(t, msg.Media, 1)
}

func TestSendMessageWithMediaRollsBackOnRoomUpdateFailure(t *testing.T) {
	svc, st, objects := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	st.updateFails = true
	files := []MediaFile{mediaFile("selfie.png", "image/png")}
	_, err = svc.SendMessageWithMedia(context.Background(), room.ID, "a", "", files)
	assert.ErrorIs(t, err, ErrNotFound)

	// Message rolled back and the uploaded blob cleaned up.
	assert.Empty(t, st.messages)
	assert.Equal(t, objects.puts, objects.deletes)
}

func TestGetMessagesEmptyRoomIsNotAnError(t *testing.T) {
	svc, _, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	messages, err := svc.GetMessages(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestGetMessagesCreationOrder(t *testing.T) {
	svc, _, _ := newTestService()
	room, err := svc.CreateChatRoom(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.SendTextMessage(context.Background(), room.ID, "a", text)
		require.NoError(t, err)
	}

	messages, err := svc.GetMessages(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", *messages[0].Content)
	assert.Equal(t, "second", *messages[1].Content)
	assert.Equal(t, "third", *messages[2].Content)
}

func TestGetRoomsForUserEmptyIsNormal(t *testing.T) {
	svc, _, _ := newTestService()

	rooms, err := svc.GetRoomsForUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
