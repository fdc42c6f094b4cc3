package store

import (
	"context"
	"errors"
	"fmt"

	"marketplace-chat/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements MessageStore on top of a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateRoom(ctx context.Context, participants []string) (*models.ChatRoom, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("participants must not be empty")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room := &models.ChatRoom{
		ID:           uuid.New().String(),
		Participants: participants,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO chat_rooms (id) VALUES ($1) RETURNING created_at, updated_at`,
		room.ID,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for i, userID := range participants {
		_, err = tx.Exec(ctx,
			`INSERT INTO chat_room_participants (room_id, user_id, position) VALUES ($1, $2, $3)`,
			room.ID, userID, i,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *PostgresStore) UpdateRoomLastMessage(ctx context.Context, chatID string, messageID int64) error {
	if _, err := uuid.Parse(chatID); err != nil {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE chat_rooms SET last_message_id = $2, updated_at = now() WHERE id = $1`,
		chatID, messageID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if _, err := uuid.Parse(msg.ChatID); err != nil {
		return ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO messages (room_id, sender_id, content, read) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		msg.ChatID, msg.SenderID, msg.Content, msg.Read,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		// A foreign key violation means the room does not exist.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}

	for i, m := range msg.Media {
		_, err = tx.Exec(ctx,
			`INSERT INTO message_media (message_id, url, media_type, position) VALUES ($1, $2, $3, $4)`,
			msg.ID, m.URL, string(m.Type), i,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, messageID int64) error {
	// message_media rows go with it via ON DELETE CASCADE
	_, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	return err
}

func (s *PostgresStore) MessagesByRoom(ctx context.Context, chatID string) ([]models.Message, error) {
	if _, err := uuid.Parse(chatID); err != nil {
		return []models.Message{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, sender_id, content, read, created_at
		 FROM messages WHERE room_id = $1 ORDER BY created_at, id`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	index := make(map[int64]int)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, err
		}
		index[msg.ID] = len(messages)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	mediaRows, err := s.pool.Query(ctx,
		`SELECT mm.message_id, mm.url, mm.media_type
		 FROM message_media mm
		 JOIN messages m ON m.id = mm.message_id
		 WHERE m.room_id = $1
		 ORDER BY mm.message_id, mm.position`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer mediaRows.Close()

	for mediaRows.Next() {
		var msgID int64
		var m models.Media
		if err := mediaRows.Scan(&msgID, &m.URL, &m.Type); err != nil {
			return nil, err
		}
		if i, ok := index[msgID]; ok {
			messages[i].Media = append(messages[i].Media, m)
		}
	}
	return messages, mediaRows.Err()
}

func (s *PostgresStore) RoomsForParticipant(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.last_message_id, r.created_at, r.updated_at
		 FROM chat_rooms r
		 JOIN chat_room_participants p ON p.room_id = r.id
		 WHERE p.user_id = $1
		 ORDER BY r.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	type roomRow struct {
		room          models.ChatRoom
		lastMessageID *int64
	}
	var roomRows []roomRow
	for rows.Next() {
		var rr roomRow
		if err := rows.Scan(&rr.room.ID, &rr.lastMessageID, &rr.room.CreatedAt, &rr.room.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		roomRows = append(roomRows, rr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := []models.ChatRoom{}
	for _, rr := range roomRows {
		participants, err := s.roomParticipants(ctx, rr.room.ID)
		if err != nil {
			return nil, err
		}
		rr.room.Participants = participants

		if rr.lastMessageID != nil {
			last, err := s.messageByID(ctx, *rr.lastMessageID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			rr.room.LastMessage = last
		}
		result = append(result, rr.room)
	}
	return result, nil
}

func (s *PostgresStore) roomParticipants(ctx context.Context, roomID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM chat_room_participants WHERE room_id = $1 ORDER BY position`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		participants = append(participants, userID)
	}
	return participants, rows.Err()
}

func (s *PostgresStore) messageByID(ctx context.Context, id int64) (*models.Message, error) {
	var msg models.Message
	err := s.pool.QueryRow(ctx,
		`SELECT id, room_id, sender_id, content, read, created_at FROM messages WHERE id = $1`,
		id,
	).Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.Read, &msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT url, media_type FROM message_media WHERE message_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.URL, &m.Type); err != nil {
			return nil, err
		}
		msg.Media = append(msg.Media, m)
	}
	return &msg, rows.Err()
}
