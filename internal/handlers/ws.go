package handlers

import (
	"context"
	"encoding/json"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebSocketHandler runs the live channel: register on connect, dispatch
// join_room/send_message events, clean up on disconnect.
func WebSocketHandler(chatService *services.ChatService, hub *Hub, log zerolog.Logger) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Set by AuthMiddleware before the upgrade
		userID := c.Locals("user_id").(string)

		connID := uuid.New().String()
		cameOnline := hub.Register(connID, userID, c)
		if cameOnline {
			log.Info().Str("user_id", userID).Msg("user online")
		}

		defer func() {
			if wentOffline := hub.Unregister(connID); wentOffline {
				log.Info().Str("user_id", userID).Msg("user offline")
			}
			c.Close()
		}()

		_ = c.WriteJSON(models.WSEvent{Event: models.EventConnected})

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warn().Err(err).Str("conn_id", connID).Msg("websocket read error")
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			handleEvent(c, msg, chatService, hub, userID, connID, log)
		}
	})
}

func handleEvent(c *websocket.Conn, raw []byte, chatService *services.ChatService, hub *Hub, userID, connID string, log zerolog.Logger) {
	var ev models.WSEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Msg("malformed websocket event")
		return
	}

	switch ev.Event {
	case models.EventJoinRoom:
		if ev.ChatID == "" {
			_ = c.WriteJSON(models.WSEvent{Event: models.EventError, Error: "chat_id is required"})
			return
		}
		hub.Join(ev.ChatID, connID)
		_ = c.WriteJSON(models.WSEvent{Event: models.EventJoined, ChatID: ev.ChatID})

	case models.EventSendMessage:
		// The sender is always the authenticated user, whatever the
		// payload claims.
		msg, err := chatService.SendTextMessage(context.Background(), ev.ChatID, userID, ev.Content)
		if err != nil {
			_ = c.WriteJSON(models.WSEvent{Event: models.EventError, ChatID: ev.ChatID, Error: err.Error()})
			return
		}
		// Persistence succeeded; delivery is a separate, best-effort step.
		hub.BroadcastNewMessage(msg)

	default:
		log.Debug().Str("event", ev.Event).Str("conn_id", connID).Msg("unknown websocket event")
	}
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// AuthMiddleware verifies the JWT token and stores the resolved user id.
func AuthMiddleware(c *fiber.Ctx) error {
	// Get token from query param `access_token` or Authorization header
	token := c.Query("access_token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}

	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	c.Locals("user_id", userID)

	return c.Next()
}
