package handlers

import (
	"errors"
	"net/http"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/services"

	"github.com/gofiber/fiber/v2"
)

// statusFromError maps the service error taxonomy to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidMedia):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusFromError(err)).JSON(fiber.Map{"error": err.Error()})
}

// CreateRoomHandler provisions a conversation channel. Invoked by the
// campaign-acceptance collaborator when a brand and an influencer pair up.
func CreateRoomHandler(chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}

		room, err := chatService.CreateChatRoom(c.Context(), req.Participants)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.Status(http.StatusCreated).JSON(room)
	}
}

// SendMessageHandler is the request/response entry point for text-only
// sends. On success the new message is pushed to everyone joined to the
// room; push failures never fail the request.
func SendMessageHandler(chatService *services.ChatService, hub *Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.SendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}

		if req.SenderID != "" && req.SenderID != userID {
			return errorJSON(c, services.ErrUnauthorized)
		}

		msg, err := chatService.SendTextMessage(c.Context(), req.ChatID, userID, req.Content)
		if err != nil {
			return errorJSON(c, err)
		}

		hub.BroadcastNewMessage(msg)
		return c.Status(http.StatusCreated).JSON(msg)
	}
}

// GetMessagesHandler returns a room's history in creation order. A room
// with no messages is a normal empty result, flagged in the envelope.
func GetMessagesHandler(chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chatID := c.Params("room_id")

		messages, err := chatService.GetMessages(c.Context(), chatID)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{
			"messages": messages,
			"count":    len(messages),
			"empty":    len(messages) == 0,
		})
	}
}

// GetRoomsHandler returns the authenticated user's inbox: every room they
// participate in, with participants and last message expanded.
func GetRoomsHandler(chatService *services.ChatService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		rooms, err := chatService.GetRoomsForUser(c.Context(), userID)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{
			"rooms": rooms,
			"count": len(rooms),
		})
	}
}
