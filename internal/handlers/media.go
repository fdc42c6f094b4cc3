package handlers

import (
	"io"
	"net/http"

	"marketplace-chat/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// UploadMediaHandler accepts a multipart send with one or more attachments:
// - files: the media files (field may repeat)
// - chat_id: target room
// - content: optional text alongside the media
// Pure-text sends belong on the text endpoint; this one requires media.
// On success the message is pushed to the room's joined connections.
func UploadMediaHandler(chatService *services.ChatService, hub *Hub, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		chatID := c.FormValue("chat_id")
		if chatID == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "chat_id is required"})
		}
		if senderID := c.FormValue("sender_id"); senderID != "" && senderID != userID {
			return errorJSON(c, services.ErrUnauthorized)
		}
		content := c.FormValue("content")

		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "multipart form is required"})
		}

		var files []services.MediaFile
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				log.Warn().Err(err).Str("file", fh.Filename).Msg("failed to open uploaded file")
				// Leave a placeholder so the service sees (and skips) the
				// malformed entry instead of the whole batch shrinking
				// silently.
				files = append(files, services.MediaFile{Name: fh.Filename})
				continue
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				log.Warn().Err(err).Str("file", fh.Filename).Msg("failed to read uploaded file")
				files = append(files, services.MediaFile{Name: fh.Filename})
				continue
			}

			files = append(files, services.MediaFile{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}

		msg, err := chatService.SendMessageWithMedia(c.Context(), chatID, userID, content, files)
		if err != nil {
			return errorJSON(c, err)
		}

		hub.BroadcastNewMessage(msg)
		return c.Status(http.StatusCreated).JSON(msg)
	}
}
