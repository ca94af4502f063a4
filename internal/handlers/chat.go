package handlers

import (
	"strconv"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/gofiber/fiber/v2"
)

const sessionNotFound = "Chat session not found"

func ListSessionsHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := chat.ListSessions(c.Context(), currentUserID(c))
		if err != nil {
			return respondError(c, err, sessionNotFound, "Failed to fetch chat sessions")
		}
		return c.JSON(sessions)
	}
}

func GetSessionHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := chat.GetSession(c.Context(), c.Params("id"), currentUserID(c))
		if err != nil {
			return respondError(c, err, sessionNotFound, "Failed to fetch chat session")
		}
		return c.JSON(session)
	}
}

// CreateSessionHandler returns the existing 1:1 session with the participant
// or creates one (201).
func CreateSessionHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateSessionRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Failed to create chat session")
		}
		session, created, err := chat.GetOrCreateDirectSession(c.Context(), currentUserID(c), req.ParticipantID)
		if err != nil {
			return respondError(c, err, "Participant not found", "Failed to create chat session")
		}
		if created {
			return c.Status(fiber.StatusCreated).JSON(session)
		}
		return c.JSON(session)
	}
}

func DeleteSessionHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := chat.DeleteSession(c.Context(), c.Params("id"), currentUserID(c)); err != nil {
			return respondError(c, err, sessionNotFound, "Failed to delete chat session")
		}
		return c.JSON(fiber.Map{"message": "Chat session deleted successfully"})
	}
}

// ListMessagesHandler pages through history with ?limit= and ?before=
// (RFC 3339).
func ListMessagesHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var page models.MessagePage
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
			}
			page.Limit = n
		}
		if v := c.Query("before"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "before must be an RFC 3339 timestamp"})
			}
			page.Before = &t
		}

		messages, err := chat.ListMessages(c.Context(), c.Params("id"), currentUserID(c), page)
		if err != nil {
			return respondError(c, err, sessionNotFound, "Failed to fetch messages")
		}
		return c.JSON(messages)
	}
}

// SendMessageHandler stores a message and relays it to live connections.
func SendMessageHandler(chat ChatAPI, relay Relayer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SendMessageRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Failed to send message")
		}
		msg, err := chat.SendMessage(c.Context(), c.Params("id"), currentUserID(c), req.Content, models.NormalizeMessageType(req.Type))
		if err != nil {
			return respondError(c, err, sessionNotFound, "Failed to send message")
		}
		if relay != nil {
			relay.RelayMessage(msg)
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
}

// MarkReadHandler flags a message read. Only its receiver may do this.
func MarkReadHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		msg, err := chat.MarkReadByReceiver(c.Context(), c.Params("id"), currentUserID(c))
		if err != nil {
			return respondError(c, err, "Message not found", "Failed to mark message as read")
		}
		return c.JSON(msg)
	}
}

// SessionMediaHandler lists the session's messages of one type.
func SessionMediaHandler(chat ChatAPI, msgType models.MessageType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		messages, err := chat.ListMessagesByType(c.Context(), c.Params("id"), currentUserID(c), msgType)
		if err != nil {
			return respondError(c, err, sessionNotFound, "Failed to fetch session files")
		}
		return c.JSON(messages)
	}
}

func SessionLinksHandler(chat ChatAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		links, err := chat.ListLinks(c.Context(), c.Params("id"), currentUserID(c))
		if err != nil {
			return respondError(c, err, sessionNotFound, "Failed to fetch session links")
		}
		return c.JSON(links)
	}
}
