package handlers

import (
	"strings"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/gofiber/fiber/v2"
)

const aiSessionNotFound = "AI chat session not found"

func ListAISessionsHandler(ai AIAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := ai.ListSessions(c.Context(), currentUserID(c))
		if err != nil {
			return respondError(c, err, aiSessionNotFound, "Failed to fetch AI chat sessions")
		}
		return c.JSON(sessions)
	}
}

func CreateAISessionHandler(ai AIAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateAISessionRequest
		if len(c.Body()) > 0 {
			if err := bindAndValidate(c, &req); err != nil {
				return respondError(c, err, "", "Failed to create AI chat session")
			}
		}
		session, err := ai.CreateSession(c.Context(), currentUserID(c), strings.TrimSpace(req.Title))
		if err != nil {
			return respondError(c, err, "", "Failed to create AI chat session")
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

func DeleteAISessionHandler(ai AIAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := ai.DeleteSession(c.Context(), c.Params("id"), currentUserID(c)); err != nil {
			return respondError(c, err, aiSessionNotFound, "Failed to delete AI chat session")
		}
		return c.JSON(fiber.Map{"message": "AI chat session deleted successfully"})
	}
}

func ListAIMessagesHandler(ai AIAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		messages, err := ai.ListMessages(c.Context(), c.Params("id"), currentUserID(c))
		if err != nil {
			return respondError(c, err, aiSessionNotFound, "Failed to fetch messages")
		}
		return c.JSON(messages)
	}
}

func SendAIMessageHandler(ai AIAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SendAIMessageRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Failed to send AI message")
		}
		exchange, err := ai.SendMessage(c.Context(), c.Params("id"), currentUserID(c), req.Content)
		if err != nil {
			return respondError(c, err, aiSessionNotFound, "Failed to send AI message")
		}
		return c.JSON(exchange)
	}
}
