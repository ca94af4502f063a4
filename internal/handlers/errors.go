package handlers

import (
	"errors"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/services"
	"github.com/chatapp/realtime-chat/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// respondError maps err to a status and a {"error": ...} body. notFound is
// the message used for services.ErrNotFound; anything unrecognised is
// logged and reported as fallback with a 500.
func respondError(c *fiber.Ctx, err error, notFound, fallback string) error {
	var (
		fe   *fiber.Error
		verr *validation.Error
	)
	switch {
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error(), "details": verr.Fields})
	case errors.Is(err, services.ErrUserExists):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User already exists"})
	case errors.Is(err, services.ErrUsernameTaken):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username already taken"})
	case errors.Is(err, services.ErrSelfSession):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot start a chat with yourself"})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	case errors.Is(err, services.ErrTokenExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Refresh token expired"})
	case errors.Is(err, services.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid refresh token"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not authorized"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound})
	case errors.Is(err, services.ErrAIUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "AI service not configured"})
	case errors.Is(err, services.ErrOAuthUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Google OAuth not configured"})
	}

	logging.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(fallback)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// ErrorHandler renders errors that escape handlers as {"error": "..."}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logging.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// NotFound answers unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found", "path": c.OriginalURL()})
}

// bindAndValidate parses the JSON body into v and validates it.
func bindAndValidate(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request")
	}
	return validation.Struct(v)
}
