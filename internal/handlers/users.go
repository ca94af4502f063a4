package handlers

import (
	"strings"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListUsersHandler lists every other user, optionally filtered by
// ?search= and ?status=.
func ListUsersHandler(users UserAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := models.UserFilter{
			Search: strings.TrimSpace(c.Query("search")),
			Status: models.UserStatus(strings.ToUpper(c.Query("status"))),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be one of: ONLINE OFFLINE AWAY"})
		}

		list, err := users.ListUsers(c.Context(), filter)
		if err != nil {
			return respondError(c, err, "", "Failed to fetch users")
		}

		self := currentUserID(c)
		out := make([]models.User, 0, len(list))
		for _, u := range list {
			if u.ID != self {
				out = append(out, u)
			}
		}
		return c.JSON(out)
	}
}

func GetUserHandler(users UserAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := users.GetUser(c.Context(), c.Params("id"))
		if err != nil {
			return respondError(c, err, "User not found", "Failed to fetch user")
		}
		return c.JSON(user)
	}
}

func UpdateProfileHandler(users UserAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateProfileRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Failed to update profile")
		}
		user, err := users.UpdateProfile(c.Context(), currentUserID(c), req)
		if err != nil {
			return respondError(c, err, "User not found", "Failed to update profile")
		}
		return c.JSON(user)
	}
}

// UpdateStatusHandler persists a presence change and, when a broadcaster is
// given, announces it to live connections.
func UpdateStatusHandler(users UserAPI, presence PresenceBroadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.UpdateStatusRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Failed to update status")
		}
		user, err := users.UpdateStatus(c.Context(), currentUserID(c), req.Status)
		if err != nil {
			return respondError(c, err, "User not found", "Failed to update status")
		}
		if presence != nil {
			presence.AnnouncePresence(user.ID, user.Status, user.LastSeen)
		}
		return c.JSON(user)
	}
}
