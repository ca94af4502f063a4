package handlers

import (
	"net/url"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

func RegisterHandler(auth AuthAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Registration failed")
		}
		resp, err := auth.Register(c.Context(), req)
		if err != nil {
			return respondError(c, err, "", "Registration failed")
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

func LoginHandler(auth AuthAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Login failed")
		}
		resp, err := auth.Login(c.Context(), req)
		if err != nil {
			return respondError(c, err, "", "Login failed")
		}
		return c.JSON(resp)
	}
}

func RefreshHandler(auth AuthAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RefreshRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err, "", "Invalid refresh token")
		}
		access, err := auth.Refresh(c.Context(), req.RefreshToken)
		if err != nil {
			return respondError(c, err, "", "Invalid refresh token")
		}
		return c.JSON(fiber.Map{"accessToken": access})
	}
}

func LogoutHandler(auth AuthAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LogoutRequest
		// the body is optional
		_ = c.BodyParser(&req)

		if err := auth.Logout(c.Context(), currentUserID(c), req.RefreshToken); err != nil {
			return respondError(c, err, "", "Logout failed")
		}
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}

func MeHandler(auth AuthAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.Profile(c.Context(), currentUserID(c))
		if err != nil {
			return respondError(c, err, "User not found", "Failed to get profile")
		}
		return c.JSON(user)
	}
}

// GoogleAuthHandler returns the Google consent URL. provider is nil when
// OAuth is not configured.
func GoogleAuthHandler(provider OAuthProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if provider == nil {
			return respondError(c, services.ErrOAuthUnavailable, "", "")
		}
		state := uuid.New().String()
		c.Cookie(&fiber.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     "/api/auth/google",
			MaxAge:   int((10 * time.Minute).Seconds()),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.JSON(fiber.Map{"url": provider.AuthURL(state)})
	}
}

// GoogleCallbackHandler finishes the OAuth flow and sends the browser back
// to the frontend with a token pair, or to its login page with an error.
func GoogleCallbackHandler(auth AuthAPI, provider OAuthProvider, frontendURL string) fiber.Handler {
	fail := func(c *fiber.Ctx, reason string) error {
		return c.Redirect(frontendURL + "/login?error=" + url.QueryEscape(reason))
	}

	return func(c *fiber.Ctx) error {
		if provider == nil {
			return fail(c, "oauth_unavailable")
		}
		code := c.Query("code")
		if code == "" {
			return fail(c, "missing_code")
		}
		if state := c.Cookies(oauthStateCookie); state != "" && state != c.Query("state") {
			return fail(c, "invalid_state")
		}
		c.ClearCookie(oauthStateCookie)

		info, err := provider.Exchange(c.Context(), code)
		if err != nil {
			logging.Warn().Err(err).Msg("google code exchange failed")
			return fail(c, "oauth_failed")
		}
		if info.Email == "" {
			return fail(c, "no_email")
		}

		resp, err := auth.LoginWithGoogle(c.Context(), info)
		if err != nil {
			logging.Error().Err(err).Str("email", info.Email).Msg("google login failed")
			return fail(c, "oauth_failed")
		}

		q := url.Values{}
		q.Set("accessToken", resp.AccessToken)
		q.Set("refreshToken", resp.RefreshToken)
		return c.Redirect(frontendURL + "/auth/callback?" + q.Encode())
	}
}
