package app

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatapp/realtime-chat/internal/config"
	"github.com/chatapp/realtime-chat/internal/realtime"
	"github.com/chatapp/realtime-chat/internal/services"
)

func testServer(t *testing.T, maxRequests int) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:       "0",
			Env:        "test",
			CORSOrigin: "http://localhost:3000",
			UploadDir:  t.TempDir(),
		},
		RateLimit: config.RateLimitConfig{Window: time.Minute, MaxRequests: maxRequests},
	}
	tokens := services.NewTokenManager("secret", "refresh-secret", time.Minute, time.Hour)
	return NewServer(cfg, Deps{
		Tokens: tokens,
		Hub:    realtime.NewHub(nil),
	})
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestServerHealth(t *testing.T) {
	app := testServer(t, 100)

	status, body := get(t, app, "/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["environment"])
}

func TestServerMetrics(t *testing.T) {
	app := testServer(t, 100)
	get(t, app, "/health")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "chat_http_requests_total")
}

func TestServerProtectedRoutesRequireToken(t *testing.T) {
	app := testServer(t, 100)

	for _, path := range []string{"/api/chat/sessions", "/api/users", "/api/ai/sessions", "/api/auth/me"} {
		status, body := get(t, app, path)
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		assert.Equal(t, "Missing token", body["error"], path)
	}
}

func TestServerWebSocketRequiresUpgrade(t *testing.T) {
	app := testServer(t, 100)

	status, _ := get(t, app, "/ws?token=whatever")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

func TestServerGoogleOAuthUnconfigured(t *testing.T) {
	app := testServer(t, 100)

	status, _ := get(t, app, "/api/auth/google")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestServerNotFound(t *testing.T) {
	app := testServer(t, 100)

	status, body := get(t, app, "/nowhere")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "/nowhere", body["path"])
}

func TestServerRateLimit(t *testing.T) {
	app := testServer(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := get(t, app, "/api/chat/sessions")
		assert.Equal(t, fiber.StatusUnauthorized, status)
	}
	status, body := get(t, app, "/api/chat/sessions")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, body["error"], "Too many requests")

	status, _ = get(t, app, "/health")
	assert.Equal(t, fiber.StatusOK, status)
}
