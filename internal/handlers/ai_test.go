package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func aiApp(ai AIAPI) *fiber.App {
	app := newTestApp()
	g := app.Group("/api/ai", AuthMiddleware(mockTokens{}))
	g.Get("/sessions", ListAISessionsHandler(ai))
	g.Post("/sessions", CreateAISessionHandler(ai))
	g.Delete("/sessions/:id", DeleteAISessionHandler(ai))
	g.Get("/sessions/:id/messages", ListAIMessagesHandler(ai))
	g.Post("/sessions/:id/messages", SendAIMessageHandler(ai))
	return app
}

func TestCreateAISessionHandler(t *testing.T) {
	var gotTitle string
	ai := &mockAI{
		createFunc: func(_ context.Context, userID, title string) (*models.AIChatSession, error) {
			gotTitle = title
			return &models.AIChatSession{ID: "ai1", UserID: userID, Title: title}, nil
		},
	}
	app := aiApp(ai)

	status, body := doRequest(t, app, http.MethodPost, "/api/ai/sessions", map[string]string{"title": "  Trip plans "}, true)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ai1", body["id"])
	assert.Equal(t, "Trip plans", gotTitle)

	status, _ = doRequest(t, app, http.MethodPost, "/api/ai/sessions", nil, true)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "", gotTitle)
}

func TestSendAIMessageHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       map[string]string
		wantStatus int
		wantErr    string
	}{
		{"ok", nil, map[string]string{"content": "hello"}, http.StatusOK, ""},
		{"unconfigured", services.ErrAIUnavailable, map[string]string{"content": "hello"}, http.StatusServiceUnavailable, "AI service not configured"},
		{"not owner", services.ErrNotFound, map[string]string{"content": "hello"}, http.StatusNotFound, "AI chat session not found"},
		{"upstream failure", assert.AnError, map[string]string{"content": "hello"}, http.StatusInternalServerError, "Failed to send AI message"},
		{"empty", nil, map[string]string{"content": ""}, http.StatusBadRequest, "content is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &mockAI{
				sendFunc: func(_ context.Context, sessionID, _, content string) (*models.AIExchange, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.AIExchange{
						UserMessage: &models.AIMessage{SessionID: sessionID, Role: models.AIRoleUser, Content: content},
						AIMessage:   &models.AIMessage{SessionID: sessionID, Role: models.AIRoleAssistant, Content: "hi there"},
					}, nil
				},
			}
			status, body := doRequest(t, aiApp(ai), http.MethodPost, "/api/ai/sessions/ai1/messages", tt.body, true)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, body["error"])
				return
			}
			assert.Contains(t, body, "userMessage")
			assert.Contains(t, body, "aiMessage")
		})
	}
}

func TestDeleteAISessionHandler(t *testing.T) {
	ai := &mockAI{
		deleteFunc: func(_ context.Context, sessionID, _ string) error {
			if sessionID == "ai1" {
				return nil
			}
			return services.ErrNotFound
		},
	}
	app := aiApp(ai)

	status, body := doRequest(t, app, http.MethodDelete, "/api/ai/sessions/ai1", nil, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "AI chat session deleted successfully", body["message"])

	status, _ = doRequest(t, app, http.MethodDelete, "/api/ai/sessions/other", nil, true)
	assert.Equal(t, http.StatusNotFound, status)
}
