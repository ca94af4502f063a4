package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatApp(chat ChatAPI, relay Relayer) *fiber.App {
	app := newTestApp()
	g := app.Group("/api/chat", AuthMiddleware(mockTokens{}))
	g.Get("/sessions", ListSessionsHandler(chat))
	g.Post("/sessions", CreateSessionHandler(chat))
	g.Get("/sessions/:id", GetSessionHandler(chat))
	g.Delete("/sessions/:id", DeleteSessionHandler(chat))
	g.Get("/sessions/:id/messages", ListMessagesHandler(chat))
	g.Post("/sessions/:id/messages", SendMessageHandler(chat, relay))
	g.Get("/sessions/:id/media", SessionMediaHandler(chat, models.MessageImage))
	g.Get("/sessions/:id/docs", SessionMediaHandler(chat, models.MessageFile))
	g.Get("/sessions/:id/links", SessionLinksHandler(chat))
	g.Patch("/messages/:id/read", MarkReadHandler(chat))
	return app
}

func TestCreateSessionHandler(t *testing.T) {
	chat := &mockChat{
		createFunc: func(_ context.Context, userID, participantID string) (*models.ChatSession, bool, error) {
			switch participantID {
			case "new":
				return &models.ChatSession{ID: "s-new"}, true, nil
			case "old":
				return &models.ChatSession{ID: "s-old"}, false, nil
			case userID:
				return nil, false, services.ErrSelfSession
			}
			return nil, false, services.ErrNotFound
		},
	}
	app := chatApp(chat, nil)

	tests := []struct {
		participant string
		wantStatus  int
		wantKey     string
		wantValue   string
	}{
		{"new", http.StatusCreated, "id", "s-new"},
		{"old", http.StatusOK, "id", "s-old"},
		{testUserID, http.StatusBadRequest, "error", "Cannot start a chat with yourself"},
		{"ghost", http.StatusNotFound, "error", "Participant not found"},
		{"", http.StatusBadRequest, "error", "participantId is required"},
	}
	for _, tt := range tests {
		status, body := doRequest(t, app, http.MethodPost, "/api/chat/sessions", map[string]string{"participantId": tt.participant}, true)
		assert.Equal(t, tt.wantStatus, status, "participant %q", tt.participant)
		assert.Equal(t, tt.wantValue, body[tt.wantKey], "participant %q", tt.participant)
	}
}

func TestSessionAccessErrors(t *testing.T) {
	chat := &mockChat{
		getSessionFunc: func(context.Context, string, string) (*models.ChatSession, error) {
			return nil, services.ErrNotFound
		},
		deleteFunc: func(context.Context, string, string) error {
			return services.ErrNotFound
		},
		listSessionsFunc: func(context.Context, string) ([]models.ChatSession, error) {
			return nil, assert.AnError
		},
	}
	app := chatApp(chat, nil)

	status, body := doRequest(t, app, http.MethodGet, "/api/chat/sessions/s1", nil, true)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Chat session not found", body["error"])

	status, _ = doRequest(t, app, http.MethodDelete, "/api/chat/sessions/s1", nil, true)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doRequest(t, app, http.MethodGet, "/api/chat/sessions", nil, true)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to fetch chat sessions", body["error"])
}

func TestListMessagesHandler(t *testing.T) {
	var gotPage models.MessagePage
	chat := &mockChat{
		listMessagesFunc: func(_ context.Context, sessionID, _ string, page models.MessagePage) ([]models.Message, error) {
			gotPage = page
			return []models.Message{{ID: "m1", SessionID: sessionID}}, nil
		},
	}
	app := chatApp(chat, nil)

	status, raw := doRaw(t, app, http.MethodGet, "/api/chat/sessions/s1/messages?limit=20&before=2024-05-01T12:00:00Z", nil, true)
	require.Equal(t, http.StatusOK, status)
	var list []models.Message
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 20, gotPage.Limit)
	require.NotNil(t, gotPage.Before)
	assert.True(t, gotPage.Before.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	status, _ = doRequest(t, app, http.MethodGet, "/api/chat/sessions/s1/messages?limit=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = doRequest(t, app, http.MethodGet, "/api/chat/sessions/s1/messages?before=yesterday", nil, true)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSendMessageHandlerRelays(t *testing.T) {
	var gotType models.MessageType
	chat := &mockChat{
		sendFunc: func(_ context.Context, sessionID, userID, content string, msgType models.MessageType) (*models.Message, error) {
			gotType = msgType
			return &models.Message{ID: "m1", SessionID: sessionID, SenderID: userID, Content: content, Type: msgType}, nil
		},
	}
	relay := &recordingRelay{}
	app := chatApp(chat, relay)

	status, body := doRequest(t, app, http.MethodPost, "/api/chat/sessions/s1/messages", map[string]string{"content": "hi"}, true)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "m1", body["id"])
	assert.Equal(t, models.MessageText, gotType)
	require.Len(t, relay.relayed, 1)
	assert.Equal(t, "m1", relay.relayed[0].ID)

	status, _ = doRequest(t, app, http.MethodPost, "/api/chat/sessions/s1/messages", map[string]string{"content": ""}, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, relay.relayed, 1)
}

func TestSendMessageHandlerNonMember(t *testing.T) {
	chat := &mockChat{
		sendFunc: func(context.Context, string, string, string, models.MessageType) (*models.Message, error) {
			return nil, services.ErrNotFound
		},
	}
	relay := &recordingRelay{}
	app := chatApp(chat, relay)

	status, body := doRequest(t, app, http.MethodPost, "/api/chat/sessions/s1/messages", map[string]string{"content": "hi"}, true)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Chat session not found", body["error"])
	assert.Empty(t, relay.relayed)
}

func TestMarkReadHandler(t *testing.T) {
	chat := &mockChat{
		markReadFunc: func(_ context.Context, messageID, _ string) (*models.Message, error) {
			switch messageID {
			case "mine":
				return &models.Message{ID: messageID, IsRead: true}, nil
			case "theirs":
				return nil, services.ErrForbidden
			}
			return nil, services.ErrNotFound
		},
	}
	app := chatApp(chat, nil)

	status, body := doRequest(t, app, http.MethodPatch, "/api/chat/messages/mine/read", nil, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isRead"])

	status, body = doRequest(t, app, http.MethodPatch, "/api/chat/messages/theirs/read", nil, true)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized", body["error"])

	status, body = doRequest(t, app, http.MethodPatch, "/api/chat/messages/gone/read", nil, true)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Message not found", body["error"])
}

func TestSessionMediaHandlers(t *testing.T) {
	var gotTypes []models.MessageType
	chat := &mockChat{
		byTypeFunc: func(_ context.Context, _, _ string, msgType models.MessageType) ([]models.Message, error) {
			gotTypes = append(gotTypes, msgType)
			return []models.Message{}, nil
		},
		linksFunc: func(context.Context, string, string) ([]models.SessionLink, error) {
			return []models.SessionLink{{URL: "https://go.dev", MessageID: "m1"}}, nil
		},
	}
	app := chatApp(chat, nil)

	status, _ := doRaw(t, app, http.MethodGet, "/api/chat/sessions/s1/media", nil, true)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doRaw(t, app, http.MethodGet, "/api/chat/sessions/s1/docs", nil, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []models.MessageType{models.MessageImage, models.MessageFile}, gotTypes)

	status, raw := doRaw(t, app, http.MethodGet, "/api/chat/sessions/s1/links", nil, true)
	require.Equal(t, http.StatusOK, status)
	var links []models.SessionLink
	require.NoError(t, json.Unmarshal(raw, &links))
	require.Len(t, links, 1)
	assert.Equal(t, "https://go.dev", links[0].URL)
}
