package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

var errNotImplemented = errors.New("not implemented")

const (
	testToken  = "good-token"
	testUserID = "u1"
)

type mockTokens struct{}

func (mockTokens) ValidateAccessToken(token string) (*services.Claims, error) {
	if token == testToken {
		return &services.Claims{UserID: testUserID, Email: "u1@example.com"}, nil
	}
	return nil, services.ErrInvalidToken
}

type mockAuth struct {
	registerFunc func(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	loginFunc    func(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	refreshFunc  func(ctx context.Context, token string) (string, error)
	logoutFunc   func(ctx context.Context, userID, token string) error
	profileFunc  func(ctx context.Context, userID string) (*models.User, error)
	googleFunc   func(ctx context.Context, info *services.GoogleUserInfo) (*models.AuthResponse, error)
}

func (m *mockAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuth) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuth) Refresh(ctx context.Context, token string) (string, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, token)
	}
	return "", errNotImplemented
}

func (m *mockAuth) Logout(ctx context.Context, userID, token string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, userID, token)
	}
	return errNotImplemented
}

func (m *mockAuth) Profile(ctx context.Context, userID string) (*models.User, error) {
	if m.profileFunc != nil {
		return m.profileFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockAuth) LoginWithGoogle(ctx context.Context, info *services.GoogleUserInfo) (*models.AuthResponse, error) {
	if m.googleFunc != nil {
		return m.googleFunc(ctx, info)
	}
	return nil, errNotImplemented
}

type mockOAuth struct {
	exchangeFunc func(ctx context.Context, code string) (*services.GoogleUserInfo, error)
}

func (m *mockOAuth) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (m *mockOAuth) Exchange(ctx context.Context, code string) (*services.GoogleUserInfo, error) {
	if m.exchangeFunc != nil {
		return m.exchangeFunc(ctx, code)
	}
	return nil, errNotImplemented
}

type mockUsers struct {
	listFunc    func(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	getFunc     func(ctx context.Context, id string) (*models.User, error)
	profileFunc func(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	statusFunc  func(ctx context.Context, userID string, status models.UserStatus) (*models.User, error)
}

func (m *mockUsers) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, errNotImplemented
}

func (m *mockUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *mockUsers) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if m.profileFunc != nil {
		return m.profileFunc(ctx, userID, req)
	}
	return nil, errNotImplemented
}

func (m *mockUsers) UpdateStatus(ctx context.Context, userID string, status models.UserStatus) (*models.User, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, userID, status)
	}
	return nil, errNotImplemented
}

type mockChat struct {
	listSessionsFunc func(ctx context.Context, userID string) ([]models.ChatSession, error)
	getSessionFunc   func(ctx context.Context, sessionID, userID string) (*models.ChatSession, error)
	createFunc       func(ctx context.Context, userID, participantID string) (*models.ChatSession, bool, error)
	deleteFunc       func(ctx context.Context, sessionID, userID string) error
	listMessagesFunc func(ctx context.Context, sessionID, userID string, page models.MessagePage) ([]models.Message, error)
	sendFunc         func(ctx context.Context, sessionID, userID, content string, msgType models.MessageType) (*models.Message, error)
	markReadFunc     func(ctx context.Context, messageID, userID string) (*models.Message, error)
	byTypeFunc       func(ctx context.Context, sessionID, userID string, msgType models.MessageType) ([]models.Message, error)
	linksFunc        func(ctx context.Context, sessionID, userID string) ([]models.SessionLink, error)
}

func (m *mockChat) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	if m.listSessionsFunc != nil {
		return m.listSessionsFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockChat) GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID, userID)
	}
	return nil, errNotImplemented
}

func (m *mockChat) GetOrCreateDirectSession(ctx context.Context, userID, participantID string) (*models.ChatSession, bool, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, participantID)
	}
	return nil, false, errNotImplemented
}

func (m *mockChat) DeleteSession(ctx context.Context, sessionID, userID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, sessionID, userID)
	}
	return errNotImplemented
}

func (m *mockChat) ListMessages(ctx context.Context, sessionID, userID string, page models.MessagePage) ([]models.Message, error) {
	if m.listMessagesFunc != nil {
		return m.listMessagesFunc(ctx, sessionID, userID, page)
	}
	return nil, errNotImplemented
}

func (m *mockChat) SendMessage(ctx context.Context, sessionID, userID, content string, msgType models.MessageType) (*models.Message, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, sessionID, userID, content, msgType)
	}
	return nil, errNotImplemented
}

func (m *mockChat) MarkReadByReceiver(ctx context.Context, messageID, userID string) (*models.Message, error) {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, messageID, userID)
	}
	return nil, errNotImplemented
}

func (m *mockChat) ListMessagesByType(ctx context.Context, sessionID, userID string, msgType models.MessageType) ([]models.Message, error) {
	if m.byTypeFunc != nil {
		return m.byTypeFunc(ctx, sessionID, userID, msgType)
	}
	return nil, errNotImplemented
}

func (m *mockChat) ListLinks(ctx context.Context, sessionID, userID string) ([]models.SessionLink, error) {
	if m.linksFunc != nil {
		return m.linksFunc(ctx, sessionID, userID)
	}
	return nil, errNotImplemented
}

type mockAI struct {
	listFunc         func(ctx context.Context, userID string) ([]models.AIChatSession, error)
	createFunc       func(ctx context.Context, userID, title string) (*models.AIChatSession, error)
	deleteFunc       func(ctx context.Context, sessionID, userID string) error
	listMessagesFunc func(ctx context.Context, sessionID, userID string) ([]models.AIMessage, error)
	sendFunc         func(ctx context.Context, sessionID, userID, content string) (*models.AIExchange, error)
}

func (m *mockAI) ListSessions(ctx context.Context, userID string) ([]models.AIChatSession, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockAI) CreateSession(ctx context.Context, userID, title string) (*models.AIChatSession, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, title)
	}
	return nil, errNotImplemented
}

func (m *mockAI) DeleteSession(ctx context.Context, sessionID, userID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, sessionID, userID)
	}
	return errNotImplemented
}

func (m *mockAI) ListMessages(ctx context.Context, sessionID, userID string) ([]models.AIMessage, error) {
	if m.listMessagesFunc != nil {
		return m.listMessagesFunc(ctx, sessionID, userID)
	}
	return nil, errNotImplemented
}

func (m *mockAI) SendMessage(ctx context.Context, sessionID, userID, content string) (*models.AIExchange, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, sessionID, userID, content)
	}
	return nil, errNotImplemented
}

type recordingRelay struct {
	relayed []*models.Message
}

func (r *recordingRelay) RelayMessage(msg *models.Message) {
	r.relayed = append(r.relayed, msg)
}

type recordingPresence struct {
	announced []models.UserStatus
}

func (r *recordingPresence) AnnouncePresence(_ string, status models.UserStatus, _ time.Time) {
	r.announced = append(r.announced, status)
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

// doRequest sends body as JSON (when non-nil) with the test bearer token
// when authed is set, and returns the status and decoded body.
func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, authed bool) (int, map[string]interface{}) {
	t.Helper()
	status, raw := doRaw(t, app, method, path, body, authed)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return status, out
}

func doRaw(t *testing.T, app *fiber.App, method, path string, body interface{}, authed bool) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}
