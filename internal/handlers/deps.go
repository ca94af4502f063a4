package handlers

import (
	"context"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/services"
)

// The handlers depend on these narrow views of the services so they can be
// exercised with fakes.

type TokenValidator interface {
	ValidateAccessToken(token string) (*services.Claims, error)
}

type AuthAPI interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	Profile(ctx context.Context, userID string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, info *services.GoogleUserInfo) (*models.AuthResponse, error)
}

type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*services.GoogleUserInfo, error)
}

type UserAPI interface {
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	UpdateStatus(ctx context.Context, userID string, status models.UserStatus) (*models.User, error)
}

type ChatAPI interface {
	ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error)
	GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error)
	GetOrCreateDirectSession(ctx context.Context, userID, participantID string) (*models.ChatSession, bool, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	ListMessages(ctx context.Context, sessionID, userID string, page models.MessagePage) ([]models.Message, error)
	SendMessage(ctx context.Context, sessionID, userID, content string, msgType models.MessageType) (*models.Message, error)
	MarkReadByReceiver(ctx context.Context, messageID, userID string) (*models.Message, error)
	ListMessagesByType(ctx context.Context, sessionID, userID string, msgType models.MessageType) ([]models.Message, error)
	ListLinks(ctx context.Context, sessionID, userID string) ([]models.SessionLink, error)
}

type AIAPI interface {
	ListSessions(ctx context.Context, userID string) ([]models.AIChatSession, error)
	CreateSession(ctx context.Context, userID, title string) (*models.AIChatSession, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	ListMessages(ctx context.Context, sessionID, userID string) ([]models.AIMessage, error)
	SendMessage(ctx context.Context, sessionID, userID, content string) (*models.AIExchange, error)
}

// Relayer pushes a message persisted over REST to live connections.
type Relayer interface {
	RelayMessage(msg *models.Message)
}

// PresenceBroadcaster announces a presence change that was already persisted.
type PresenceBroadcaster interface {
	AnnouncePresence(userID string, status models.UserStatus, lastSeen time.Time)
}
