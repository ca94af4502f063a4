package services

import (
	"context"
	"fmt"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	aiHistoryLimit  = 20
	defaultAITitle  = "New AI Chat"
	aiMessageColumn = `id, session_id, role, content, created_at`
)

// AIService stores assistant conversations and relays prompts to an Assistant.
type AIService struct {
	pool      *pgxpool.Pool
	assistant Assistant
}

// NewAIService accepts a nil assistant; sending then fails with ErrAIUnavailable.
func NewAIService(pool *pgxpool.Pool, assistant Assistant) *AIService {
	return &AIService{pool: pool, assistant: assistant}
}

func scanAIMessage(row rowScanner) (*models.AIMessage, error) {
	var m models.AIMessage
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *AIService) ListSessions(ctx context.Context, userID string) ([]models.AIChatSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.user_id, s.title, s.created_at, s.updated_at,
			(SELECT count(*) FROM ai_messages m WHERE m.session_id = s.id)
		FROM ai_chat_sessions s
		WHERE s.user_id = $1
		ORDER BY s.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.AIChatSession{}
	for rows.Next() {
		var cs models.AIChatSession
		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.CreatedAt, &cs.UpdatedAt, &cs.MessageCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

func (s *AIService) CreateSession(ctx context.Context, userID, title string) (*models.AIChatSession, error) {
	if title == "" {
		title = defaultAITitle
	}
	var cs models.AIChatSession
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ai_chat_sessions (id, user_id, title) VALUES ($1, $2, $3)
		RETURNING id, user_id, title, created_at, updated_at`,
		uuid.New().String(), userID, title).
		Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *AIService) requireOwner(ctx context.Context, sessionID, userID string) error {
	var owned bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ai_chat_sessions WHERE id = $1 AND user_id = $2)`,
		sessionID, userID).Scan(&owned)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotFound
	}
	return nil
}

func (s *AIService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ai_chat_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AIService) ListMessages(ctx context.Context, sessionID, userID string) ([]models.AIMessage, error) {
	if err := s.requireOwner(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+aiMessageColumn+` FROM ai_messages WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.AIMessage{}
	for rows.Next() {
		m, err := scanAIMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// recentHistory returns the last aiHistoryLimit turns in chronological order.
func (s *AIService) recentHistory(ctx context.Context, sessionID string) ([]models.AIMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+aiMessageColumn+` FROM (
			SELECT `+aiMessageColumn+` FROM ai_messages
			WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`, sessionID, aiHistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.AIMessage
	for rows.Next() {
		m, err := scanAIMessage(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *m)
	}
	return history, rows.Err()
}

func (s *AIService) insertMessage(ctx context.Context, sessionID string, role models.AIRole, content string) (*models.AIMessage, error) {
	return scanAIMessage(s.pool.QueryRow(ctx,
		`INSERT INTO ai_messages (id, session_id, role, content) VALUES ($1, $2, $3, $4) RETURNING `+aiMessageColumn,
		uuid.New().String(), sessionID, role, content))
}

// SendMessage stores the prompt, asks the assistant and stores its reply.
func (s *AIService) SendMessage(ctx context.Context, sessionID, userID, content string) (*models.AIExchange, error) {
	if s.assistant == nil {
		return nil, ErrAIUnavailable
	}
	if err := s.requireOwner(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	history, err := s.recentHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.insertMessage(ctx, sessionID, models.AIRoleUser, content)
	if err != nil {
		return nil, err
	}

	reply, err := s.assistant.Reply(ctx, history, content)
	if err != nil {
		return nil, fmt.Errorf("assistant reply: %w", err)
	}

	aiMsg, err := s.insertMessage(ctx, sessionID, models.AIRoleAssistant, reply)
	if err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, `UPDATE ai_chat_sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		return nil, err
	}

	return &models.AIExchange{UserMessage: userMsg, AIMessage: aiMsg}, nil
}
