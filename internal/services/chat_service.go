package services

import (
	"context"
	"errors"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	memberUserColumns = `u.id, u.email, u.username, u.display_name, u.avatar_url, u.bio, u.status, u.last_seen, u.auth_provider, u.created_at`
	messageColumns    = `m.id, m.content, m.type, m.sender_id, m.receiver_id, m.session_id, m.is_read, m.created_at, m.updated_at, u.id, u.display_name, u.avatar_url`

	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m      models.Message
		sender models.UserSummary
	)
	if err := row.Scan(&m.ID, &m.Content, &m.Type, &m.SenderID, &m.ReceiverID, &m.SessionID, &m.IsRead,
		&m.CreatedAt, &m.UpdatedAt, &sender.ID, &sender.DisplayName, &sender.AvatarURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Sender = &sender
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()
	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// ChatService owns chat sessions, membership and messages. It is also the
// durable store behind the realtime layer.
type ChatService struct {
	pool *pgxpool.Pool
}

func NewChatService(pool *pgxpool.Pool) *ChatService {
	return &ChatService{pool: pool}
}

// IsSessionMember is the authoritative membership check.
func (s *ChatService) IsSessionMember(ctx context.Context, sessionID, userID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_session_users WHERE session_id = $1 AND user_id = $2)`,
		sessionID, userID).Scan(&ok)
	return ok, err
}

func (s *ChatService) requireMember(ctx context.Context, sessionID, userID string) error {
	ok, err := s.IsSessionMember(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SessionIDsForUser lists every session the user belongs to.
func (s *ChatService) SessionIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT session_id FROM chat_session_users WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// CreateMessage persists a message and returns it with the sender's summary.
func (s *ChatService) CreateMessage(ctx context.Context, in models.NewMessage) (*models.Message, error) {
	query := `
		WITH m AS (
			INSERT INTO messages (id, content, type, sender_id, receiver_id, session_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)
		SELECT ` + messageColumns + ` FROM m JOIN users u ON u.id = m.sender_id`
	return scanMessage(s.pool.QueryRow(ctx, query,
		uuid.New().String(), in.Content, in.Type, in.SenderID, in.ReceiverID, in.SessionID))
}

// TouchSession bumps updated_at so the session sorts first in listings.
func (s *ChatService) TouchSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`, sessionID, time.Now())
	return err
}

func (s *ChatService) UpdatePresence(ctx context.Context, userID string, status models.UserStatus, lastSeen time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET status = $2, last_seen = $3 WHERE id = $1`, userID, status, lastSeen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMessageRead flags a message as read on behalf of a member of its session.
func (s *ChatService) MarkMessageRead(ctx context.Context, messageID, readerID string) (*models.Message, error) {
	query := `
		WITH m AS (
			UPDATE messages SET is_read = TRUE, updated_at = now()
			WHERE id = $1 AND EXISTS (
				SELECT 1 FROM chat_session_users su
				WHERE su.session_id = messages.session_id AND su.user_id = $2
			)
			RETURNING *
		)
		SELECT ` + messageColumns + ` FROM m JOIN users u ON u.id = m.sender_id`
	return scanMessage(s.pool.QueryRow(ctx, query, messageID, readerID))
}

// MarkReadByReceiver flags a message as read. Only its receiver may do so.
func (s *ChatService) MarkReadByReceiver(ctx context.Context, messageID, userID string) (*models.Message, error) {
	var receiverID *string
	err := s.pool.QueryRow(ctx, `SELECT receiver_id FROM messages WHERE id = $1`, messageID).Scan(&receiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if receiverID == nil || *receiverID != userID {
		return nil, ErrForbidden
	}
	return s.MarkMessageRead(ctx, messageID, userID)
}

// ListSessions returns the user's sessions, most recently active first, with
// members, the last message and the user's unread count.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, s.is_group, s.created_at, s.updated_at,
			(SELECT count(*) FROM messages m
			 WHERE m.session_id = s.id AND m.receiver_id = $1 AND NOT m.is_read)
		FROM chat_sessions s
		JOIN chat_session_users su ON su.session_id = s.id AND su.user_id = $1
		ORDER BY s.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.ChatSession{}
	index := map[string]int{}
	var ids []string
	for rows.Next() {
		var cs models.ChatSession
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.IsGroup, &cs.CreatedAt, &cs.UpdatedAt, &cs.UnreadCount); err != nil {
			return nil, err
		}
		index[cs.ID] = len(sessions)
		ids = append(ids, cs.ID)
		sessions = append(sessions, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return sessions, nil
	}

	members, err := s.sessionMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		i := index[m.SessionID]
		sessions[i].Users = append(sessions[i].Users, m)
	}

	lastRows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (m.session_id) `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.session_id = ANY($1)
		ORDER BY m.session_id, m.created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	last, err := collectMessages(lastRows)
	if err != nil {
		return nil, err
	}
	for i := range last {
		sessions[index[last[i].SessionID]].LastMessage = &last[i]
	}
	return sessions, nil
}

func (s *ChatService) sessionMembers(ctx context.Context, sessionIDs []string) ([]models.ChatSessionUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT su.session_id, su.joined_at, su.last_read_at, `+memberUserColumns+`
		FROM chat_session_users su JOIN users u ON u.id = su.user_id
		WHERE su.session_id = ANY($1)
		ORDER BY su.joined_at`, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.ChatSessionUser
	for rows.Next() {
		var m models.ChatSessionUser
		u := &m.User
		if err := rows.Scan(&m.SessionID, &m.JoinedAt, &m.LastReadAt,
			&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Bio,
			&u.Status, &u.LastSeen, &u.AuthProvider, &u.CreatedAt); err != nil {
			return nil, err
		}
		m.UserID = u.ID
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetSession returns a session the user belongs to.
func (s *ChatService) GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	if err := s.requireMember(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	var cs models.ChatSession
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, is_group, created_at, updated_at FROM chat_sessions WHERE id = $1`, sessionID).
		Scan(&cs.ID, &cs.Name, &cs.IsGroup, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	cs.Users, err = s.sessionMembers(ctx, []string{sessionID})
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// GetOrCreateDirectSession returns the 1:1 session between the two users,
// creating it when absent. created reports whether a new session was made.
func (s *ChatService) GetOrCreateDirectSession(ctx context.Context, userID, participantID string) (*models.ChatSession, bool, error) {
	if userID == participantID {
		return nil, false, ErrSelfSession
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, participantID).Scan(&exists); err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, ErrNotFound
	}

	query := `
		SELECT s.id
		FROM chat_sessions s
		JOIN chat_session_users p1 ON s.id = p1.session_id
		JOIN chat_session_users p2 ON s.id = p2.session_id
		WHERE NOT s.is_group
		AND p1.user_id = $1
		AND p2.user_id = $2
		LIMIT 1
	`
	var sessionID string
	err := s.pool.QueryRow(ctx, query, userID, participantID).Scan(&sessionID)
	if err == nil {
		cs, err := s.GetSession(ctx, sessionID, userID)
		return cs, false, err
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	sessionID = uuid.New().String()
	if _, err := tx.Exec(ctx, `INSERT INTO chat_sessions (id, is_group) VALUES ($1, FALSE)`, sessionID); err != nil {
		return nil, false, err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO chat_session_users (id, session_id, user_id) VALUES ($1, $3, $4), ($2, $3, $5)`,
		uuid.New().String(), uuid.New().String(), sessionID, userID, participantID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	cs, err := s.GetSession(ctx, sessionID, userID)
	return cs, true, err
}

// DeleteSession removes a session and its history. Members only.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	if err := s.requireMember(ctx, sessionID, userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, sessionID)
	return err
}

// ListMessages returns a page of history in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, sessionID, userID string, page models.MessagePage) ([]models.Message, error) {
	if err := s.requireMember(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = defaultMessageLimit
	}
	if page.Limit > maxMessageLimit {
		page.Limit = maxMessageLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.session_id = $1 AND ($2::timestamptz IS NULL OR m.created_at < $2)
		ORDER BY m.created_at DESC
		LIMIT $3`, sessionID, page.Before, page.Limit)
	if err != nil {
		return nil, err
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// OtherMemberID returns a member of the session other than userID, if any.
func (s *ChatService) OtherMemberID(ctx context.Context, sessionID, userID string) (*string, error) {
	var other string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM chat_session_users WHERE session_id = $1 AND user_id <> $2 ORDER BY joined_at LIMIT 1`,
		sessionID, userID).Scan(&other)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &other, nil
}

// SendMessage stores a message posted over REST. The receiver is the other
// member of the session.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, userID string, content string, msgType models.MessageType) (*models.Message, error) {
	if err := s.requireMember(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	receiverID, err := s.OtherMemberID(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	msg, err := s.CreateMessage(ctx, models.NewMessage{
		SessionID:  sessionID,
		SenderID:   userID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       msgType,
	})
	if err != nil {
		return nil, err
	}
	if err := s.TouchSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessagesByType returns every message of one type, newest first.
func (s *ChatService) ListMessagesByType(ctx context.Context, sessionID, userID string, msgType models.MessageType) ([]models.Message, error) {
	if err := s.requireMember(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.session_id = $1 AND m.type = $2
		ORDER BY m.created_at DESC`, sessionID, msgType)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// ListLinks returns URLs shared as text in the session, newest first.
func (s *ChatService) ListLinks(ctx context.Context, sessionID, userID string) ([]models.SessionLink, error) {
	if err := s.requireMember(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.session_id = $1 AND m.type = 'TEXT' AND m.content ~* 'https?://'
		ORDER BY m.created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	return LinksFromMessages(messages), nil
}
