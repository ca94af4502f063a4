package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, username, display_name, avatar_url, bio, status, last_seen, auth_provider, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Bio,
		&u.Status, &u.LastSeen, &u.AuthProvider, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UserService serves the user directory and profile updates.
type UserService struct {
	pool *pgxpool.Pool
}

func NewUserService(pool *pgxpool.Pool) *UserService {
	return &UserService{pool: pool}
}

// ListUsers returns users matching the filter, online users first.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(display_name ILIKE $%d OR username ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY CASE status WHEN 'ONLINE' THEN 0 WHEN 'AWAY' THEN 1 ELSE 2 END, last_seen DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if req.Username != nil {
		var taken bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
			*req.Username, userID).Scan(&taken)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	query := `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			username     = COALESCE($3, username),
			bio          = COALESCE($4, bio),
			avatar_url   = COALESCE($5, avatar_url),
			updated_at   = now()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(s.pool.QueryRow(ctx, query, userID, req.DisplayName, req.Username, req.Bio, req.AvatarURL))
	if isUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	return u, err
}

// UpdateStatus persists a presence state and a fresh last-seen time.
func (s *UserService) UpdateStatus(ctx context.Context, userID string, status models.UserStatus) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET status = $2, last_seen = $3, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		userID, status, time.Now()))
}
