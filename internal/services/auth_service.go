package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthService handles registration, login and refresh token rotation.
type AuthService struct {
	pool   *pgxpool.Pool
	tokens *TokenManager
}

func NewAuthService(pool *pgxpool.Pool, tokens *TokenManager) *AuthService {
	return &AuthService{pool: pool, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, req.Email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}
	if req.Username != nil {
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, *req.Username).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrUsernameTaken
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, email, username, password_hash, display_name, auth_provider)
		VALUES ($1, $2, $3, $4, $5, 'LOCAL')
		RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, query, uuid.New().String(), req.Email, req.Username, hash, req.DisplayName))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	logging.Info().Str("email", user.Email).Msg("user registered")
	return s.issueTokens(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var hash *string
	user, err := scanUserWithHash(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, req.Email), &hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if hash == nil || !CheckPassword(*hash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if _, err := s.pool.Exec(ctx, `UPDATE users SET status = 'ONLINE', last_seen = $2 WHERE id = $1`, user.ID, now); err != nil {
		return nil, err
	}
	user.Status = models.StatusOnline
	user.LastSeen = now

	logging.Info().Str("email", user.Email).Msg("user logged in")
	return s.issueTokens(ctx, user)
}

func scanUserWithHash(row rowScanner, hash **string) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Bio,
		&u.Status, &u.LastSeen, &u.AuthProvider, &u.CreatedAt, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// issueTokens signs an access/refresh pair and stores the refresh token.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, token, user_id, expires_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), refresh, user.ID, time.Now().Add(s.tokens.RefreshTTL()))
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &models.AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT expires_at FROM refresh_tokens WHERE token = $1`, refreshToken).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	if expiresAt.Before(time.Now()) {
		if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, refreshToken); err != nil {
			logging.Warn().Err(err).Msg("failed to delete expired refresh token")
		}
		return "", ErrTokenExpired
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}
	return s.tokens.GenerateAccessToken(claims.UserID, claims.Email)
}

// Logout revokes the refresh token, if given, and marks the user offline.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken != "" {
		if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1 AND user_id = $2`, refreshToken, userID); err != nil {
			return err
		}
	}
	_, err := s.pool.Exec(ctx, `UPDATE users SET status = 'OFFLINE', last_seen = $2 WHERE id = $1`, userID, time.Now())
	return err
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// LoginWithGoogle signs in the account linked to a Google identity, linking
// by email or creating the account on first use.
func (s *AuthService) LoginWithGoogle(ctx context.Context, info *GoogleUserInfo) (*models.AuthResponse, error) {
	if info.Email == "" || info.ID == "" {
		return nil, ErrInvalidCredentials
	}

	query := `
		INSERT INTO users (id, email, display_name, avatar_url, auth_provider, google_id, status, last_seen)
		VALUES ($1, $2, $3, $4, 'GOOGLE', $5, 'ONLINE', now())
		ON CONFLICT (email) DO UPDATE SET
			google_id  = EXCLUDED.google_id,
			avatar_url = COALESCE(users.avatar_url, EXCLUDED.avatar_url),
			status     = 'ONLINE',
			last_seen  = now(),
			updated_at = now()
		RETURNING ` + userColumns
	var picture *string
	if info.Picture != "" {
		picture = &info.Picture
	}
	user, err := scanUser(s.pool.QueryRow(ctx, query, uuid.New().String(), info.Email, info.Name, picture, info.ID))
	if err != nil {
		return nil, err
	}

	logging.Info().Str("email", user.Email).Msg("user logged in with google")
	return s.issueTokens(ctx, user)
}
