package services

import "errors"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not authorized")
	ErrAIUnavailable      = errors.New("AI service not configured")
	ErrOAuthUnavailable   = errors.New("google oauth not configured")
	ErrSelfSession        = errors.New("cannot start a chat with yourself")
)
