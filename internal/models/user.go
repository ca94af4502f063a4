package models

import "time"

type UserStatus string

const (
	StatusOnline  UserStatus = "ONLINE"
	StatusOffline UserStatus = "OFFLINE"
	StatusAway    UserStatus = "AWAY"
)

// Valid reports whether s is one of the known presence states.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusAway:
		return true
	}
	return false
}

type AuthProvider string

const (
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
)

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Username     *string      `json:"username"`
	DisplayName  *string      `json:"displayName"`
	AvatarURL    *string      `json:"avatarUrl"`
	Bio          *string      `json:"bio"`
	Status       UserStatus   `json:"status"`
	LastSeen     time.Time    `json:"lastSeen"`
	AuthProvider AuthProvider `json:"authProvider,omitempty"`
	PasswordHash string       `json:"-"`
	GoogleID     *string      `json:"-"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// UserSummary is the minimal profile attached to relayed messages.
type UserSummary struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	Username    *string `json:"username" validate:"omitempty,min=2,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	Username    *string `json:"username" validate:"omitempty,min=2,max=50"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url"`
}

type UpdateStatusRequest struct {
	Status UserStatus `json:"status" validate:"required,oneof=ONLINE OFFLINE AWAY"`
}

// UserFilter narrows the user directory listing.
type UserFilter struct {
	Status UserStatus
	Search string
}
