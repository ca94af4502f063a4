package models

import "time"

type ChatSession struct {
	ID          string            `json:"id"`
	Name        *string           `json:"name"`
	IsGroup     bool              `json:"isGroup"`
	Users       []ChatSessionUser `json:"users"`
	LastMessage *Message          `json:"lastMessage,omitempty"`
	UnreadCount int               `json:"unreadCount"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type ChatSessionUser struct {
	UserID     string    `json:"userId"`
	SessionID  string    `json:"sessionId"`
	User       User      `json:"user"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastReadAt time.Time `json:"lastReadAt"`
}

type CreateSessionRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
}
