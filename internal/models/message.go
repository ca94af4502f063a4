package models

import "time"

type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageFile   MessageType = "FILE"
	MessageSystem MessageType = "SYSTEM"
)

// NormalizeMessageType maps anything outside the four known types to TEXT.
func NormalizeMessageType(t string) MessageType {
	switch mt := MessageType(t); mt {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return mt
	}
	return MessageText
}

type Message struct {
	ID         string       `json:"id"`
	Content    string       `json:"content"`
	Type       MessageType  `json:"type"`
	SenderID   string       `json:"senderId"`
	ReceiverID *string      `json:"receiverId"`
	SessionID  string       `json:"sessionId"`
	IsRead     bool         `json:"isRead"`
	Sender     *UserSummary `json:"sender,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// NewMessage carries the fields needed to persist a message.
type NewMessage struct {
	SessionID  string
	SenderID   string
	ReceiverID *string
	Content    string
	Type       MessageType
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"omitempty,oneof=TEXT IMAGE FILE SYSTEM"`
}

// MessagePage selects a window of session history, newest first before Before.
type MessagePage struct {
	Limit  int
	Before *time.Time
}

// SessionLink is a URL found in a text message.
type SessionLink struct {
	URL       string    `json:"url"`
	MessageID string    `json:"messageId"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}
