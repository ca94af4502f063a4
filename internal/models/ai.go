package models

import "time"

type AIRole string

const (
	AIRoleUser      AIRole = "USER"
	AIRoleAssistant AIRole = "ASSISTANT"
	AIRoleSystem    AIRole = "SYSTEM"
)

type AIChatSession struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AIMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      AIRole    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateAISessionRequest struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

type SendAIMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type AIExchange struct {
	UserMessage *AIMessage `json:"userMessage"`
	AIMessage   *AIMessage `json:"aiMessage"`
}
