package realtime

import (
	"time"

	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/utils"

	"github.com/goccy/go-json"
)

// Inbound events.
const (
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"
	EventMessageSend  = "message:send"
	EventMessageRead  = "message:read"
	EventSessionJoin  = "session:join"
	EventSessionLeave = "session:leave"
	EventStatusUpdate = "status:update"
)

// Outbound events. message:read is also sent back to the original sender.
const (
	EventUserStatus      = "user:status"
	EventUsersOnline     = "users:online"
	EventUserTyping      = "user:typing"
	EventMessageNew      = "message:new"
	EventNotificationNew = "notification:new"
	EventError           = "error"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return utils.MarshalJSON(outFrame{Event: event, Data: data})
}

type SessionPayload struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type SendPayload struct {
	SessionID  string  `json:"sessionId" validate:"required"`
	Content    string  `json:"content" validate:"required"`
	Type       string  `json:"type"`
	ReceiverID *string `json:"receiverId"`
}

type ReadPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type StatusPayload struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=ONLINE OFFLINE AWAY"`
}

type StatusChange struct {
	UserID   string            `json:"userId"`
	Status   models.UserStatus `json:"status"`
	LastSeen time.Time         `json:"lastSeen"`
}

type Typing struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
}

type Notification struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

type ReadReceipt struct {
	MessageID string    `json:"messageId"`
	ReadAt    time.Time `json:"readAt"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
