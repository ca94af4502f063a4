package realtime

import (
	"context"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/metrics"
	"github.com/chatapp/realtime-chat/internal/models"
)

const notificationTypeMessage = "message"

// handleSend persists a message from c and fans it out. Membership is
// checked against the store, not the room subscriptions.
func (h *Hub) handleSend(ctx context.Context, c *Client, data []byte) string {
	var p SendPayload
	if !h.decode(c, data, &p) {
		return outcomeRejected
	}
	log := logging.With().
		Str("user_id", c.UserID()).
		Str("session_id", p.SessionID).
		Logger()

	member, err := h.store.IsSessionMember(ctx, p.SessionID, c.UserID())
	if err != nil {
		log.Error().Err(err).Msg("membership check failed")
		h.sendError(c, "Failed to send message")
		return outcomeFailed
	}
	if !member {
		h.sendError(c, "Session not found")
		return outcomeRejected
	}

	msg, err := h.store.CreateMessage(ctx, models.NewMessage{
		SessionID:  p.SessionID,
		SenderID:   c.UserID(),
		ReceiverID: p.ReceiverID,
		Content:    p.Content,
		Type:       models.NormalizeMessageType(p.Type),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to persist message")
		h.sendError(c, "Failed to send message")
		return outcomeFailed
	}

	if err := h.store.TouchSession(ctx, p.SessionID); err != nil {
		log.Warn().Err(err).Msg("failed to touch session")
	}

	h.RelayMessage(msg)
	return outcomeOK
}

// RelayMessage fans an already persisted message out to its session room
// and notifies the receiver directly when online.
func (h *Hub) RelayMessage(msg *models.Message) {
	h.BroadcastRoom(msg.SessionID, EventMessageNew, msg, nil)
	metrics.MessagesRelayed.Inc()

	if msg.ReceiverID != nil {
		h.SendTo(*msg.ReceiverID, EventNotificationNew, Notification{
			Type:    notificationTypeMessage,
			Message: msg,
		})
	}
}

// handleRead marks a message read for c's user and tells its sender.
func (h *Hub) handleRead(ctx context.Context, c *Client, data []byte) string {
	var p ReadPayload
	if !h.decode(c, data, &p) {
		return outcomeRejected
	}

	msg, err := h.store.MarkMessageRead(ctx, p.MessageID, c.UserID())
	if err != nil {
		logging.Warn().Err(err).
			Str("user_id", c.UserID()).
			Str("message_id", p.MessageID).
			Msg("failed to mark message read")
		h.sendError(c, "Failed to mark message as read")
		return outcomeFailed
	}

	h.SendTo(msg.SenderID, EventMessageRead, ReadReceipt{MessageID: msg.ID, ReadAt: h.now()})
	return outcomeOK
}
